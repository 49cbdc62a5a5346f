package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/plcbridge/internal/domain"
	"github.com/ghalamif/plcbridge/internal/ports"
	"github.com/ghalamif/plcbridge/internal/retry"
)

var testTarget = domain.PersistenceTarget{Driver: "mysql", Table: "readings", Layout: domain.LayoutMulti}

func source(name, endpoint string, interval time.Duration, nodes ...string) domain.Source {
	src := domain.Source{Name: name, Endpoint: endpoint, ScanInterval: interval}
	for _, n := range nodes {
		src.Nodes = append(src.Nodes, domain.Node{Name: n, Address: "ns=2;s=" + n, Type: domain.NodeTypeReal})
	}
	return src
}

func newTestScheduler(t *testing.T, snap Snapshot, dialer *fakeDialer, opener *fakeOpener, opts ...Option) (*Scheduler, *recordingObs) {
	t.Helper()
	obs := newRecordingObs()
	opts = append([]Option{WithPersistenceRetry(retry.Fixed(time.Millisecond))}, opts...)
	s, err := NewScheduler(snap, dialer, opener, obs, opts...)
	require.NoError(t, err)
	require.NoError(t, s.ConnectPersistence(context.Background()))
	return s, obs
}

func TestRunCycleSingleReadingEndToEnd(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 7, 300_000_000, time.Local)
	dialer := &fakeDialer{conns: map[string]*fakeConn{
		"opc.tcp://line1:4840": {values: map[string]any{"ns=2;s=Temp": 21.5}},
	}}
	opener := &fakeOpener{}
	snap := Snapshot{
		Sources: []domain.Source{source("Line1", "opc.tcp://line1:4840", time.Second, "Temp")},
		Target:  testTarget,
	}
	s, _ := newTestScheduler(t, snap, dialer, opener, WithClock(func() time.Time { return now }))

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)

	sink := opener.sinks[0]
	require.Len(t, sink.rows, 1)
	assert.Equal(t, domain.Reading{
		Source:    "Line1",
		Node:      "Temp",
		Value:     "21.5",
		Timestamp: now.Truncate(time.Second),
	}, sink.rows[0])
	assert.Equal(t, 1, report.Recorded())
	assert.Equal(t, 1, dialer.conns["opc.tcp://line1:4840"].closed)
}

func TestRunCycleReadFailureDoesNotStopOtherNodes(t *testing.T) {
	conn := &fakeConn{
		values:  map[string]any{"ns=2;s=A": int32(1), "ns=2;s=C": true},
		readErr: map[string]error{"ns=2;s=B": errors.New("BadNotReadable")},
	}
	dialer := &fakeDialer{conns: map[string]*fakeConn{"opc.tcp://plc": conn}}
	opener := &fakeOpener{}
	snap := Snapshot{
		Sources: []domain.Source{source("PLC", "opc.tcp://plc", time.Second, "A", "B", "C")},
		Target:  testTarget,
	}
	s, obs := newTestScheduler(t, snap, dialer, opener)

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)

	rows := opener.sinks[0].rows
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Node)
	assert.Equal(t, "1", rows[0].Value)
	assert.Equal(t, "C", rows[1].Node)
	assert.Equal(t, "True", rows[1].Value)

	res, ok := report.Source("PLC")
	require.True(t, ok)
	assert.Equal(t, 1, res.Failed())
	var rerr *domain.ReadError
	require.ErrorAs(t, res.Nodes[1].Err, &rerr)
	assert.Equal(t, "B", rerr.Node)
	assert.Equal(t, float64(1), obs.counters[ports.MetricReadFailures])
}

func TestRunCycleUnresolvedNodeIsSkipped(t *testing.T) {
	conn := &fakeConn{
		values:     map[string]any{"ns=2;s=A": 1.0, "ns=2;s=B": 2.0},
		resolveErr: map[string]error{"ns=2;s=A": errors.New("BadNodeIdUnknown")},
	}
	dialer := &fakeDialer{conns: map[string]*fakeConn{"opc.tcp://plc": conn}}
	opener := &fakeOpener{}
	snap := Snapshot{
		Sources: []domain.Source{source("PLC", "opc.tcp://plc", time.Second, "A", "B")},
		Target:  testTarget,
	}
	s, obs := newTestScheduler(t, snap, dialer, opener)

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)

	rows := opener.sinks[0].rows
	require.Len(t, rows, 1)
	assert.Equal(t, "B", rows[0].Node)

	res, _ := report.Source("PLC")
	var rerr *domain.ResolveError
	require.ErrorAs(t, res.Nodes[0].Err, &rerr)
	assert.Contains(t, obs.errors, "node_resolve_failed")
}

func TestRunCycleSharesTimestampWithinSourcePass(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * 1500 * time.Millisecond)
	}
	dialer := &fakeDialer{conns: map[string]*fakeConn{
		"opc.tcp://a": {values: map[string]any{"ns=2;s=X": 1, "ns=2;s=Y": 2, "ns=2;s=Z": 3}},
		"opc.tcp://b": {values: map[string]any{"ns=2;s=X": 4, "ns=2;s=Y": 5}},
	}}
	opener := &fakeOpener{}
	snap := Snapshot{
		Sources: []domain.Source{
			source("A", "opc.tcp://a", time.Second, "X", "Y", "Z"),
			source("B", "opc.tcp://b", time.Second, "X", "Y"),
		},
		Target: testTarget,
	}
	s, _ := newTestScheduler(t, snap, dialer, opener, WithClock(clock))

	_, err := s.RunCycle(context.Background())
	require.NoError(t, err)

	rows := opener.sinks[0].rows
	require.Len(t, rows, 5)
	for _, r := range rows[:3] {
		assert.Equal(t, rows[0].Timestamp, r.Timestamp, "source A readings share a timestamp")
	}
	for _, r := range rows[3:] {
		assert.Equal(t, rows[3].Timestamp, r.Timestamp, "source B readings share a timestamp")
	}
	assert.NotEqual(t, rows[0].Timestamp, rows[3].Timestamp)
	assert.Zero(t, rows[0].Timestamp.Nanosecond(), "timestamps have second resolution")
}

func TestRunCycleSourceConnectFailureIsSkipped(t *testing.T) {
	dialer := &fakeDialer{
		conns: map[string]*fakeConn{
			"opc.tcp://up": {values: map[string]any{"ns=2;s=T": 1}},
		},
		dialErr: map[string]error{"opc.tcp://down": errors.New("i/o timeout")},
	}
	opener := &fakeOpener{}
	snap := Snapshot{
		Sources: []domain.Source{
			source("Down", "opc.tcp://down", time.Second, "T"),
			source("Up", "opc.tcp://up", time.Second, "T"),
		},
		Target: testTarget,
	}
	s, obs := newTestScheduler(t, snap, dialer, opener)

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Sources, 2)
	var cerr *domain.ConnectError
	require.ErrorAs(t, report.Sources[0].ConnectErr, &cerr)
	assert.Equal(t, 1, report.Sources[1].Recorded)
	assert.Equal(t, []string{"opc.tcp://down", "opc.tcp://up"}, dialer.dials)
	assert.Equal(t, float64(1), obs.counters[ports.MetricSourceConnectFailures])
}

func TestRecordResumesAfterConnectionLoss(t *testing.T) {
	conn := &fakeConn{values: map[string]any{
		"ns=2;s=N1": 1, "ns=2;s=N2": 2, "ns=2;s=N3": 3, "ns=2;s=N4": 4, "ns=2;s=N5": 5,
	}}
	dialer := &fakeDialer{conns: map[string]*fakeConn{"opc.tcp://plc": conn}}
	first := &fakeSink{fail: map[int]error{3: &domain.ConnectionLostError{Err: errors.New("server has gone away")}}}
	second := &fakeSink{}
	opener := &fakeOpener{sinks: []*fakeSink{first, second}}
	snap := Snapshot{
		Sources: []domain.Source{source("PLC", "opc.tcp://plc", time.Second, "N1", "N2", "N3", "N4", "N5")},
		Target:  testTarget,
	}
	s, obs := newTestScheduler(t, snap, dialer, opener)

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)

	nodes := func(rows []domain.Reading) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.Node
		}
		return out
	}
	assert.Equal(t, []string{"N1", "N2"}, nodes(first.rows))
	assert.Equal(t, []string{"N4", "N5"}, nodes(second.rows))
	assert.True(t, first.closed, "lost sink is closed")
	assert.Equal(t, 2, opener.opens)
	assert.Equal(t, 1, second.schemas, "schema is ensured on reconnect")

	res, _ := report.Source("PLC")
	assert.Equal(t, 4, res.Recorded)
	assert.Equal(t, 1, res.Dropped)
	require.Len(t, obs.dropped, 1)
	assert.Equal(t, "N3", obs.dropped[0].Node)
}

func TestRecordRowErrorIsDroppedWithoutReconnect(t *testing.T) {
	conn := &fakeConn{values: map[string]any{"ns=2;s=A": 1, "ns=2;s=B": 2}}
	dialer := &fakeDialer{conns: map[string]*fakeConn{"opc.tcp://plc": conn}}
	sink := &fakeSink{fail: map[int]error{1: &domain.WriteError{Err: errors.New("data too long")}}}
	opener := &fakeOpener{sinks: []*fakeSink{sink}}
	snap := Snapshot{
		Sources: []domain.Source{source("PLC", "opc.tcp://plc", time.Second, "A", "B")},
		Target:  testTarget,
	}
	s, _ := newTestScheduler(t, snap, dialer, opener)

	_, err := s.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.rows, 1)
	assert.Equal(t, "B", sink.rows[0].Node)
	assert.Equal(t, 1, opener.opens)
}

func TestConnectPersistenceRetriesUntilSuccess(t *testing.T) {
	opener := &fakeOpener{openFailures: 2}
	snap := Snapshot{
		Sources: []domain.Source{source("PLC", "opc.tcp://plc", time.Second)},
		Target:  testTarget,
	}
	obs := newRecordingObs()
	s, err := NewScheduler(snap, &fakeDialer{}, opener, obs, WithPersistenceRetry(retry.Fixed(time.Millisecond)))
	require.NoError(t, err)

	require.NoError(t, s.ConnectPersistence(context.Background()))
	assert.Equal(t, 3, opener.opens)
	assert.Equal(t, float64(2), obs.counters[ports.MetricSinkReconnects])
}

func TestConnectPersistenceKeepsOpenSink(t *testing.T) {
	opener := &fakeOpener{}
	snap := Snapshot{
		Sources: []domain.Source{source("PLC", "opc.tcp://plc", time.Second)},
		Target:  testTarget,
	}
	s, _ := newTestScheduler(t, snap, &fakeDialer{}, opener)

	require.NoError(t, s.ConnectPersistence(context.Background()))
	assert.Equal(t, 1, opener.opens)
	assert.False(t, opener.sinks[0].closed)

	require.NoError(t, s.Close())
	require.NoError(t, s.ConnectPersistence(context.Background()))
	assert.Equal(t, 2, opener.opens)
}

func TestConnectPersistenceBoundedPolicyGivesUp(t *testing.T) {
	opener := &fakeOpener{openFailures: 10}
	snap := Snapshot{
		Sources: []domain.Source{source("PLC", "opc.tcp://plc", time.Second)},
		Target:  testTarget,
	}
	s, err := NewScheduler(snap, &fakeDialer{}, opener, newRecordingObs(),
		WithPersistenceRetry(retry.Policy{MaxAttempts: 3, Delay: time.Millisecond}))
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, 3, opener.opens)
}

func TestRunUsesMinimumCadenceAndScansEverySource(t *testing.T) {
	dialer := &fakeDialer{conns: map[string]*fakeConn{
		"opc.tcp://a": {values: map[string]any{"ns=2;s=T": 1}},
		"opc.tcp://b": {values: map[string]any{"ns=2;s=T": 2}},
		"opc.tcp://c": {values: map[string]any{"ns=2;s=T": 3}},
	}}
	opener := &fakeOpener{}
	snap := Snapshot{
		Sources: []domain.Source{
			source("A", "opc.tcp://a", 5*time.Second, "T"),
			source("B", "opc.tcp://b", 10*time.Second, "T"),
			source("C", "opc.tcp://c", 2*time.Second, "T"),
		},
		Target: testTarget,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sleeps []time.Duration
	var reports []domain.CycleReport
	sleep := func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		if len(sleeps) == 3 {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	s, _ := newTestScheduler(t, snap, dialer, opener,
		WithSleep(sleep),
		WithReportHook(func(r domain.CycleReport) { reports = append(reports, r) }))

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, sleeps)
	require.Len(t, reports, 3)
	for _, r := range reports {
		require.Len(t, r.Sources, 3)
		for _, src := range r.Sources {
			assert.Equal(t, 1, src.Recorded, "source %s scanned once per tick", src.Source)
		}
	}
	assert.Len(t, opener.sinks[0].rows, 9)
}

func TestRunCycleSourceTimeoutBoundsSlowSource(t *testing.T) {
	dialer := &fakeDialer{conns: map[string]*fakeConn{
		"opc.tcp://slow": {values: map[string]any{}},
		"opc.tcp://fast": {values: map[string]any{"ns=2;s=T": 1}},
	}}
	opener := &fakeOpener{}
	slow := domain.Source{Name: "Slow", Endpoint: "opc.tcp://slow", ScanInterval: time.Second,
		Nodes: []domain.Node{{Name: "Stuck", Address: "slow"}}}
	snap := Snapshot{
		Sources:       []domain.Source{slow, source("Fast", "opc.tcp://fast", time.Second, "T")},
		Target:        testTarget,
		SourceTimeout: 20 * time.Millisecond,
	}
	s, _ := newTestScheduler(t, snap, dialer, opener)

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)

	slowRes, _ := report.Source("Slow")
	assert.Equal(t, 1, slowRes.Failed())
	fastRes, _ := report.Source("Fast")
	assert.Equal(t, 1, fastRes.Recorded)
}

func TestReloadSwapsSourcesButKeepsTarget(t *testing.T) {
	dialer := &fakeDialer{conns: map[string]*fakeConn{
		"opc.tcp://a": {values: map[string]any{"ns=2;s=T": 1}},
		"opc.tcp://b": {values: map[string]any{"ns=2;s=T": 2}},
	}}
	opener := &fakeOpener{}
	snap := Snapshot{
		Sources: []domain.Source{source("A", "opc.tcp://a", time.Second, "T")},
		Target:  testTarget,
	}
	s, _ := newTestScheduler(t, snap, dialer, opener)

	other := testTarget
	other.Table = "elsewhere"
	require.NoError(t, s.Reload(Snapshot{
		Sources: []domain.Source{source("B", "opc.tcp://b", 4*time.Second, "T")},
		Target:  other,
	}))

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sources, 1)
	assert.Equal(t, "B", report.Sources[0].Source)
	assert.Equal(t, "readings", s.Snapshot().Target.Table)

	period, mode, err := s.Snapshot().Cadence()
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, period)
	assert.Equal(t, CadenceSingle, mode)

	require.Error(t, s.Reload(Snapshot{Target: testTarget}), "empty source list is rejected")
}

func TestNewSchedulerValidatesSnapshot(t *testing.T) {
	single := testTarget
	single.Layout = domain.LayoutSingle
	snap := Snapshot{
		Sources: []domain.Source{
			source("A", "opc.tcp://a", time.Second),
			source("B", "opc.tcp://b", time.Second),
		},
		Target: single,
	}
	_, err := NewScheduler(snap, &fakeDialer{}, &fakeOpener{}, newRecordingObs())
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}
