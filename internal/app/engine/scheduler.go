package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ghalamif/plcbridge/internal/codec"
	"github.com/ghalamif/plcbridge/internal/domain"
	"github.com/ghalamif/plcbridge/internal/ports"
	"github.com/ghalamif/plcbridge/internal/retry"
)

// DefaultReconnectDelay is the pause between persistence reconnect attempts.
const DefaultReconnectDelay = 3 * time.Second

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now; readings are stamped with its output.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSleep replaces the inter-cycle sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scheduler) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithPersistenceRetry sets the policy used to (re)acquire the sink.
func WithPersistenceRetry(p retry.Policy) Option {
	return func(s *Scheduler) { s.persistRetry = p }
}

// WithSourceRetry sets the policy used to open a source session within a cycle.
func WithSourceRetry(p retry.Policy) Option {
	return func(s *Scheduler) { s.sourceRetry = p }
}

// WithReportHook is called with the report of every completed cycle.
func WithReportHook(fn func(domain.CycleReport)) Option {
	return func(s *Scheduler) { s.onReport = fn }
}

// Scheduler drives the scan cycle: one control goroutine, sources and nodes in
// configuration order, one committed row per reading.
type Scheduler struct {
	snapshot atomic.Pointer[Snapshot]
	target   domain.PersistenceTarget

	dialer ports.Dialer
	opener ports.SinkOpener
	obs    ports.Observability
	sink   ports.Sink

	persistRetry retry.Policy
	sourceRetry  retry.Policy
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
	onReport     func(domain.CycleReport)
}

func NewScheduler(snap Snapshot, dialer ports.Dialer, opener ports.SinkOpener, obs ports.Observability, opts ...Option) (*Scheduler, error) {
	if dialer == nil {
		return nil, errors.New("dialer is required")
	}
	if opener == nil {
		return nil, errors.New("sink opener is required")
	}
	if obs == nil {
		return nil, errors.New("observability is required")
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		target:       snap.Target,
		dialer:       dialer,
		opener:       opener,
		obs:          obs,
		persistRetry: retry.Fixed(DefaultReconnectDelay),
		sourceRetry:  retry.Once(),
		now:          time.Now,
		sleep:        sleepCtx,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	c := snap.clone()
	s.snapshot.Store(&c)
	return s, nil
}

// Snapshot returns the configuration the next cycle will use.
func (s *Scheduler) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// Reload swaps the sources and cadence used from the next cycle on. The
// persistence target is fixed for the life of the Scheduler.
func (s *Scheduler) Reload(snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if snap.Target != s.target {
		s.obs.LogInfo("persistence_target_change_ignored",
			ports.Field{Key: "reason", Value: "restart required"})
		snap.Target = s.target
	}
	c := snap.clone()
	s.snapshot.Store(&c)

	period, mode, _ := c.Cadence()
	s.obs.LogInfo("configuration_reloaded",
		ports.Field{Key: "sources", Value: len(c.Sources)},
		ports.Field{Key: "cadence", Value: period.String()},
		ports.Field{Key: "mode", Value: mode.String()})
	return nil
}

// Run connects to the persistence target and cycles until ctx is done. It
// only returns early when a bounded persistence retry policy is exhausted.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.ConnectPersistence(ctx); err != nil {
		return err
	}

	for {
		report, err := s.RunCycle(ctx)
		if err != nil {
			return err
		}
		if s.onReport != nil {
			s.onReport(report)
		}

		period, _, err := s.Snapshot().Cadence()
		if err != nil {
			return err
		}
		if err := s.sleep(ctx, period); err != nil {
			return err
		}
	}
}

// ConnectPersistence opens a sink with its schema ensured, retrying under the
// persistence policy. It does nothing while a sink is already open.
func (s *Scheduler) ConnectPersistence(ctx context.Context) error {
	if s.sink != nil {
		return nil
	}
	return retry.Do(ctx, s.persistRetry, func(ctx context.Context) error {
		sink, err := s.opener.Open(ctx, s.target)
		if err != nil {
			return err
		}
		s.sink = sink
		s.obs.LogInfo("persistence_connected",
			ports.Field{Key: "driver", Value: sink.Name()},
			ports.Field{Key: "table", Value: s.target.Table})
		return nil
	}, func(attempt int, err error, next time.Duration) {
		s.obs.IncCounter(ports.MetricSinkReconnects, 1)
		s.obs.LogError("persistence_connect_failed", err,
			ports.Field{Key: "attempt", Value: attempt},
			ports.Field{Key: "retry_in", Value: next.String()})
	})
}

// RunCycle performs one pass over every configured source. The returned
// error is non-nil only when ctx is done or the sink cannot be re-acquired.
func (s *Scheduler) RunCycle(ctx context.Context) (domain.CycleReport, error) {
	snap := s.Snapshot()
	started := time.Now()
	report := domain.CycleReport{Started: s.now()}

	up := 0
	for _, src := range snap.Sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := s.scanSource(ctx, snap, src)
		report.Sources = append(report.Sources, res)
		if res.ConnectErr == nil {
			up++
		}
		if err != nil {
			return report, err
		}
	}

	report.Duration = time.Since(started)
	period, _, _ := snap.Cadence()
	s.obs.IncCounter(ports.MetricCycles, 1)
	s.obs.SetGauge(ports.MetricSourcesUp, float64(up))
	s.obs.SetGauge(ports.MetricCadenceSeconds, period.Seconds())
	s.obs.ObserveLatency(ports.MetricCycleDuration, report.Duration.Seconds())
	return report, nil
}

// Close releases the persistence connection.
func (s *Scheduler) Close() error {
	if s.sink == nil {
		return nil
	}
	err := s.sink.Close()
	s.sink = nil
	return err
}

func (s *Scheduler) scanSource(ctx context.Context, snap Snapshot, src domain.Source) (domain.SourceResult, error) {
	// One timestamp per source pass, taken before the connection is opened.
	res := domain.SourceResult{Source: src.Name, Timestamp: s.now().Truncate(time.Second)}

	passCtx := ctx
	if snap.SourceTimeout > 0 {
		var cancel context.CancelFunc
		passCtx, cancel = context.WithTimeout(ctx, snap.SourceTimeout)
		defer cancel()
	}

	var sess *SourceSession
	err := retry.Do(passCtx, s.sourceRetry, func(ctx context.Context) error {
		var err error
		sess, err = OpenSession(ctx, s.dialer, src, s.obs)
		return err
	}, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		res.ConnectErr = err
		s.obs.IncCounter(ports.MetricSourceConnectFailures, 1)
		s.obs.LogError("source_connect_failed", err,
			ports.Field{Key: "source", Value: src.Name},
			ports.Field{Key: "endpoint", Value: src.Endpoint})
		return res, nil
	}
	defer func() {
		if err := sess.Close(ctx); err != nil {
			s.obs.LogError("source_close_failed", err, ports.Field{Key: "source", Value: src.Name})
		}
	}()

	res.Nodes = append(res.Nodes, sess.Unresolved()...)
	for _, nr := range sess.ReadAll(passCtx) {
		res.Nodes = append(res.Nodes, nr)
		if !nr.OK() {
			continue
		}
		reading := domain.Reading{
			Source:    src.Name,
			Node:      nr.Node.Name,
			Value:     codec.ToText(nr.Value),
			Timestamp: res.Timestamp,
		}
		ok, err := s.record(ctx, reading)
		if err != nil {
			return res, err
		}
		if ok {
			res.Recorded++
		} else {
			res.Dropped++
		}
	}

	s.obs.LogInfo("source_scanned",
		ports.Field{Key: "source", Value: src.Name},
		ports.Field{Key: "recorded", Value: res.Recorded},
		ports.Field{Key: "failed", Value: res.Failed()},
		ports.Field{Key: "dropped", Value: res.Dropped})
	return res, nil
}

// record writes one reading. A dropped row yields (false, nil); a non-nil
// error means the cycle cannot continue.
func (s *Scheduler) record(ctx context.Context, r domain.Reading) (bool, error) {
	if err := s.ConnectPersistence(ctx); err != nil {
		return false, err
	}

	err := s.sink.Record(ctx, r)
	if err == nil {
		s.obs.IncCounter(ports.MetricReadingsRecorded, 1)
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	s.obs.RecordDropped(r, err)
	if !domain.IsConnectionLost(err) {
		return false, nil
	}

	s.obs.LogError("persistence_connection_lost", err,
		ports.Field{Key: "source", Value: r.Source},
		ports.Field{Key: "node", Value: r.Node})
	if cerr := s.Close(); cerr != nil {
		s.obs.LogError("persistence_close_failed", cerr)
	}
	if err := s.ConnectPersistence(ctx); err != nil {
		return false, fmt.Errorf("reconnect persistence: %w", err)
	}
	return false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
