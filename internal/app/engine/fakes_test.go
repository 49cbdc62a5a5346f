package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/ghalamif/plcbridge/internal/domain"
	"github.com/ghalamif/plcbridge/internal/ports"
)

type fakeHandle string

func (h fakeHandle) Address() string { return string(h) }

type fakeConn struct {
	values     map[string]any
	readErr    map[string]error
	resolveErr map[string]error
	closed     int
}

func (c *fakeConn) Resolve(_ context.Context, address string) (ports.NodeHandle, error) {
	if err := c.resolveErr[address]; err != nil {
		return nil, err
	}
	return fakeHandle(address), nil
}

func (c *fakeConn) ReadValue(ctx context.Context, h ports.NodeHandle) (any, error) {
	if h.Address() == "slow" {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := c.readErr[h.Address()]; err != nil {
		return nil, err
	}
	v, ok := c.values[h.Address()]
	if !ok {
		return nil, errors.New("BadNodeIdUnknown")
	}
	return v, nil
}

func (c *fakeConn) Close(context.Context) error {
	c.closed++
	return nil
}

type fakeDialer struct {
	conns   map[string]*fakeConn
	dialErr map[string]error
	dials   []string
}

func (d *fakeDialer) Dial(_ context.Context, endpoint string) (ports.Connection, error) {
	d.dials = append(d.dials, endpoint)
	if err := d.dialErr[endpoint]; err != nil {
		return nil, err
	}
	c, ok := d.conns[endpoint]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return c, nil
}

type fakeSink struct {
	rows []domain.Reading
	// fail maps the 1-based write attempt number to the error returned.
	fail     map[int]error
	attempts int
	closed   bool
	schemas  int
}

func (s *fakeSink) EnsureSchema(context.Context) error {
	s.schemas++
	return nil
}

func (s *fakeSink) Record(_ context.Context, r domain.Reading) error {
	s.attempts++
	if err := s.fail[s.attempts]; err != nil {
		return err
	}
	s.rows = append(s.rows, r)
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSink) Name() string { return "fake" }

// fakeOpener hands out sinks in order, failing the first openFailures calls.
type fakeOpener struct {
	sinks        []*fakeSink
	openFailures int
	opens        int
}

func (o *fakeOpener) Open(ctx context.Context, _ domain.PersistenceTarget) (ports.Sink, error) {
	o.opens++
	if o.openFailures > 0 {
		o.openFailures--
		return nil, &domain.ConnectError{Target: "db", Err: errors.New("connection refused")}
	}
	if len(o.sinks) == 0 {
		o.sinks = append(o.sinks, &fakeSink{})
	}
	s := o.sinks[0]
	if len(o.sinks) > 1 {
		o.sinks = o.sinks[1:]
	}
	_ = s.EnsureSchema(ctx)
	return s, nil
}

type recordingObs struct {
	mu       sync.Mutex
	errors   []string
	dropped  []domain.Reading
	counters map[string]float64
}

func newRecordingObs() *recordingObs {
	return &recordingObs{counters: make(map[string]float64)}
}

func (o *recordingObs) LogInfo(string, ...ports.Field) {}
func (o *recordingObs) LogError(msg string, _ error, _ ...ports.Field) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, msg)
}
func (o *recordingObs) LogCritical(msg string, err error, fields ...ports.Field) {
	o.LogError(msg, err, fields...)
}
func (o *recordingObs) IncCounter(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counters[name] += v
}
func (o *recordingObs) ObserveLatency(string, float64) {}
func (o *recordingObs) SetGauge(string, float64)       {}
func (o *recordingObs) RecordDropped(r domain.Reading, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped = append(o.dropped, r)
}
