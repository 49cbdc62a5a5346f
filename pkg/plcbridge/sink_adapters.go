package plcbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("plcbridge: channel sink closed")

// NewCallbackSink adapts a ReadingHandler into a full Sink implementation so callers
// can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn ReadingHandler) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes readings via a channel; it returns the sink, the read-only channel,
// and a close function that the caller should invoke during shutdown.
func NewChannelSink(name string, buffer int) (Sink, <-chan Reading, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Reading, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   ReadingHandler
}

func (s *callbackSink) EnsureSchema(context.Context) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return nil
}

func (s *callbackSink) Record(_ context.Context, r Reading) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return s.fn(r)
}

func (s *callbackSink) Close() error { return nil }
func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan Reading
	closed chan struct{}
	once   sync.Once
	// mu keeps ch open while a send is in flight.
	mu sync.RWMutex
}

func (s *channelSink) EnsureSchema(context.Context) error { return nil }

// Record blocks until the reading is taken, ctx is done or the sink is closed.
func (s *channelSink) Record(ctx context.Context, r Reading) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- r:
		return nil
	}
}

// Close is a no-op: the scheduler closes sinks on reconnect, while the channel
// belongs to the caller's close function.
func (s *channelSink) Close() error { return nil }

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}
