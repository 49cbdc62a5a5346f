package plcbridge

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewCallbackSink(t *testing.T) {
	var received []Reading
	sink := NewCallbackSink("cb", func(r Reading) error {
		received = append(received, r)
		return nil
	})

	input := Reading{Source: "Line1", Node: "Temp", Value: "21.5", Timestamp: time.Unix(1, 0)}

	if err := sink.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema returned error: %v", err)
	}
	if err := sink.Record(context.Background(), input); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if len(received) != 1 || received[0] != input {
		t.Fatalf("mismatched reading: %+v vs %+v", received, input)
	}
	if sink.Name() != "cb" {
		t.Fatalf("expected name cb, got %s", sink.Name())
	}
}

func TestNewCallbackSinkNilHandler(t *testing.T) {
	sink := NewCallbackSink("", nil)
	if sink.Name() != "callback" {
		t.Fatalf("expected default name, got %s", sink.Name())
	}
	if err := sink.Record(context.Background(), Reading{Node: "n"}); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
}

func TestNewChannelSink(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 1)
	defer closeFn()

	input := Reading{Source: "Line1", Node: "Temp", Value: "1"}
	errCh := make(chan error, 1)

	go func() {
		errCh <- sink.Record(context.Background(), input)
	}()

	var got Reading
	select {
	case got = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel reading")
	}

	if err := <-errCh; err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if got != input {
		t.Fatalf("unexpected reading: %+v", got)
	}

	closeFn()
	if err := sink.Record(context.Background(), input); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
	}
}

func TestChannelSinkHonoursContext(t *testing.T) {
	sink, _, closeFn := NewChannelSink("chan", 0)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := sink.Record(ctx, Reading{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
