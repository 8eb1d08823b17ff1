package bus

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testEBLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventBus_EmitAndReceive(t *testing.T) {
	eb := NewEventBus(testEBLogger(), 0)

	var got Event
	eb.On(EventRequestRendered, func(e Event) { got = e })

	eb.Emit(Event{Type: EventRequestRendered, Source: "dispatch", Payload: map[string]any{"bytes": 42}})

	if got.Source != "dispatch" || got.Payload["bytes"] != 42 {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestEventBus_WildcardAfterSpecific(t *testing.T) {
	eb := NewEventBus(testEBLogger(), 0)

	var order []string
	eb.On("*", func(e Event) { order = append(order, "wildcard") })
	eb.On(EventOutboxEnqueued, func(e Event) { order = append(order, "specific") })

	eb.Emit(Event{Type: EventOutboxEnqueued})
	eb.Emit(Event{Type: EventOutboxPublished})

	want := []string{"specific", "wildcard", "wildcard"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestEventBus_Off(t *testing.T) {
	eb := NewEventBus(testEBLogger(), 0)

	var count int32
	id := eb.On("test.event", func(e Event) { atomic.AddInt32(&count, 1) })

	eb.Emit(Event{Type: "test.event"})
	eb.Off("test.event", id)
	eb.Emit(Event{Type: "test.event"})

	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("expected 1 after unsubscribe, got %d", count)
	}
}

func TestEventBus_HandlerIDsStayUniqueAfterOff(t *testing.T) {
	eb := NewEventBus(testEBLogger(), 0)

	var a, b int32
	first := eb.On("x", func(e Event) { atomic.AddInt32(&a, 1) })
	eb.On("x", func(e Event) { atomic.AddInt32(&b, 1) })
	eb.Off("x", first)
	third := eb.On("x", func(e Event) {})
	if third == first {
		t.Fatalf("handler id %q reused", third)
	}

	eb.Off("x", third)
	eb.Emit(Event{Type: "x"})
	if atomic.LoadInt32(&a) != 0 || atomic.LoadInt32(&b) != 1 {
		t.Errorf("a=%d b=%d, want a=0 b=1", a, b)
	}
}

func TestEventBus_Replay(t *testing.T) {
	eb := NewEventBus(testEBLogger(), 0)

	eb.Emit(Event{Type: "a"})
	eb.Emit(Event{Type: "b"})
	eb.Emit(Event{Type: "a"})

	if n := len(eb.Replay("a", time.Time{})); n != 2 {
		t.Errorf("expected 2 'a' events, got %d", n)
	}
	if n := len(eb.Replay("*", time.Time{})); n != 3 {
		t.Errorf("expected 3 total events, got %d", n)
	}
}

func TestEventBus_ReplaySince(t *testing.T) {
	eb := NewEventBus(testEBLogger(), 0)

	eb.Emit(Event{Type: "old", Timestamp: time.Now().Add(-time.Hour)})
	threshold := time.Now()
	eb.Emit(Event{Type: "new"})

	events := eb.Replay("*", threshold)
	if len(events) != 1 || events[0].Type != "new" {
		t.Errorf("expected only the new event, got %v", events)
	}
}

func TestEventBus_HistoryLimit(t *testing.T) {
	eb := NewEventBus(testEBLogger(), 5)

	for i := 0; i < 10; i++ {
		eb.Emit(Event{Type: "test"})
	}

	if eb.HistoryLen() != 5 {
		t.Errorf("expected 5, got %d", eb.HistoryLen())
	}
}

func TestEventBus_PanicRecovery(t *testing.T) {
	eb := NewEventBus(testEBLogger(), 0)

	var after int32
	eb.On("panic", func(e Event) { panic("test panic") })
	eb.On("panic", func(e Event) { atomic.AddInt32(&after, 1) })

	eb.Emit(Event{Type: "panic"})

	if atomic.LoadInt32(&after) != 1 {
		t.Error("handler after the panicking one should still run")
	}
}

func TestEventBus_EmitAsync(t *testing.T) {
	eb := NewEventBus(testEBLogger(), 0)

	done := make(chan struct{})
	eb.On("async", func(e Event) { close(done) })

	eb.EmitAsync(Event{Type: "async"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async event not delivered")
	}
}

func TestEventBus_TimestampAutoSet(t *testing.T) {
	eb := NewEventBus(testEBLogger(), 0)

	before := time.Now()
	eb.Emit(Event{Type: "test"})

	events := eb.Replay("test", before.Add(-time.Second))
	if len(events) == 0 {
		t.Fatal("expected at least 1 event")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("timestamp should be auto-set")
	}
}
