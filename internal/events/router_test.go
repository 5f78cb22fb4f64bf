package events

import (
	"sync"
	"testing"
	"time"
)

func selectionEvent(hash string) *SelectionChangedEvent {
	return &SelectionChangedEvent{
		BaseEvent: NewAppEvent(EventSelectionChanged),
		Operation: "select_region",
		From:      "none",
		To:        "region",
		Version:   1,
		Hash:      hash,
	}
}

func TestNewRouter(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"default buffer size", 0, DefaultBufferSize},
		{"negative buffer size uses default", -10, DefaultBufferSize},
		{"custom buffer size", 50, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := NewRouter(tt.size); r.bufferSize != tt.want {
				t.Errorf("bufferSize = %d, want %d", r.bufferSize, tt.want)
			}
		})
	}
}

func TestRouterEmitSubscribe(t *testing.T) {
	r := NewRouter(10)
	defer r.Close()

	a, b := r.Subscribe(), r.Subscribe()
	r.Emit(selectionEvent("region=313"))

	for i, ch := range []<-chan Event{a, b} {
		select {
		case got := <-ch:
			ev, ok := got.(*SelectionChangedEvent)
			if !ok {
				t.Fatalf("subscriber %d got %T", i, got)
			}
			if ev.Hash != "region=313" {
				t.Errorf("subscriber %d hash = %q", i, ev.Hash)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestRouterDropsWhenFull(t *testing.T) {
	r := NewRouter(1)
	defer r.Close()
	ch := r.Subscribe()

	r.Emit(selectionEvent("a"))
	r.Emit(selectionEvent("b"))

	if r.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", r.Dropped())
	}
	if got := (<-ch).(*SelectionChangedEvent).Hash; got != "a" {
		t.Errorf("delivered %q, want a", got)
	}
}

func TestRouterUnsubscribe(t *testing.T) {
	r := NewRouter(10)
	defer r.Close()
	ch := r.Subscribe()
	r.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("unsubscribed channel should be closed")
	}
	r.Unsubscribe(ch)
	r.Emit(selectionEvent("x"))
}

func TestRouterClose(t *testing.T) {
	r := NewRouter(10)
	ch := r.Subscribe()
	r.Close()
	r.Close()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}
	r.Emit(selectionEvent("after"))
	if _, ok := <-r.Subscribe(); ok {
		t.Error("Subscribe after Close should return a closed channel")
	}
}

func TestRouterNilEmit(t *testing.T) {
	var r *Router
	r.Emit(selectionEvent("x"))
}

func TestRouterConcurrentEmit(t *testing.T) {
	r := NewRouter(1000)
	defer r.Close()
	ch := r.Subscribe()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Emit(selectionEvent("x"))
			}
		}()
	}
	wg.Wait()

	if len(ch) != 500 {
		t.Errorf("received %d events, want 500", len(ch))
	}
}
