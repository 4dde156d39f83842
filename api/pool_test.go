package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
)

type recordingPublisher struct {
	mu      sync.Mutex
	events  []domain.CompletionEvent
	err     error
	release chan struct{}
}

func (p *recordingPublisher) EnqueueCompletion(ctx context.Context, ev domain.CompletionEvent) error {
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []domain.CompletionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.CompletionEvent, len(p.events))
	copy(out, p.events)
	return out
}

func TestDispatcherDeliversEvents(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, logger, DispatcherConfig{Workers: 2, Buffer: 8})

	for i := 0; i < 5; i++ {
		d.Notify(domain.CompletionEvent{ID: string(rune('a' + i))})
	}
	d.Close()

	if got := len(pub.Events()); got != 5 {
		t.Fatalf("expected 5 events delivered, got %d", got)
	}
}

func TestDispatcherDropsWhenSaturated(t *testing.T) {
	logger, hook := test.NewNullLogger()
	pub := &recordingPublisher{release: make(chan struct{})}
	d := NewDispatcher(pub, logger, DispatcherConfig{Workers: 1, Buffer: 1})

	// One event occupies the worker, one fills the buffer.
	d.Notify(domain.CompletionEvent{ID: "busy"})
	deadline := time.Now().Add(time.Second)
	for len(d.jobs) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never picked up the first event")
		}
		time.Sleep(5 * time.Millisecond)
	}
	d.Notify(domain.CompletionEvent{ID: "buffered"})
	d.Notify(domain.CompletionEvent{ID: "dropped"})

	entry := hook.LastEntry()
	if entry == nil || entry.Message != "completion buffer saturated; dropping event" {
		t.Fatalf("expected drop warning, got %#v", entry)
	}
	if entry.Data["event_id"] != "dropped" {
		t.Fatalf("unexpected dropped event %v", entry.Data["event_id"])
	}

	close(pub.release)
	d.Close()
	if got := len(pub.Events()); got != 2 {
		t.Fatalf("expected 2 events delivered, got %d", got)
	}
}

func TestDispatcherWaitsForHandoff(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := &recordingPublisher{release: make(chan struct{})}
	d := NewDispatcher(pub, logger, DispatcherConfig{Workers: 1, Buffer: 1, HandoffTimeout: 200 * time.Millisecond})

	d.Notify(domain.CompletionEvent{ID: "busy"})
	deadline := time.Now().Add(time.Second)
	for len(d.jobs) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never picked up the first event")
		}
		time.Sleep(5 * time.Millisecond)
	}
	d.Notify(domain.CompletionEvent{ID: "buffered"})

	done := make(chan bool, 1)
	go func() { done <- d.tryEnqueue(domain.CompletionEvent{ID: "waiting"}) }()

	time.Sleep(20 * time.Millisecond)
	pub.release <- struct{}{}

	select {
	case ok := <-done:
		if !ok {
			t.Fatal("expected enqueue once capacity was freed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for handoff")
	}

	close(pub.release)
	d.Close()
}

func TestDispatcherLogsPublishErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	pub := &recordingPublisher{err: errors.New("queue down")}
	d := NewDispatcher(pub, logger, DispatcherConfig{Workers: 1, Buffer: 1})

	d.Notify(domain.CompletionEvent{ID: "e1", ProfileID: "p1"})
	d.Close()

	entry := hook.LastEntry()
	if entry == nil || entry.Level.String() != "error" {
		t.Fatalf("expected error log, got %#v", entry)
	}
}

func TestDispatcherNotifyAfterClose(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, logger, DispatcherConfig{Workers: 1, Buffer: 1})
	d.Close()
	d.Close()

	if d.tryEnqueue(domain.CompletionEvent{ID: "late"}) {
		t.Fatal("expected enqueue to fail after close")
	}
}
