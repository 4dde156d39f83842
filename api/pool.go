package api

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
)

// CompletionPublisher delivers completion events downstream.
type CompletionPublisher interface {
	EnqueueCompletion(ctx context.Context, ev domain.CompletionEvent) error
}

// Dispatcher hands completion events to a fixed set of workers so the page
// response never waits on the queue. Events are dropped, with a warning, once
// the buffer stays full past the handoff timeout.
type Dispatcher struct {
	publisher      CompletionPublisher
	log            *log.Logger
	jobs           chan domain.CompletionEvent
	sendTimeout    time.Duration
	handoffTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers        int
	Buffer         int
	SendTimeout    time.Duration
	HandoffTimeout time.Duration
}

// NewDispatcher starts the workers. The logger must not be nil.
func NewDispatcher(publisher CompletionPublisher, logger *log.Logger, cfg DispatcherConfig) *Dispatcher {
	if logger == nil {
		panic("Logger is not initialized")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	d := &Dispatcher{
		publisher:      publisher,
		log:            logger,
		jobs:           make(chan domain.CompletionEvent, cfg.Buffer),
		sendTimeout:    cfg.SendTimeout,
		handoffTimeout: cfg.HandoffTimeout,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	logger.Infof("completion dispatcher started, workers: %d, buffer: %d, timeout: %v, handoff: %v",
		cfg.Workers, cfg.Buffer, cfg.SendTimeout, cfg.HandoffTimeout)
	return d
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for ev := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		err := d.publisher.EnqueueCompletion(ctx, ev)
		cancel()
		if err != nil {
			d.log.Errorf("completion event failed, err: %v, profile: %s, category: %s, worker: %d", err, ev.ProfileID, ev.Category, id)
		}
	}
}

// Notify queues the event without blocking longer than the handoff timeout.
func (d *Dispatcher) Notify(ev domain.CompletionEvent) {
	if !d.tryEnqueue(ev) {
		d.log.WithFields(log.Fields{"event_id": ev.ID, "category": ev.Category}).Warn("completion buffer saturated; dropping event")
	}
}

func (d *Dispatcher) tryEnqueue(ev domain.CompletionEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.jobs <- ev:
		return true
	default:
	}

	if d.handoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(d.handoffTimeout)
	defer timer.Stop()
	select {
	case d.jobs <- ev:
		return true
	case <-timer.C:
		return false
	}
}

// Close stops accepting events and waits for queued ones to be sent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}
