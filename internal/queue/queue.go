// Package queue is the bounded work queue between the watch source and the
// index workers.
//
// The queue never blocks a producer. An Offer that finds the queue full
// returns ErrFull, which the supervisor treats as an application-level
// overflow, distinct from kernel notification overflow.
package queue

import (
	"context"
	"errors"
	"sync"

	"sdc-indexer/internal/events"
	"sdc-indexer/internal/metrics"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 10000

var (
	// ErrFull is returned by Offer when the queue is at capacity.
	ErrFull = errors.New("work queue full")
	// ErrClosed is returned by Offer and Put after Close.
	ErrClosed = errors.New("work queue closed")
)

// Queue is a FIFO of file events with a fixed capacity.
type Queue struct {
	ch chan events.FileEvent

	mu     sync.RWMutex
	closed bool
}

// New creates a queue holding at most capacity events.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	metrics.QueueCapacity.Set(float64(capacity))
	metrics.QueueDepth.Set(0)
	return &Queue{ch: make(chan events.FileEvent, capacity)}
}

// Offer enqueues ev without blocking.
func (q *Queue) Offer(ev events.FileEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- ev:
		metrics.QueueDepth.Set(float64(len(q.ch)))
		return nil
	default:
		metrics.QueueOverflows.Inc()
		return ErrFull
	}
}

// Put enqueues ev, waiting for room until ctx is done. It is meant for tests
// and replay tools; the watch path uses Offer. Close waits for pending Puts.
func (q *Queue) Put(ctx context.Context, ev events.FileEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- ev:
		metrics.QueueDepth.Set(float64(len(q.ch)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C returns the receive side of the queue. It is closed by Close after the
// buffered events have been received.
func (q *Queue) C() <-chan events.FileEvent {
	return q.ch
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the capacity of the queue.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Close stops accepting events. Consumers still receive events already
// queued. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Received updates the depth gauge after a consumer takes an event.
func (q *Queue) Received() {
	metrics.QueueDepth.Set(float64(len(q.ch)))
}
