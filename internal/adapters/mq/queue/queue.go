// Package queue defines the contract for enqueuing and consuming work units.
//
// The in-memory implementation is a bounded buffered channel: producers either
// fail fast with Enqueue or block for space with EnqueueWait.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Unit is the payload type flowing through the queue.
type Unit = model.WorkUnit

// Queue provides bounded enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a unit without blocking.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, u Unit) bool

	// EnqueueWait blocks until the unit is queued, the queue is closed or
	// ctx is done.
	EnqueueWait(ctx context.Context, u Unit) error

	// Dequeue returns a channel that receives units until the queue is
	// closed and drained.
	Dequeue(ctx context.Context) <-chan Unit

	// Len returns the current number of queued units.
	Len(ctx context.Context) int

	// Close stops accepting units; queued units remain dequeueable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	units    chan Unit
	capacity int

	mu     sync.RWMutex
	closed bool
	// done is closed by Close so blocked producers wake up.
	done chan struct{}
	// pending counts producers blocked in EnqueueWait; units is closed only
	// after they have all returned.
	pending sync.WaitGroup
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.units = make(chan Unit, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Capacity returns the queue bound.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Enqueue adds a unit to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, u Unit) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return false
	}

	select {
	case q.units <- u:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.units))
		return true
	case <-ctx.Done():
		metrics.RecordQueueRejected("context_cancelled")
		return false
	default:
		metrics.RecordQueueRejected("queue_full")
		return false
	}
}

// EnqueueWait adds a unit, waiting for space while the queue is full.
func (q *InMemoryQueue) EnqueueWait(ctx context.Context, u Unit) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}
	q.pending.Add(1)
	q.mu.RUnlock()
	defer q.pending.Done()

	select {
	case q.units <- u:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.units))
		return nil
	case <-q.done:
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	case <-ctx.Done():
		metrics.RecordQueueRejected("context_cancelled")
		return fmt.Errorf("enqueue %s/%s: %w", u.Scenario.Name, u.Key, ctx.Err())
	}
}

// Dequeue returns a channel that receives units as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Unit {
	out := make(chan Unit)
	go func() {
		defer close(out)
		for u := range q.units {
			select {
			case out <- u:
				metrics.UpdateQueueSize(len(q.units))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued units.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.units)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting units. Consumers drain what is left.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.pending.Wait()
	close(q.units)
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
