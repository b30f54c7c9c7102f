// Package worker runs simulation work units pulled from a queue.
//
// Every worker owns its own Processor (and through it any per-worker cache),
// so nothing mutable is shared between goroutines. Results leave the pool as
// immutable batches on a channel.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/wfmsim/internal/adapters/mq/queue"
	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/pkg/logger"
	"github.com/okian/wfmsim/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Processor turns one work unit into a batch. Implementations need not be
// safe for concurrent use: each worker gets its own.
type Processor interface {
	Process(ctx context.Context, unit model.WorkUnit) model.Batch
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, unit model.WorkUnit) model.Batch

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, unit model.WorkUnit) model.Batch {
	return f(ctx, unit)
}

// ProcessorFactory builds the processor owned by worker id.
type ProcessorFactory func(id int) Processor

// Queue defines how workers receive units.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Unit
}

// Worker processes units until the queue drains or ctx is cancelled.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the unit in progress.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	results   chan<- model.Batch
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker that publishes batches to results.
func NewInMemoryWorker(q Queue, p Processor, results chan<- model.Batch, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		results:   results,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	units := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case u, ok := <-units:
			if !ok {
				return
			}
			b := w.process(ctx, u)
			select {
			case w.results <- b:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown signals the worker and waits for Run to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one unit, converting a panic into a batch error so one bad
// series cannot take the pool down.
func (w *InMemoryWorker) process(ctx context.Context, u model.WorkUnit) (b model.Batch) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b = model.Batch{Unit: u, Err: fmt.Errorf("%w: %v", ErrProcessorPanic, r)}
		}
		if b.Err != nil {
			metrics.RecordWorkerError()
			w.logger.Error(ctx, "work unit failed",
				logger.String("scenario", u.Scenario.Name),
				logger.String("series", u.Key.String()),
				logger.Error(b.Err),
			)
		}
		metrics.RecordUnitProcessed(u.Scenario.Name, float64(time.Since(start).Microseconds())/1000)
	}()

	b = w.processor.Process(ctx, u)
	b.Unit = u
	if len(b.Rows) > 0 {
		metrics.RecordRows(u.Scenario.Name, u.Key.Channel, len(b.Rows))
	}
	return b
}

// Pool manages multiple workers sharing one queue and one results channel.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers, each with a processor from
// factory. workerCount < 1 uses runtime.NumCPU().
func NewPool(workerCount int, q Queue, factory ProcessorFactory, results chan<- model.Batch, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	probe := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(probe)
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  probe.logger.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(q, factory(i), results, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	for _, w := range p.workers {
		<-w.done
	}
}

// Shutdown closes the queue and waits for workers, bounded by ctx and
// poolShutdownTimeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}
