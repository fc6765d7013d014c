package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	poolTracer = otel.Tracer("budgetrelay/scheduler")
	poolMeter  = otel.Meter("budgetrelay/scheduler")

	syncJobSeconds, _ = poolMeter.Float64Histogram("budgetrelay.sync_job.duration",
		metric.WithDescription("Background sync job duration"), metric.WithUnit("s"))
	syncJobRuns, _ = poolMeter.Int64Counter("budgetrelay.sync_job.runs",
		metric.WithDescription("Background sync jobs by outcome"))
	syncJobRejected, _ = poolMeter.Int64Counter("budgetrelay.sync_job.rejected",
		metric.WithDescription("Sync jobs refused because the queue was full"))
)

var (
	ErrQueueFull  = errors.New("sync queue is full")
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// PoolConfig sizes a WorkerPool.
type PoolConfig struct {
	Workers   int
	QueueSize int
	// Pause after each job, per worker. Spreads Plaid calls out.
	JobDelay   time.Duration
	JobTimeout time.Duration
}

// WorkerPool executes background sync jobs on a fixed set of goroutines.
// Jobs are accepted until Shutdown; a full queue rejects rather than blocks
// so that webhook responses are never held up.
type WorkerPool struct {
	cfg   PoolConfig
	queue chan Job

	// base is the parent of every job context. Cancelling it aborts
	// in-flight jobs.
	base  context.Context
	abort context.CancelFunc

	mu      sync.RWMutex
	stopped bool
	running sync.WaitGroup
}

// NewWorkerPool returns an idle pool. Call Start to launch the workers.
func NewWorkerPool(cfg PoolConfig) *WorkerPool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	base, abort := context.WithCancel(context.Background())
	return &WorkerPool{
		cfg:   cfg,
		queue: make(chan Job, cfg.QueueSize),
		base:  base,
		abort: abort,
	}
}

func (p *WorkerPool) Start() {
	log.Printf("Sync workers: starting %d (queue %d, timeout %s)", p.cfg.Workers, p.cfg.QueueSize, p.cfg.JobTimeout)
	p.running.Add(p.cfg.Workers)
	for n := 0; n < p.cfg.Workers; n++ {
		go p.loop(n + 1)
	}
}

func (p *WorkerPool) loop(worker int) {
	defer p.running.Done()
	for job := range p.queue {
		if p.base.Err() != nil {
			log.Printf("Sync worker %d: discarding %s for user %s after abort", worker, job.Description(), job.UserID())
			discard(job)
			continue
		}
		p.run(worker, job)
		p.pause()
	}
}

func discard(job Job) {
	if d, ok := job.(Discarder); ok {
		d.Discard()
	}
}

// pause waits out JobDelay, or less if the pool is aborted meanwhile.
func (p *WorkerPool) pause() {
	if p.cfg.JobDelay <= 0 {
		return
	}
	t := time.NewTimer(p.cfg.JobDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-p.base.Done():
	}
}

func (p *WorkerPool) run(worker int, job Job) {
	ctx := p.base
	if p.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.JobTimeout)
		defer cancel()
	}
	ctx, span := poolTracer.Start(ctx, "sync_job.run", trace.WithAttributes(
		attribute.Int("worker", worker),
		attribute.String("job", job.Description()),
		attribute.String("user_id", job.UserID()),
	))
	defer span.End()

	began := time.Now()
	err := job.Execute(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "failed"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("Sync worker %d: %s for user %s failed: %v", worker, job.Description(), job.UserID(), err)
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	syncJobRuns.Add(ctx, 1, attrs)
	syncJobSeconds.Record(ctx, time.Since(began).Seconds(), attrs)
}

// Submit enqueues job without blocking.
func (p *WorkerPool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolClosed
	}
	select {
	case p.queue <- job:
		return nil
	default:
		syncJobRejected.Add(context.Background(), 1)
		return fmt.Errorf("%w: %s for user %s", ErrQueueFull, job.Description(), job.UserID())
	}
}

// Shutdown stops accepting jobs and lets the workers drain the queue. If ctx
// ends first, running jobs are cancelled, anything still queued is discarded,
// and ctx's error is returned once the workers have exited.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.running.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		p.abort()
		log.Println("Sync workers: drained")
		return nil
	case <-ctx.Done():
		p.abort()
		<-drained
		log.Println("Sync workers: aborted unfinished jobs")
		return ctx.Err()
	}
}
