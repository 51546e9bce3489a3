package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// task is one queued unit of background work.
type task struct {
	name string
	run  func(ctx context.Context)
}

// WorkerPoolConfig holds worker pool configuration
type WorkerPoolConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// DefaultWorkerPoolConfig returns default worker pool configuration
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers:     3,
		QueueSize:   100,
		TaskTimeout: 5 * time.Minute,
	}
}

// Validate checks the configuration for usable values.
func (c WorkerPoolConfig) Validate() error {
	if c.Workers <= 0 || c.QueueSize <= 0 || c.TaskTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// WorkerPool runs named background tasks on a bounded queue. Metrics
// refreshes and other deferrable work are submitted here so they never run
// on a request goroutine.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger

	tasks     chan task
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewWorkerPool creates a new worker pool instance
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		config: config,
		logger: logger,
		tasks:  make(chan task, config.QueueSize),
	}
}

// Start starts the workers
func (p *WorkerPool) Start(ctx context.Context) error {
	if err := p.config.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.logger.Info("worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Duration("task_timeout", p.config.TaskTimeout),
	)

	return nil
}

// Stop gracefully stops the pool. Queued tasks still in flight when the
// context expires are abandoned.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool stop timed out")
		return ctx.Err()
	}
}

// Submit queues a task for execution. Never blocks: a full queue returns
// ErrQueueFull.
func (p *WorkerPool) Submit(name string, run func(ctx context.Context)) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.mu.Unlock()

	select {
	case p.tasks <- task{name: name, run: run}:
		p.logger.Debug("task submitted", zap.String("task", name))
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth returns the number of queued tasks (for monitoring).
func (p *WorkerPool) QueueDepth() int {
	return len(p.tasks)
}

// worker processes tasks from the queue
func (p *WorkerPool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("worker stopping", zap.Int("worker_id", workerID))
			return
		case t := <-p.tasks:
			p.runTask(ctx, t, workerID)
		}
	}
}

// runTask executes a single task with a timeout and panic isolation
func (p *WorkerPool) runTask(ctx context.Context, t task, workerID int) {
	taskCtx, cancel := context.WithTimeout(ctx, p.config.TaskTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				zap.Int("worker_id", workerID),
				zap.String("task", t.name),
				zap.Any("panic", r),
			)
		}
	}()

	start := time.Now()
	t.run(taskCtx)
	p.logger.Debug("task completed",
		zap.Int("worker_id", workerID),
		zap.String("task", t.name),
		zap.Duration("elapsed", time.Since(start)),
	)
}
