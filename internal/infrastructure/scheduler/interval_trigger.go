package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// IntervalTriggerConfig holds configuration for an interval trigger
type IntervalTriggerConfig struct {
	// Name labels the submitted task in logs.
	Name string
	// Interval is the time between submissions.
	Interval time.Duration
	// RunOnStart submits once immediately instead of waiting a full interval.
	RunOnStart bool
}

// IntervalTrigger submits a recurring task to the worker pool on a fixed
// interval. The metrics refresher and cache janitor run this way.
type IntervalTrigger struct {
	config IntervalTriggerConfig
	pool   *WorkerPool
	run    func(ctx context.Context)
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a new interval trigger
func NewIntervalTrigger(config IntervalTriggerConfig, pool *WorkerPool, run func(ctx context.Context), logger *zap.Logger) *IntervalTrigger {
	return &IntervalTrigger{
		config: config,
		pool:   pool,
		run:    run,
		logger: logger,
	}
}

// Start starts the trigger loop
func (t *IntervalTrigger) Start(ctx context.Context) error {
	if t.config.Interval <= 0 {
		return ErrInvalidConfig
	}

	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("interval trigger started",
		zap.String("task", t.config.Name),
		zap.Duration("interval", t.config.Interval),
	)

	return nil
}

// Stop stops the trigger loop
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("interval trigger stopped", zap.String("task", t.config.Name))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.config.RunOnStart {
		t.submit()
	}

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.submit()
		}
	}
}

func (t *IntervalTrigger) submit() {
	if err := t.pool.Submit(t.config.Name, t.run); err != nil {
		// A full queue means the previous run is still backed up; the
		// next tick tries again.
		t.logger.Warn("failed to submit recurring task",
			zap.String("task", t.config.Name),
			zap.Error(err),
		)
	}
}
