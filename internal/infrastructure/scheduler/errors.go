package scheduler

import "errors"

var (
	// ErrNotRunning is returned when submitting to a stopped pool
	ErrNotRunning = errors.New("worker pool is not running")

	// ErrQueueFull is returned when the task queue is full
	ErrQueueFull = errors.New("task queue is full")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid worker pool configuration")
)
