package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrUnknownTask is returned when submitting a task name that was never registered
	ErrUnknownTask = errors.New("unknown task")

	// ErrJobAlreadyQueued is returned when the same task is already waiting or running
	ErrJobAlreadyQueued = errors.New("task already queued or running")

	// ErrInvalidSpec is returned for a cron spec robfig/cron cannot parse
	ErrInvalidSpec = errors.New("invalid cron spec")
)
