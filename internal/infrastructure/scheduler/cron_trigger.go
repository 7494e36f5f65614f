package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Entry binds a cron spec to a registered task
type Entry struct {
	Task string
	Spec string
}

// CronTrigger submits tasks to the scheduler on their cron specs.
// Specs accept the standard five fields and descriptors such as "@every 1m".
type CronTrigger struct {
	scheduler *Scheduler
	cron      *cron.Cron
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	running bool
}

// NewCronTrigger creates a new cron trigger evaluating specs in loc
func NewCronTrigger(scheduler *Scheduler, loc *time.Location, logger *zap.Logger) *CronTrigger {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		scheduler: scheduler,
		cron:      cron.New(cron.WithLocation(loc)),
		logger:    logger,
		entries:   make(map[string]cron.EntryID),
	}
}

// Add schedules entry. An empty spec disables the task.
func (c *CronTrigger) Add(entry Entry) error {
	if entry.Spec == "" {
		c.logger.Info("Scheduled task disabled", zap.String("task", entry.Task))
		return nil
	}
	task := entry.Task
	id, err := c.cron.AddFunc(entry.Spec, func() { c.fire(task) })
	if err != nil {
		return fmt.Errorf("%w %q for %s: %v", ErrInvalidSpec, entry.Spec, task, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[task]; ok {
		c.cron.Remove(old)
	}
	c.entries[task] = id
	return nil
}

// Start starts evaluating specs
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	c.running = true
	c.cron.Start()

	for task, id := range c.entries {
		c.logger.Info("Cron entry scheduled",
			zap.String("task", task),
			zap.Time("next_run", c.cron.Entry(id).Next))
	}
	return nil
}

// Stop stops the trigger and waits for in-flight submissions, bounded by ctx
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	stopped := c.cron.Stop()
	select {
	case <-stopped.Done():
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next fire time of task
func (c *CronTrigger) Next(task string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.entries[task]
	if !ok {
		return time.Time{}, false
	}
	return c.cron.Entry(id).Next, true
}

func (c *CronTrigger) fire(task string) {
	_, err := c.scheduler.Submit(task)
	switch {
	case err == nil:
	case errors.Is(err, ErrJobAlreadyQueued):
		c.logger.Debug("Skipping tick, previous run still in progress", zap.String("task", task))
	default:
		c.logger.Warn("Failed to submit scheduled task", zap.String("task", task), zap.Error(err))
	}
}
