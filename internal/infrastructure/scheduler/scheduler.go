// Package scheduler runs background maintenance tasks (analytics prefetch,
// stock and expiry scans, notification retention) on a bounded worker pool.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Task is a unit of background work
type Task func(ctx context.Context) error

// Job is one execution of a named task
type Job struct {
	ID          uuid.UUID
	Task        string
	Status      JobStatus
	Error       string
	Attempt     int
	MaxRetries  int
	SubmittedAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewJob creates a pending job for task
func NewJob(task string, maxRetries int) *Job {
	return &Job{
		ID:          uuid.New(),
		Task:        task,
		Status:      JobStatusPending,
		MaxRetries:  maxRetries,
		SubmittedAt: time.Now(),
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry reports whether a failed job has retries left. MaxRetries counts retries, not attempts.
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.Attempt <= j.MaxRetries
}

// Observer receives job outcomes
type Observer interface {
	ObserveJob(ctx context.Context, task string, status JobStatus, duration time.Duration)
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Workers       int
	QueueSize     int
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:       2,
		QueueSize:     32,
		JobTimeout:    2 * time.Minute,
		RetryAttempts: 2,
		RetryDelay:    10 * time.Second,
	}
}

// Scheduler executes registered tasks on a fixed worker pool.
// At most one job per task is queued or running at any time.
type Scheduler struct {
	config   SchedulerConfig
	observer Observer
	logger   *zap.Logger

	tasks    map[string]Task
	active   map[string]bool
	jobs     chan *Job
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	retries  sync.WaitGroup
	mu       sync.Mutex
	running  bool
	lastRuns map[string]Job
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, observer Observer, logger *zap.Logger) *Scheduler {
	def := DefaultSchedulerConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = def.JobTimeout
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = def.RetryDelay
	}
	if config.RetryAttempts < 0 {
		config.RetryAttempts = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:   config,
		observer: observer,
		logger:   logger,
		tasks:    make(map[string]Task),
		active:   make(map[string]bool),
		lastRuns: make(map[string]Job),
	}
}

// Register adds a named task. Registering after Start is allowed.
func (s *Scheduler) Register(name string, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[name] = task
}

// Tasks returns the registered task names
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.jobs = make(chan *Job, s.config.QueueSize)

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i, s.jobs)
	}

	s.logger.Info("Scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
		zap.Strings("tasks", s.taskNamesLocked()))
	return nil
}

// Stop cancels running jobs and waits for the workers, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.retries.Wait()
		s.mu.Lock()
		close(s.jobs)
		s.mu.Unlock()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues a run of the named task
func (s *Scheduler) Submit(name string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSchedulerNotRunning
	}
	if _, ok := s.tasks[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	if s.active[name] {
		return nil, ErrJobAlreadyQueued
	}
	job := NewJob(name, s.config.RetryAttempts)
	if err := s.enqueueLocked(job); err != nil {
		return nil, err
	}
	s.active[name] = true
	s.logger.Debug("Job submitted", zap.String("job_id", job.ID.String()), zap.String("task", name))
	return job, nil
}

// LastRun returns a snapshot of the most recent finished job for a task
func (s *Scheduler) LastRun(name string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.lastRuns[name]
	return j, ok
}

func (s *Scheduler) enqueueLocked(job *Job) error {
	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) worker(ctx context.Context, workerID int, jobs <-chan *Job) {
	defer s.wg.Done()
	for job := range jobs {
		s.processJob(ctx, job, workerID)
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	s.mu.Lock()
	task := s.tasks[job.Task]
	s.mu.Unlock()

	if ctx.Err() != nil {
		s.finish(job)
		return
	}

	job.Attempt++
	job.Start()
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	err := s.run(jobCtx, task)
	cancel()
	duration := time.Since(*job.StartedAt)

	if err == nil {
		job.Complete()
		s.logger.Debug("Job completed",
			zap.Int("worker_id", workerID),
			zap.String("task", job.Task),
			zap.Duration("duration", duration))
		s.observe(ctx, job, duration)
		s.finish(job)
		return
	}

	job.Fail(err.Error())
	s.observe(ctx, job, duration)
	s.logger.Error("Job failed",
		zap.Int("worker_id", workerID),
		zap.String("task", job.Task),
		zap.Int("attempt", job.Attempt),
		zap.Error(err))

	if job.ShouldRetry() && ctx.Err() == nil {
		s.scheduleRetry(ctx, job)
		return
	}
	s.finish(job)
}

func (s *Scheduler) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	if err := task(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("timed out after %s: %w", s.config.JobTimeout, err)
		}
		return err
	}
	return nil
}

// scheduleRetry re-queues job after the retry delay, keeping the task marked active
func (s *Scheduler) scheduleRetry(ctx context.Context, job *Job) {
	delay := s.config.RetryDelay * time.Duration(job.Attempt)
	job.Status = JobStatusPending
	s.logger.Info("Job scheduled for retry",
		zap.String("task", job.Task),
		zap.Int("attempt", job.Attempt),
		zap.Duration("delay", delay))

	s.retries.Add(1)
	go func() {
		defer s.retries.Done()
		select {
		case <-ctx.Done():
			s.finish(job)
			return
		case <-time.After(delay):
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.running || s.enqueueLocked(job) != nil {
			s.logger.Warn("Failed to re-queue job for retry", zap.String("task", job.Task))
			s.finishLocked(job)
		}
	}()
}

func (s *Scheduler) finish(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(job)
}

func (s *Scheduler) finishLocked(job *Job) {
	delete(s.active, job.Task)
	s.lastRuns[job.Task] = *job
}

func (s *Scheduler) observe(ctx context.Context, job *Job, d time.Duration) {
	if s.observer != nil {
		s.observer.ObserveJob(ctx, job.Task, job.Status, d)
	}
}

func (s *Scheduler) taskNamesLocked() []string {
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
