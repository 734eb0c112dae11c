// Package scheduler runs the periodic background jobs of the mentorship
// service on top of gocron. It adds per-run timeouts, cancellation on Stop,
// panic recovery, the last result of every job and execution counters.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

type SchedulerConfig struct {
	Logger *slog.Logger

	// Timezone for gocron; UTC when nil.
	Timezone *time.Location

	EnableMetrics bool
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Logger:        slog.Default(),
		Timezone:      time.UTC,
		EnableMetrics: true,
	}
}

// entry is a registered job and its run history. Guarded by Scheduler.mu.
type entry struct {
	job     Job
	opts    JobOptions
	cronJob *gocron.Job

	lastRun  time.Time
	runs     int64
	failures int64
	last     *JobResult
}

// Scheduler is started once and stopped once; it cannot be restarted.
type Scheduler struct {
	cron    *gocron.Scheduler
	log     *slog.Logger
	metrics *SchedulerMetrics

	// ctx is the parent of every run; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	inRuns sync.WaitGroup

	mu        sync.RWMutex
	entries   map[string]*entry
	running   bool
	startedAt time.Time
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    gocron.NewScheduler(cfg.Timezone),
		log:     cfg.Logger.With("component", "scheduler"),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
	if cfg.EnableMetrics {
		s.metrics = NewSchedulerMetrics()
	}
	return s
}

// Register schedules job every opts.Interval. Runs of the same job never
// overlap: gocron's singleton mode skips a tick while the previous run is
// still going.
func (s *Scheduler) Register(job Job, opts JobOptions) error {
	if job == nil {
		return ErrNilJob
	}
	if opts.Interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, dup := s.entries[name]; dup {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	e := &entry{job: job, opts: opts}
	b := s.cron.Every(opts.Interval).Tag(name).SingletonMode()
	if !opts.RunOnStart {
		b = b.WaitForSchedule()
	}
	cj, err := b.Do(s.tick, e)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	e.cronJob = cj
	s.entries[name] = e

	s.log.Info("job registered",
		"job", name,
		"description", job.Description(),
		"interval", opts.Interval.String(),
		"timeout", opts.Timeout.String(),
	)
	return nil
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.running:
		return ErrSchedulerAlreadyRunning
	case s.ctx.Err() != nil:
		return ErrSchedulerStopped
	}

	s.running = true
	s.startedAt = time.Now()
	s.cron.StartAsync()
	s.log.Info("scheduler started", "jobs", len(s.entries))
	return nil
}

// Stop cancels in-flight runs and returns once they have all finished.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.cron.Stop()
	s.inRuns.Wait()
	s.log.Info("scheduler stopped", "uptime", time.Since(s.startedAt).String())
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// tick is what gocron calls.
func (s *Scheduler) tick(e *entry) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.inRuns.Add(1)
	s.mu.Unlock()
	defer s.inRuns.Done()

	ctx, cancel := s.ctx, context.CancelFunc(func() {})
	if e.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, e.opts.Timeout)
	}
	defer cancel()

	name := e.job.Name()
	s.log.Debug("job started", "job", name)

	start := time.Now()
	err := s.safeRun(ctx, e.job)
	end := time.Now()

	res := &JobResult{
		JobName:     name,
		StartedAt:   start,
		CompletedAt: end,
		Duration:    end.Sub(start),
		Success:     err == nil,
	}
	if err != nil {
		res.Error = err.Error()
	}
	s.metrics.record(name, res.Duration, res.Success)

	s.mu.Lock()
	e.lastRun = start
	e.runs++
	if err != nil {
		e.failures++
	}
	e.last = res
	s.mu.Unlock()

	if err != nil {
		s.log.Error("job failed", "job", name, "duration", res.Duration.String(), "error", err)
		return
	}
	s.log.Info("job completed", "job", name, "duration", res.Duration.String())
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanic, r)
		}
	}()
	return job.Run(ctx)
}

// ListJobs reports every registered job, sorted by name. NextRun is only
// set while the scheduler is running.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.entries))
	for name, e := range s.entries {
		info := JobInfo{
			Name:        name,
			Description: e.job.Description(),
			Interval:    e.opts.Interval,
			LastRun:     e.lastRun,
			RunCount:    e.runs,
			FailCount:   e.failures,
			LastResult:  e.last,
		}
		if s.running && e.cronJob != nil {
			info.NextRun = e.cronJob.NextRun()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetMetrics is nil unless EnableMetrics was set.
func (s *Scheduler) GetMetrics() *SchedulerMetrics {
	return s.metrics
}
