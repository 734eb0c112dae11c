package scheduler

import (
	"context"
	"errors"
	"time"
)

// Job is one unit of periodic background work. Run receives a context that
// ends when the per-run timeout elapses or the scheduler stops.
type Job interface {
	Name() string
	Description() string
	Run(ctx context.Context) error
}

// JobOptions controls how a job is scheduled.
type JobOptions struct {
	// Interval between runs; must be positive.
	Interval time.Duration

	// Timeout bounds one run. Zero means the run is only cut short by Stop.
	Timeout time.Duration

	// RunOnStart runs the job as soon as the scheduler starts instead of
	// one interval later.
	RunOnStart bool
}

// JobResult describes the most recent run of a job.
type JobResult struct {
	JobName     string        `json:"job_name"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration_ns"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
}

// JobInfo is the externally visible state of a registered job.
type JobInfo struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Interval    time.Duration `json:"interval_ns"`
	LastRun     time.Time     `json:"last_run,omitempty"`
	NextRun     time.Time     `json:"next_run,omitempty"`
	RunCount    int64         `json:"run_count"`
	FailCount   int64         `json:"fail_count"`
	LastResult  *JobResult    `json:"last_result,omitempty"`
}

var (
	ErrNilJob                  = errors.New("job cannot be nil")
	ErrInvalidInterval         = errors.New("job interval must be positive")
	ErrJobAlreadyExists        = errors.New("job already exists")
	ErrJobPanic                = errors.New("job panicked")
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")
	ErrSchedulerNotRunning     = errors.New("scheduler is not running")
	ErrSchedulerStopped        = errors.New("scheduler has been stopped")
)
