package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	calls atomic.Int32
	err   error
	block bool
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }

func (j *countingJob) Run(ctx context.Context) error {
	j.calls.Add(1)
	if j.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return j.err
}

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())

	assert.ErrorIs(t, s.Register(nil, JobOptions{Interval: time.Minute}), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, JobOptions{}), ErrInvalidInterval)

	require.NoError(t, s.Register(&countingJob{name: "b"}, JobOptions{Interval: time.Minute}))
	require.NoError(t, s.Register(&countingJob{name: "a"}, JobOptions{Interval: time.Hour}))
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, JobOptions{Interval: time.Minute}), ErrJobAlreadyExists)

	jobs := s.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, time.Hour, jobs[0].Interval)
	assert.Zero(t, jobs[0].RunCount)
}

func TestScheduler_RunsJobsAndRecordsResults(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())

	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("backend down")}
	require.NoError(t, s.Register(ok, JobOptions{Interval: time.Hour, RunOnStart: true}))
	require.NoError(t, s.Register(failing, JobOptions{Interval: time.Hour, RunOnStart: true}))

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrSchedulerAlreadyRunning)

	require.Eventually(t, func() bool {
		snap := s.GetMetrics().Snapshot()
		return snap.TotalExecutions == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
	assert.ErrorIs(t, s.Start(), ErrSchedulerStopped)

	jobs := s.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "failing", jobs[0].Name)
	require.NotNil(t, jobs[0].LastResult)
	assert.False(t, jobs[0].LastResult.Success)
	assert.Equal(t, "backend down", jobs[0].LastResult.Error)
	assert.Equal(t, int64(1), jobs[0].FailCount)
	assert.True(t, jobs[1].LastResult.Success)

	snap := s.GetMetrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalFailures)
	assert.InDelta(t, 0.5, snap.SuccessRate, 0.001)
}

func TestScheduler_TimeoutAndStopCancelRuns(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())

	timed := &countingJob{name: "timed", block: true}
	require.NoError(t, s.Register(timed, JobOptions{Interval: time.Hour, Timeout: 20 * time.Millisecond, RunOnStart: true}))
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool {
		jobs := s.ListJobs()
		return jobs[0].LastResult != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, context.DeadlineExceeded.Error(), s.ListJobs()[0].LastResult.Error)

	require.NoError(t, s.Stop())
}

func TestScheduler_WaitsForScheduleByDefault(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	job := &countingJob{name: "later"}
	require.NoError(t, s.Register(job, JobOptions{Interval: time.Hour}))

	require.NoError(t, s.Start())
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Zero(t, job.calls.Load())
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	err := s.safeRun(context.Background(), panicJob{})
	assert.ErrorIs(t, err, ErrJobPanic)
}

type panicJob struct{}

func (panicJob) Name() string              { return "panic" }
func (panicJob) Description() string       { return "" }
func (panicJob) Run(context.Context) error { panic("boom") }
