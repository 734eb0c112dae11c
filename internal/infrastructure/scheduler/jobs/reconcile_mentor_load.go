// Package jobs contains the scheduled jobs of the mentorship service.
package jobs

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mentorlink/mentorship-core/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE MENTOR LOAD JOB
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileJobName is the scheduler name of the job.
const ReconcileJobName = "reconcile_mentor_load"

// LoadReconciler runs one reconciliation pass.
type LoadReconciler interface {
	Handle(ctx context.Context, cmd command.ReconcileMentorLoadCommand) (*command.ReconcileMentorLoadResult, error)
}

// ReconcileMentorLoadJob recounts active mentorships per mentor and repairs
// currentMentees where the two disagree.
type ReconcileMentorLoadJob struct {
	reconciler LoadReconciler
	settle     time.Duration
	logger     *slog.Logger

	lastRunStats atomic.Pointer[ReconcileStats]
}

// ReconcileStats summarizes the last completed run.
type ReconcileStats struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Checked   int           `json:"checked"`
	Drifted   int           `json:"drifted"`
	Repaired  int           `json:"repaired"`
	Skipped   int           `json:"skipped"`
}

// NewReconcileMentorLoadJob creates the job. settle is the pause between the
// two observations of a drifted counter; it should exceed the HTTP request
// timeout so an accept that is still in flight is not mistaken for drift.
func NewReconcileMentorLoadJob(reconciler LoadReconciler, settle time.Duration, logger *slog.Logger) *ReconcileMentorLoadJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileMentorLoadJob{
		reconciler: reconciler,
		settle:     settle,
		logger:     logger.With("job", ReconcileJobName),
	}
}

// Name implements scheduler.Job.
func (j *ReconcileMentorLoadJob) Name() string {
	return ReconcileJobName
}

// Description implements scheduler.Job.
func (j *ReconcileMentorLoadJob) Description() string {
	return "Recounts active mentorships and repairs mentor load counters"
}

// Run implements scheduler.Job.
func (j *ReconcileMentorLoadJob) Run(ctx context.Context) error {
	startedAt := time.Now()

	result, err := j.reconciler.Handle(ctx, command.ReconcileMentorLoadCommand{Settle: j.settle})
	if err != nil {
		return err
	}

	stats := &ReconcileStats{
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Checked:   result.Checked,
		Drifted:   result.Drifted,
		Repaired:  len(result.Repaired),
		Skipped:   result.Skipped,
	}
	j.lastRunStats.Store(stats)

	j.logger.Info("reconciliation finished",
		"checked", stats.Checked,
		"drifted", stats.Drifted,
		"repaired", stats.Repaired,
		"skipped", stats.Skipped,
	)
	return nil
}

// LastRunStats returns the stats of the last successful run, or nil.
func (j *ReconcileMentorLoadJob) LastRunStats() *ReconcileStats {
	return j.lastRunStats.Load()
}
