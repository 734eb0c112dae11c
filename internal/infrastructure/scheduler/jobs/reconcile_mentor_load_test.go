package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlink/mentorship-core/internal/application/command"
)

type stubReconciler struct {
	got    command.ReconcileMentorLoadCommand
	result *command.ReconcileMentorLoadResult
	err    error
}

func (s *stubReconciler) Handle(_ context.Context, cmd command.ReconcileMentorLoadCommand) (*command.ReconcileMentorLoadResult, error) {
	s.got = cmd
	return s.result, s.err
}

func TestReconcileMentorLoadJob(t *testing.T) {
	stub := &stubReconciler{result: &command.ReconcileMentorLoadResult{
		Checked:  4,
		Drifted:  2,
		Repaired: []command.LoadRepair{{MentorID: "mentor-1", Previous: 3, Current: 1}},
		Skipped:  1,
	}}
	job := NewReconcileMentorLoadJob(stub, 15*time.Second, nil)

	assert.Equal(t, ReconcileJobName, job.Name())
	assert.Nil(t, job.LastRunStats())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 15*time.Second, stub.got.Settle)

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 4, stats.Checked)
	assert.Equal(t, 2, stats.Drifted)
	assert.Equal(t, 1, stats.Repaired)
	assert.Equal(t, 1, stats.Skipped)
}

func TestReconcileMentorLoadJob_Failure(t *testing.T) {
	stub := &stubReconciler{err: errors.New("list mentors: connection refused")}
	job := NewReconcileMentorLoadJob(stub, 0, nil)

	assert.EqualError(t, job.Run(context.Background()), "list mentors: connection refused")
	assert.Nil(t, job.LastRunStats())
}
