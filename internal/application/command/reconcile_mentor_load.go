package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE MENTOR LOAD COMMAND
// Recounts active mentorships per mentor and repairs currentMentees when it
// drifted (a lost compensation or a failed decrement).
//
// An accept increments the counter before it saves the mentorship, so for a
// short window the counter is legitimately ahead of the count. The drift is
// therefore observed twice, Settle apart, and only repaired when both
// observations agree; the write itself is a compare-and-set on the counter.
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileMentorLoadCommand configures one reconciliation pass.
type ReconcileMentorLoadCommand struct {
	// Settle is the pause between the two observations. It should exceed
	// the request timeout of the accept path.
	Settle time.Duration
}

// LoadRepair describes one repaired counter.
type LoadRepair struct {
	MentorID shared.UserID
	Previous int
	Current  int
}

// ReconcileMentorLoadResult summarizes a pass.
type ReconcileMentorLoadResult struct {
	Checked  int
	Drifted  int
	Repaired []LoadRepair
	Skipped  int
}

type loadObservation struct {
	load   int
	active int
}

// ReconcileMentorLoadHandler handles ReconcileMentorLoadCommand.
type ReconcileMentorLoadHandler struct {
	profiles       profile.Repository
	mentorships    mentorship.Repository
	eventPublisher shared.EventPublisher
	concurrency    int
}

// NewReconcileMentorLoadHandler creates a new ReconcileMentorLoadHandler.
// concurrency bounds the number of mentors processed in parallel.
func NewReconcileMentorLoadHandler(
	profiles profile.Repository,
	mentorships mentorship.Repository,
	eventPublisher shared.EventPublisher,
	concurrency int,
) *ReconcileMentorLoadHandler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ReconcileMentorLoadHandler{
		profiles:       profiles,
		mentorships:    mentorships,
		eventPublisher: eventPublisher,
		concurrency:    concurrency,
	}
}

// Handle runs one reconciliation pass.
func (h *ReconcileMentorLoadHandler) Handle(ctx context.Context, cmd ReconcileMentorLoadCommand) (*ReconcileMentorLoadResult, error) {
	ids, err := h.profiles.ListMentorIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile_mentor_load: list mentors: %w", err)
	}

	first, err := h.observeAll(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := &ReconcileMentorLoadResult{Checked: len(ids)}
	var drifted []shared.UserID
	for _, id := range ids {
		if o, ok := first[id]; ok && o.load != o.active {
			drifted = append(drifted, id)
		}
	}
	result.Drifted = len(drifted)
	if len(drifted) == 0 {
		return result, nil
	}

	if cmd.Settle > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cmd.Settle):
		}
	}

	second, err := h.observeAll(ctx, drifted)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With(logger.Component("reconcile_mentor_load"))
	for _, id := range drifted {
		before, after := first[id], second[id]
		if before != after {
			result.Skipped++
			continue
		}

		current, err := h.profiles.SetMentorLoad(ctx, id, after.load, after.active)
		if err != nil {
			if errors.Is(err, shared.ErrMentorLoadChanged) || shared.IsNotFound(err) {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("reconcile_mentor_load: set load: %w", err)
		}

		result.Repaired = append(result.Repaired, LoadRepair{MentorID: id, Previous: after.load, Current: current})
		log.Warn("mentor load repaired",
			logger.MentorID(id.String()),
			logger.Int("previous", after.load),
			logger.Int("current", current),
		)
		publish(ctx, h.eventPublisher, "", shared.NewMentorLoadReconciledEvent(id.String(), after.load, current))
	}

	return result, nil
}

// observeAll reads (load, active count) for every id with bounded parallelism.
// Mentors deleted in the meantime are left out of the result.
func (h *ReconcileMentorLoadHandler) observeAll(ctx context.Context, ids []shared.UserID) (map[shared.UserID]loadObservation, error) {
	var (
		mu  sync.Mutex
		out = make(map[shared.UserID]loadObservation, len(ids))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			p, err := h.profiles.FindMentor(gctx, id)
			if err != nil {
				if shared.IsNotFound(err) {
					return nil
				}
				return fmt.Errorf("reconcile_mentor_load: find %s: %w", id, err)
			}
			active, err := h.mentorships.CountActiveByMentor(gctx, id)
			if err != nil {
				return fmt.Errorf("reconcile_mentor_load: count %s: %w", id, err)
			}

			mu.Lock()
			out[id] = loadObservation{load: p.Availability.CurrentMentees, active: active}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
