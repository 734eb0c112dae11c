package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MENTORSHIP REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MentorshipRepository implements mentorship.Repository for PostgreSQL.
// The partial unique index mentorships_open_pair keeps one open record per pair.
type MentorshipRepository struct {
	conn *Connection
}

// NewMentorshipRepository creates a new MentorshipRepository.
func NewMentorshipRepository(conn *Connection) *MentorshipRepository {
	return &MentorshipRepository{conn: conn}
}

var _ mentorship.Repository = (*MentorshipRepository)(nil)

const mentorshipColumns = `
	id, mentor_id, mentee_id, status, compatibility_score, focus_areas, goals,
	meetings, feedback, message, cancel_reason, start_date, end_date,
	created_at, updated_at, version`

// FindByID returns a mentorship by ID.
func (r *MentorshipRepository) FindByID(ctx context.Context, id mentorship.ID) (*mentorship.Mentorship, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	row := r.conn.Pool().QueryRow(ctx, `SELECT `+mentorshipColumns+` FROM mentorships WHERE id = $1`, string(id))
	return r.scanOne(row)
}

// FindOpenByPair returns the pending or active mentorship of a pair.
func (r *MentorshipRepository) FindOpenByPair(ctx context.Context, mentorID, menteeID shared.UserID) (*mentorship.Mentorship, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	row := r.conn.Pool().QueryRow(ctx, `
		SELECT `+mentorshipColumns+`
		FROM mentorships
		WHERE mentor_id = $1 AND mentee_id = $2 AND status IN ('pending', 'active')`,
		string(mentorID), string(menteeID))
	return r.scanOne(row)
}

// Create inserts a new mentorship.
func (r *MentorshipRepository) Create(ctx context.Context, m *mentorship.Mentorship) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	goals, meetings, feedback, err := mentorshipDocs(m)
	if err != nil {
		return err
	}

	_, err = r.conn.Pool().Exec(ctx, `
		INSERT INTO mentorships (`+mentorshipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		string(m.ID), string(m.MentorID), string(m.MenteeID), string(m.Status), m.CompatibilityScore,
		focusAreasToText(m.FocusAreas), goals, meetings, feedback, m.Message, m.CancelReason,
		m.StartDate, m.EndDate, m.CreatedAt, m.UpdatedAt, m.Version,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			if ConstraintName(err) == constraintOpenPair {
				return shared.ErrOpenMentorship
			}
			return shared.NewDomainError("mentorship", "Create", shared.ErrAlreadyExists, "mentorship id already exists")
		}
		return fmt.Errorf("failed to create mentorship: %w", err)
	}
	return nil
}

// Save updates the mutable columns if the stored version still matches m.Version,
// and advances m.Version on success.
func (r *MentorshipRepository) Save(ctx context.Context, m *mentorship.Mentorship) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	goals, meetings, feedback, err := mentorshipDocs(m)
	if err != nil {
		return err
	}

	var version int
	err = r.conn.Pool().QueryRow(ctx, `
		UPDATE mentorships SET
			status = $3, focus_areas = $4, goals = $5, meetings = $6, feedback = $7,
			message = $8, cancel_reason = $9, start_date = $10, end_date = $11,
			updated_at = $12, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version`,
		string(m.ID), m.Version, string(m.Status), focusAreasToText(m.FocusAreas),
		goals, meetings, feedback, m.Message, m.CancelReason, m.StartDate, m.EndDate, m.UpdatedAt,
	).Scan(&version)
	if err == nil {
		m.Version = version
		return nil
	}
	if !IsNoRows(err) {
		return fmt.Errorf("failed to save mentorship: %w", err)
	}

	var exists bool
	if err := r.conn.Pool().QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM mentorships WHERE id = $1)`, string(m.ID)).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check mentorship: %w", err)
	}
	if !exists {
		return shared.ErrMentorshipNotFound
	}
	return shared.ErrStaleMentorship
}

// ListByParticipant returns the user's mentorships, newest first.
func (r *MentorshipRepository) ListByParticipant(ctx context.Context, userID shared.UserID, filter mentorship.ListFilter) ([]*mentorship.Mentorship, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	query, args := buildListQuery(userID, filter)
	rows, err := r.conn.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentorships: %w", err)
	}
	defer rows.Close()

	out := make([]*mentorship.Mentorship, 0)
	for rows.Next() {
		m, err := scanMentorship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mentorship: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountActiveByMentor counts the mentor's active mentorships.
func (r *MentorshipRepository) CountActiveByMentor(ctx context.Context, mentorID shared.UserID) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var n int
	err := r.conn.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM mentorships WHERE mentor_id = $1 AND status = 'active'`,
		string(mentorID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active mentorships: %w", err)
	}
	return n, nil
}

// ExistsBetween reports whether the pair has a mentorship in one of statuses.
// No statuses means any status.
func (r *MentorshipRepository) ExistsBetween(ctx context.Context, mentorID, menteeID shared.UserID, statuses ...mentorship.Status) (bool, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := r.conn.Pool().QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM mentorships
			WHERE mentor_id = $1 AND mentee_id = $2
			  AND (cardinality($3::text[]) = 0 OR status = ANY($3::text[]))
		)`,
		string(mentorID), string(menteeID), statusesToText(statuses),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check mentorship existence: %w", err)
	}
	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helper Functions
// ─────────────────────────────────────────────────────────────────────────────

func buildListQuery(userID shared.UserID, filter mentorship.ListFilter) (string, []any) {
	var sb strings.Builder
	args := []any{string(userID)}

	sb.WriteString(`SELECT ` + mentorshipColumns + ` FROM mentorships WHERE `)
	switch filter.Role {
	case mentorship.RoleMentor:
		sb.WriteString(`mentor_id = $1`)
	case mentorship.RoleMentee:
		sb.WriteString(`mentee_id = $1`)
	default:
		sb.WriteString(`(mentor_id = $1 OR mentee_id = $1)`)
	}

	if len(filter.Statuses) > 0 {
		args = append(args, statusesToText(filter.Statuses))
		fmt.Fprintf(&sb, ` AND status = ANY($%d::text[])`, len(args))
	}

	sb.WriteString(` ORDER BY created_at DESC, id ASC`)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, ` OFFSET $%d`, len(args))
	}
	return sb.String(), args
}

func statusesToText(statuses []mentorship.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func mentorshipDocs(m *mentorship.Mentorship) (goals, meetings, feedback []byte, err error) {
	if goals, err = marshalGoals(m.Goals); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal goals: %w", err)
	}
	if meetings, err = marshalMeetings(m.Meetings); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal meetings: %w", err)
	}
	if feedback, err = marshalFeedback(m.Feedback); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal feedback: %w", err)
	}
	return goals, meetings, feedback, nil
}

func (r *MentorshipRepository) scanOne(row pgx.Row) (*mentorship.Mentorship, error) {
	m, err := scanMentorship(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrMentorshipNotFound
		}
		return nil, fmt.Errorf("failed to get mentorship: %w", err)
	}
	return m, nil
}

func scanMentorship(row pgx.Row) (*mentorship.Mentorship, error) {
	var (
		m                 mentorship.Mentorship
		id, mentor, mentee string
		status            string
		focusAreas        []string
		goals, meetings   []byte
		feedback          []byte
	)

	err := row.Scan(
		&id, &mentor, &mentee, &status, &m.CompatibilityScore, &focusAreas,
		&goals, &meetings, &feedback, &m.Message, &m.CancelReason,
		&m.StartDate, &m.EndDate, &m.CreatedAt, &m.UpdatedAt, &m.Version,
	)
	if err != nil {
		return nil, err
	}

	m.ID = mentorship.ID(id)
	m.MentorID = shared.UserID(mentor)
	m.MenteeID = shared.UserID(mentee)
	m.Status = mentorship.Status(status)
	m.FocusAreas = textToFocusAreas(focusAreas)

	if m.Goals, err = unmarshalGoals(goals); err != nil {
		return nil, err
	}
	if m.Meetings, err = unmarshalMeetings(meetings); err != nil {
		return nil, err
	}
	if m.Feedback, err = unmarshalFeedback(feedback); err != nil {
		return nil, err
	}
	return &m, nil
}
