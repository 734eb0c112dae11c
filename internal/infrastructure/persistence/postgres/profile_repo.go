package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements profile.Repository for PostgreSQL.
//
// current_mentees is only ever written by AdjustMentorLoad and SetMentorLoad,
// both single conditional UPDATE statements.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

var _ profile.Repository = (*ProfileRepository)(nil)

const mentorColumns = `
	user_id, is_active, specializations, industry, related_industries, skills,
	experience_years, personality_traits, career_achievements, max_mentees,
	current_mentees, schedule, time_zone, testimonials, created_at, updated_at, version`

// ─────────────────────────────────────────────────────────────────────────────
// Mentor profiles
// ─────────────────────────────────────────────────────────────────────────────

// FindMentor returns a mentor profile by user ID.
func (r *ProfileRepository) FindMentor(ctx context.Context, userID shared.UserID) (*profile.MentorProfile, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	row := r.conn.Pool().QueryRow(ctx, `SELECT `+mentorColumns+` FROM mentor_profiles WHERE user_id = $1`, string(userID))
	p, err := scanMentor(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrMentorProfileNotFound
		}
		return nil, fmt.Errorf("failed to get mentor profile: %w", err)
	}
	return p, nil
}

// ListActiveMentors returns active mentors except excluding, ordered by user ID.
func (r *ProfileRepository) ListActiveMentors(ctx context.Context, excluding shared.UserID) ([]*profile.MentorProfile, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT `+mentorColumns+`
		FROM mentor_profiles
		WHERE is_active AND user_id <> $1
		ORDER BY user_id`, string(excluding))
	if err != nil {
		return nil, fmt.Errorf("failed to list active mentors: %w", err)
	}
	defer rows.Close()

	var out []*profile.MentorProfile
	for rows.Next() {
		p, err := scanMentor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mentor profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListMentorIDs returns every mentor user ID, ordered.
func (r *ProfileRepository) ListMentorIDs(ctx context.Context) ([]shared.UserID, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `SELECT user_id FROM mentor_profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentor ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect mentor ids: %w", err)
	}

	out := make([]shared.UserID, len(ids))
	for i, id := range ids {
		out[i] = shared.UserID(id)
	}
	return out, nil
}

// CreateMentor inserts a new mentor profile with its current load.
func (r *ProfileRepository) CreateMentor(ctx context.Context, p *profile.MentorProfile) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	args, err := mentorArgs(p)
	if err != nil {
		return err
	}
	args = append(args, p.Availability.CurrentMentees, p.CreatedAt, max(p.Version, 1))

	_, err = r.conn.Pool().Exec(ctx, `
		INSERT INTO mentor_profiles (
			user_id, is_active, specializations, industry, related_industries, skills,
			experience_years, personality_traits, career_achievements, max_mentees,
			schedule, time_zone, testimonials, rating_average, rating_count, updated_at,
			current_mentees, created_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		args...)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrMentorProfileExists
		}
		return fmt.Errorf("failed to create mentor profile: %w", err)
	}
	p.Version = max(p.Version, 1)
	return nil
}

// SaveMentor rewrites every column except current_mentees and created_at,
// guarded by the version read with the profile. max_mentees is only accepted
// when it is not below the stored load.
func (r *ProfileRepository) SaveMentor(ctx context.Context, p *profile.MentorProfile) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	args, err := mentorArgs(p)
	if err != nil {
		return err
	}
	args = append(args, p.Version)

	var version int
	err = r.conn.Pool().QueryRow(ctx, `
		UPDATE mentor_profiles SET
			is_active = $2, specializations = $3, industry = $4, related_industries = $5,
			skills = $6, experience_years = $7, personality_traits = $8,
			career_achievements = $9, max_mentees = $10, schedule = $11, time_zone = $12,
			testimonials = $13, rating_average = $14, rating_count = $15, updated_at = $16,
			version = version + 1
		WHERE user_id = $1 AND version = $17 AND current_mentees <= $10
		RETURNING version`,
		args...).Scan(&version)
	if err == nil {
		p.Version = version
		return nil
	}
	if IsCheckViolation(err) && ConstraintName(err) == constraintMentorLoad {
		return shared.ErrMaxBelowCurrentLoad
	}
	if !IsNoRows(err) {
		return fmt.Errorf("failed to save mentor profile: %w", err)
	}

	var stored int
	err = r.conn.Pool().QueryRow(ctx, `SELECT version FROM mentor_profiles WHERE user_id = $1`, string(p.UserID)).Scan(&stored)
	if err != nil {
		if IsNoRows(err) {
			return shared.ErrMentorProfileNotFound
		}
		return fmt.Errorf("failed to check mentor profile: %w", err)
	}
	if stored != p.Version {
		return shared.ErrStaleMentorProfile
	}
	return shared.ErrMaxBelowCurrentLoad
}

// AdjustMentorLoad changes current_mentees by delta in one conditional UPDATE.
func (r *ProfileRepository) AdjustMentorLoad(ctx context.Context, userID shared.UserID, delta int) (profile.Availability, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var (
		a        profile.Availability
		schedule []byte
	)
	err := r.conn.Pool().QueryRow(ctx, `
		UPDATE mentor_profiles
		SET current_mentees = current_mentees + $2
		WHERE user_id = $1
		  AND current_mentees + $2 >= 0
		  AND current_mentees + $2 <= max_mentees
		RETURNING max_mentees, current_mentees, schedule, time_zone`,
		string(userID), delta,
	).Scan(&a.MaxMentees, &a.CurrentMentees, &schedule, &a.TimeZone)
	if err == nil {
		if a.Schedule, err = unmarshalSchedule(schedule); err != nil {
			return profile.Availability{}, err
		}
		return a, nil
	}
	if !IsNoRows(err) {
		return profile.Availability{}, fmt.Errorf("failed to adjust mentor load: %w", err)
	}

	// Nothing updated: either the profile is missing or the guard rejected the change.
	if _, err := r.currentLoad(ctx, userID); err != nil {
		return profile.Availability{}, err
	}
	if delta > 0 {
		return profile.Availability{}, shared.ErrMentorAtCapacity
	}
	return profile.Availability{}, shared.ErrMentorLoadUnderflow
}

// SetMentorLoad is a compare-and-set on current_mentees, clamped to [0, max_mentees].
func (r *ProfileRepository) SetMentorLoad(ctx context.Context, userID shared.UserID, expected, load int) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var written int
	err := r.conn.Pool().QueryRow(ctx, `
		UPDATE mentor_profiles
		SET current_mentees = LEAST(GREATEST($3::int, 0), max_mentees)
		WHERE user_id = $1 AND current_mentees = $2
		RETURNING current_mentees`,
		string(userID), expected, load,
	).Scan(&written)
	if err == nil {
		return written, nil
	}
	if !IsNoRows(err) {
		return 0, fmt.Errorf("failed to set mentor load: %w", err)
	}

	current, err := r.currentLoad(ctx, userID)
	if err != nil {
		return 0, err
	}
	return current, shared.ErrMentorLoadChanged
}

func (r *ProfileRepository) currentLoad(ctx context.Context, userID shared.UserID) (int, error) {
	var current int
	err := r.conn.Pool().QueryRow(ctx, `SELECT current_mentees FROM mentor_profiles WHERE user_id = $1`, string(userID)).Scan(&current)
	if err != nil {
		if IsNoRows(err) {
			return 0, shared.ErrMentorProfileNotFound
		}
		return 0, fmt.Errorf("failed to read mentor load: %w", err)
	}
	return current, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Mentee profiles
// ─────────────────────────────────────────────────────────────────────────────

// FindMentee returns a mentee profile by user ID.
func (r *ProfileRepository) FindMentee(ctx context.Context, userID shared.UserID) (*profile.MenteeProfile, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var (
		p      profile.MenteeProfile
		id     string
		traits []byte
	)
	err := r.conn.Pool().QueryRow(ctx, `
		SELECT user_id, industry, skills_to_improve, career_goals, personality_traits, experience_years, updated_at
		FROM mentee_profiles WHERE user_id = $1`, string(userID),
	).Scan(&id, &p.Industry, &p.SkillsToImprove, &p.CareerGoals, &traits, &p.ExperienceYears, &p.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrMenteeProfileNotFound
		}
		return nil, fmt.Errorf("failed to get mentee profile: %w", err)
	}

	p.UserID = shared.UserID(id)
	p.SkillsToImprove = nilIfEmpty(p.SkillsToImprove)
	p.CareerGoals = nilIfEmpty(p.CareerGoals)
	if p.PersonalityTraits, err = unmarshalTraits(traits); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveMentee upserts the mentee profile.
func (r *ProfileRepository) SaveMentee(ctx context.Context, p *profile.MenteeProfile) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	traits, err := marshalTraits(p.PersonalityTraits)
	if err != nil {
		return fmt.Errorf("failed to marshal personality traits: %w", err)
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = r.conn.Pool().Exec(ctx, `
		INSERT INTO mentee_profiles (user_id, industry, skills_to_improve, career_goals, personality_traits, experience_years, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			industry = EXCLUDED.industry,
			skills_to_improve = EXCLUDED.skills_to_improve,
			career_goals = EXCLUDED.career_goals,
			personality_traits = EXCLUDED.personality_traits,
			experience_years = EXCLUDED.experience_years,
			updated_at = EXCLUDED.updated_at`,
		string(p.UserID), p.Industry, textArray(p.SkillsToImprove), textArray(p.CareerGoals),
		traits, p.ExperienceYears, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save mentee profile: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helper Functions
// ─────────────────────────────────────────────────────────────────────────────

// mentorArgs returns $1..$16 shared by CreateMentor and SaveMentor.
func mentorArgs(p *profile.MentorProfile) ([]any, error) {
	traits, err := marshalTraits(p.PersonalityTraits)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal personality traits: %w", err)
	}
	schedule, err := marshalSchedule(p.Availability.Schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schedule: %w", err)
	}
	testimonials, err := marshalTestimonials(p.Testimonials)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal testimonials: %w", err)
	}

	return []any{
		string(p.UserID),
		p.IsActive,
		focusAreasToText(p.Specializations),
		p.Industry,
		textArray(p.RelatedIndustries),
		textArray(p.Skills),
		p.ExperienceYears,
		traits,
		textArray(p.CareerAchievements),
		p.Availability.MaxMentees,
		schedule,
		p.Availability.TimeZone,
		testimonials,
		p.Rating.Average,
		p.Rating.Count,
		p.UpdatedAt,
	}, nil
}

func scanMentor(row pgx.Row) (*profile.MentorProfile, error) {
	var (
		p               profile.MentorProfile
		id              string
		specializations []string
		traits          []byte
		schedule        []byte
		testimonials    []byte
	)

	err := row.Scan(
		&id,
		&p.IsActive,
		&specializations,
		&p.Industry,
		&p.RelatedIndustries,
		&p.Skills,
		&p.ExperienceYears,
		&traits,
		&p.CareerAchievements,
		&p.Availability.MaxMentees,
		&p.Availability.CurrentMentees,
		&schedule,
		&p.Availability.TimeZone,
		&testimonials,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Version,
	)
	if err != nil {
		return nil, err
	}

	p.UserID = shared.UserID(id)
	p.Specializations = textToFocusAreas(specializations)
	p.RelatedIndustries = nilIfEmpty(p.RelatedIndustries)
	p.Skills = nilIfEmpty(p.Skills)
	p.CareerAchievements = nilIfEmpty(p.CareerAchievements)

	if p.PersonalityTraits, err = unmarshalTraits(traits); err != nil {
		return nil, err
	}
	if p.Availability.Schedule, err = unmarshalSchedule(schedule); err != nil {
		return nil, err
	}
	if p.Testimonials, err = unmarshalTestimonials(testimonials); err != nil {
		return nil, err
	}
	// the stored rating columns exist for SQL; the domain value is always derived
	p.RecomputeRating()
	return &p, nil
}
