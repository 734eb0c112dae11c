package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies embedded migrations and records them in schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.conn.Pool().Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, m.tableName))
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Pool().Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var (
			version   int
			appliedAt time.Time
		)
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
// It returns the number of migrations applied.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if mig.UpSQL == "" {
			return count, fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName), mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		count++
	}
	return count, nil
}

// Status returns every embedded migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_profiles", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_mentorships", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "add_mentor_profile_version", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// Constraint names referenced by the repositories.
const (
	constraintMentorLoad = "mentor_load_within_capacity"
	constraintOpenPair   = "mentorships_open_pair"
)

const migration001Up = `
CREATE TABLE IF NOT EXISTS mentor_profiles (
    user_id             TEXT PRIMARY KEY,
    is_active           BOOLEAN NOT NULL DEFAULT TRUE,
    specializations     TEXT[] NOT NULL DEFAULT '{}',
    industry            TEXT NOT NULL DEFAULT '',
    related_industries  TEXT[] NOT NULL DEFAULT '{}',
    skills              TEXT[] NOT NULL DEFAULT '{}',
    experience_years    INTEGER,
    personality_traits  JSONB NOT NULL DEFAULT '{}'::jsonb,
    career_achievements TEXT[] NOT NULL DEFAULT '{}',
    max_mentees         INTEGER NOT NULL DEFAULT 3,
    current_mentees     INTEGER NOT NULL DEFAULT 0,
    schedule            JSONB NOT NULL DEFAULT '[]'::jsonb,
    time_zone           TEXT NOT NULL DEFAULT '',
    testimonials        JSONB NOT NULL DEFAULT '[]'::jsonb,
    rating_average      NUMERIC(3,2) NOT NULL DEFAULT 0,
    rating_count        INTEGER NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_max_mentees CHECK (max_mentees >= 1),
    CONSTRAINT valid_experience CHECK (experience_years IS NULL OR experience_years >= 0),
    CONSTRAINT valid_rating CHECK (rating_average >= 0 AND rating_average <= 5),
    CONSTRAINT mentor_load_within_capacity CHECK (current_mentees >= 0 AND current_mentees <= max_mentees)
);

CREATE INDEX IF NOT EXISTS idx_mentor_profiles_active ON mentor_profiles(user_id) WHERE is_active;

CREATE TABLE IF NOT EXISTS mentee_profiles (
    user_id            TEXT PRIMARY KEY,
    industry           TEXT NOT NULL DEFAULT '',
    skills_to_improve  TEXT[] NOT NULL DEFAULT '{}',
    career_goals       TEXT[] NOT NULL DEFAULT '{}',
    personality_traits JSONB NOT NULL DEFAULT '{}'::jsonb,
    experience_years   INTEGER,
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_mentee_experience CHECK (experience_years IS NULL OR experience_years >= 0)
);
`

const migration001Down = `
DROP TABLE IF EXISTS mentee_profiles;
DROP TABLE IF EXISTS mentor_profiles;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS mentorships (
    id                  TEXT PRIMARY KEY,
    mentor_id           TEXT NOT NULL,
    mentee_id           TEXT NOT NULL,
    status              TEXT NOT NULL,
    compatibility_score INTEGER NOT NULL,
    focus_areas         TEXT[] NOT NULL DEFAULT '{}',
    goals               JSONB NOT NULL DEFAULT '[]'::jsonb,
    meetings            JSONB NOT NULL DEFAULT '[]'::jsonb,
    feedback            JSONB,
    message             TEXT NOT NULL DEFAULT '',
    cancel_reason       TEXT NOT NULL DEFAULT '',
    start_date          TIMESTAMPTZ,
    end_date            TIMESTAMPTZ,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    version             INTEGER NOT NULL DEFAULT 1,

    CONSTRAINT valid_status CHECK (status IN ('pending', 'active', 'completed', 'declined', 'cancelled')),
    CONSTRAINT valid_score CHECK (compatibility_score BETWEEN 0 AND 100),
    CONSTRAINT distinct_participants CHECK (mentor_id <> mentee_id)
);

-- at most one open mentorship per pair
CREATE UNIQUE INDEX IF NOT EXISTS mentorships_open_pair
    ON mentorships(mentor_id, mentee_id) WHERE status IN ('pending', 'active');

CREATE INDEX IF NOT EXISTS idx_mentorships_mentor_status ON mentorships(mentor_id, status);
CREATE INDEX IF NOT EXISTS idx_mentorships_mentee_created ON mentorships(mentee_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_mentorships_mentor_created ON mentorships(mentor_id, created_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS mentorships;
`

const migration003Up = `
ALTER TABLE mentor_profiles ADD COLUMN IF NOT EXISTS version INTEGER NOT NULL DEFAULT 1;
`

const migration003Down = `
ALTER TABLE mentor_profiles DROP COLUMN IF EXISTS version;
`
