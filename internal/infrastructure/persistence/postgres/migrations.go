package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

// Migrator applies embedded migrations and records them in schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a migrator with the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	_, err := m.conn.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, m.tableName))
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]bool, error) {
	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT version FROM %s", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if applied[mig.Version] {
			continue
		}
		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName),
				mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d (%s): %w", ErrMigrationFailed, mig.Version, mig.Name, err)
		}
	}
	return nil
}

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_accounts", UpSQL: migration001Up},
		{Version: 2, Name: "create_courses", UpSQL: migration002Up},
		{Version: 3, Name: "create_enrollments", UpSQL: migration003Up},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: ACCOUNTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS accounts (
    id                UUID PRIMARY KEY,
    name              VARCHAR(100) NOT NULL,
    email             VARCHAR(255) NOT NULL,
    password_hash     TEXT NOT NULL DEFAULT '',
    role              VARCHAR(20) NOT NULL,
    status            VARCHAR(20) NOT NULL,
    points            BIGINT NOT NULL DEFAULT 0,
    level             BIGINT GENERATED ALWAYS AS (points / 1000 + 1) STORED,
    badges            JSONB NOT NULL DEFAULT '[]'::jsonb,
    courses_completed INTEGER NOT NULL DEFAULT 0,
    bio               TEXT NOT NULL DEFAULT '',
    specialty         TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT accounts_email_key UNIQUE (email),
    CONSTRAINT accounts_valid_role CHECK (role IN ('student', 'instructor', 'admin')),
    CONSTRAINT accounts_valid_status CHECK (status IN ('pending', 'active', 'rejected')),
    CONSTRAINT accounts_valid_points CHECK (points >= 0),
    CONSTRAINT accounts_valid_courses_completed CHECK (courses_completed >= 0)
);

CREATE INDEX IF NOT EXISTS idx_accounts_role_points ON accounts(role, points DESC);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: COURSES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS courses (
    id               UUID PRIMARY KEY,
    title            VARCHAR(200) NOT NULL,
    category         VARCHAR(100) NOT NULL DEFAULT '',
    instructor_id    UUID REFERENCES accounts(id) ON DELETE SET NULL,
    enrollment_count INTEGER NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT courses_valid_enrollment_count CHECK (enrollment_count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_courses_instructor ON courses(instructor_id);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS enrollments (
    id                UUID PRIMARY KEY,
    account_id        UUID NOT NULL REFERENCES accounts(id),
    course_id         UUID NOT NULL REFERENCES courses(id),
    status            VARCHAR(20) NOT NULL DEFAULT 'pending',
    progress          DOUBLE PRECISION NOT NULL DEFAULT 0,
    completed_modules TEXT[] NOT NULL DEFAULT '{}',
    time_spent        BIGINT NOT NULL DEFAULT 0,
    average_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
    quizzes_taken     INTEGER NOT NULL DEFAULT 0,
    quizzes_passed    INTEGER NOT NULL DEFAULT 0,
    enrolled_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at      TIMESTAMPTZ,
    last_accessed     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    rewarded_at       TIMESTAMPTZ,
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT enrollments_account_course_key UNIQUE (account_id, course_id),
    CONSTRAINT enrollments_valid_status CHECK (status IN ('pending', 'active', 'completed', 'dropped', 'suspended', 'rejected')),
    CONSTRAINT enrollments_valid_progress CHECK (progress >= 0 AND progress <= 100),
    CONSTRAINT enrollments_valid_time_spent CHECK (time_spent >= 0),
    CONSTRAINT enrollments_completed_at_matches_status CHECK ((status = 'completed') = (completed_at IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_enrollments_account ON enrollments(account_id, enrolled_at DESC);
CREATE INDEX IF NOT EXISTS idx_enrollments_pending ON enrollments(enrolled_at) WHERE status = 'pending';
`
