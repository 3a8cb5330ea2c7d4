// Package postgres provides PostgreSQL repository implementations.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrateOptions shape the parts of the schema that depend on deployment
// policy.
type MigrateOptions struct {
	// AllowRevoteAfterInvalidation controls the uniqueness guarantee on
	// (election_id, voter_id). The partial index over non-invalidated votes is
	// always created; the full index is added only when re-voting after
	// invalidation is disallowed, so the database enforces the stricter policy
	// rather than application code.
	AllowRevoteAfterInvalidation bool
}

// Migrations returns all database migrations in order.
func Migrations(opts MigrateOptions) []Migration {
	migrations := []Migration{
		{
			Version:     1,
			Description: "Create elections table",
			SQL: `CREATE TABLE IF NOT EXISTS elections (
				id UUID PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'draft',
				start_date TIMESTAMP NOT NULL,
				end_date TIMESTAMP NOT NULL,
				candidate_ids JSONB NOT NULL DEFAULT '[]',
				allow_write_in BOOLEAN NOT NULL DEFAULT FALSE,
				total_registered_voters INT NOT NULL DEFAULT 0,
				votes_cast INT NOT NULL DEFAULT 0,
				results JSONB,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     2,
			Description: "Create candidates table",
			SQL: `CREATE TABLE IF NOT EXISTS candidates (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				election_ids JSONB NOT NULL DEFAULT '[]',
				total_votes INT NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     3,
			Description: "Create voters table",
			SQL: `CREATE TABLE IF NOT EXISTS voters (
				id VARCHAR(255) PRIMARY KEY,
				eligible BOOLEAN NOT NULL DEFAULT FALSE,
				age INT NOT NULL DEFAULT 0,
				registered BOOLEAN NOT NULL DEFAULT FALSE,
				role VARCHAR(50) NOT NULL DEFAULT 'voter',
				voted_elections JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     4,
			Description: "Create votes table",
			SQL: `CREATE TABLE IF NOT EXISTS votes (
				id UUID PRIMARY KEY,
				election_id UUID NOT NULL REFERENCES elections(id),
				voter_id VARCHAR(255) NOT NULL,
				anonymized BOOLEAN NOT NULL DEFAULT FALSE,
				candidate_id VARCHAR(255),
				write_in JSONB,
				sealed JSONB,
				receipt_hash VARCHAR(64) NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'cast',
				validation_checks JSONB NOT NULL DEFAULT '[]',
				audit_trail JSONB NOT NULL DEFAULT '[]',
				challenges JSONB NOT NULL DEFAULT '[]',
				session JSONB,
				voted_at TIMESTAMP NOT NULL,
				counted_at TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
				version INT NOT NULL DEFAULT 1
			)`,
		},
		{
			Version:     5,
			Description: "Create votes uniqueness and lookup indexes",
			// The partial unique index is the double-vote guarantee: the
			// pre-insert eligibility check is only an optimization on top.
			SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uniq_votes_active_pair
					ON votes(election_id, voter_id) WHERE status <> 'invalidated';
				  CREATE INDEX IF NOT EXISTS idx_votes_election ON votes(election_id);
				  CREATE INDEX IF NOT EXISTS idx_votes_voter ON votes(voter_id);
				  CREATE INDEX IF NOT EXISTS idx_votes_status ON votes(election_id, status)`,
		},
		{
			Version:     6,
			Description: "Create audit_log table",
			SQL: `CREATE TABLE IF NOT EXISTS audit_log (
				id UUID PRIMARY KEY,
				timestamp TIMESTAMP NOT NULL,
				action VARCHAR(100) NOT NULL,
				category VARCHAR(50) NOT NULL,
				entity_type VARCHAR(100),
				entity_id VARCHAR(255),
				actor_id VARCHAR(255) NOT NULL,
				actor JSONB NOT NULL,
				request JSONB,
				detail TEXT,
				risk_level VARCHAR(20) NOT NULL DEFAULT 'low',
				requires_review BOOLEAN NOT NULL DEFAULT FALSE,
				is_suspicious BOOLEAN NOT NULL DEFAULT FALSE,
				security JSONB NOT NULL,
				compliance JSONB NOT NULL,
				scheduled_for_deletion TIMESTAMP NOT NULL,
				checksum VARCHAR(64) NOT NULL,
				metadata JSONB,
				deleted BOOLEAN NOT NULL DEFAULT FALSE
			)`,
		},
		{
			Version:     7,
			Description: "Create audit_log indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);
				  CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
				  CREATE INDEX IF NOT EXISTS idx_audit_log_category ON audit_log(category);
				  CREATE INDEX IF NOT EXISTS idx_audit_log_actor ON audit_log(actor_id);
				  CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id);
				  CREATE INDEX IF NOT EXISTS idx_audit_log_review ON audit_log(requires_review) WHERE requires_review;
				  CREATE INDEX IF NOT EXISTS idx_audit_log_retention ON audit_log(scheduled_for_deletion) WHERE NOT deleted`,
		},
		{
			Version:     8,
			Description: "Create migrations tracking table",
			SQL: `CREATE TABLE IF NOT EXISTS schema_migrations (
				version INT PRIMARY KEY,
				applied_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
	}

	if !opts.AllowRevoteAfterInvalidation {
		migrations = append(migrations, Migration{
			Version:     9,
			Description: "Enforce one vote per voter per election including invalidated",
			SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uniq_votes_pair
					ON votes(election_id, voter_id)`,
		})
	}

	return migrations
}

// RunMigrations executes all pending migrations.
func RunMigrations(ctx context.Context, db *sql.DB, opts MigrateOptions) error {
	// Ensure schema_migrations table exists
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	migrations := Migrations(opts)
	for _, m := range migrations {
		// Check if migration already applied
		var exists bool
		err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}

		if exists {
			continue
		}

		// Apply migration
		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		// Record migration
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// CurrentVersion returns the current schema version.
func CurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}
