package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLExecutor applies migrations against a database/sql handle, tracking
// applied versions in the schema_migrations table.
type SQLExecutor struct {
	db *sql.DB
}

// NewSQLExecutor creates an executor bound to the database handle.
func NewSQLExecutor(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// InitializeVersionTable creates the schema_migrations table if absent.
func (e *SQLExecutor) InitializeVersionTable(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			execution_time_ms INTEGER NOT NULL,
			checksum TEXT NOT NULL
		)
	`
	if _, err := e.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// ExecuteMigration runs a single migration inside a transaction.
func (e *SQLExecutor) ExecuteMigration(ctx context.Context, m Migration) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return newError(m.Version, m.Path, "begin", err)
	}
	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return newError(m.Version, m.Path, "execute", fmt.Errorf("%w (rollback error: %v)", err, rbErr))
		}
		return newError(m.Version, m.Path, "execute", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
	}
	if err := tx.Commit(); err != nil {
		return newError(m.Version, m.Path, "commit", err)
	}
	return nil
}

// RecordMigration inserts the applied migration into the version table.
func (e *SQLExecutor) RecordMigration(ctx context.Context, m Migration, executionTime time.Duration) error {
	const query = `
		INSERT INTO schema_migrations (version, applied_at, execution_time_ms, checksum)
		VALUES (?, ?, ?, ?)
	`
	_, err := e.db.ExecContext(ctx, query,
		m.Version,
		time.Now().UTC().Format(time.RFC3339),
		executionTime.Milliseconds(),
		m.Checksum,
	)
	if err != nil {
		return newError(m.Version, m.Path, "record", err)
	}
	return nil
}

// AppliedVersions returns all applied migrations ordered by version.
func (e *SQLExecutor) AppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	const query = `
		SELECT version, applied_at, execution_time_ms, checksum
		FROM schema_migrations
		ORDER BY version ASC
	`
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var entry AppliedMigration
		var appliedAt string
		var executionMillis int64
		if err := rows.Scan(&entry.Version, &appliedAt, &executionMillis, &entry.Checksum); err != nil {
			return nil, fmt.Errorf("failed to scan schema_migrations row: %w", err)
		}
		if entry.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, fmt.Errorf("failed to parse applied_at: %w", err)
		}
		entry.ExecutionTime = time.Duration(executionMillis) * time.Millisecond
		applied = append(applied, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schema_migrations rows: %w", err)
	}
	return applied, nil
}
