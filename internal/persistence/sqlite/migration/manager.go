package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Manager orchestrates the migration process: scan, diff against applied
// versions, verify checksums, and execute what is pending in order.
type Manager struct {
	scanner  Scanner
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a migration manager.
func NewManager(scanner Scanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scanner: scanner, executor: executor, logger: logger}
}

// Run executes all pending migrations sequentially. Applied migrations whose
// file checksum has changed abort the run.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	migrations, err := m.scanner.ScanMigrations()
	if err != nil {
		return fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := m.executor.AppliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load applied versions: %w", err)
	}
	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, entry := range applied {
		appliedByVersion[entry.Version] = entry
	}

	pending := make([]Migration, 0, len(migrations))
	for _, migration := range migrations {
		if prior, ok := appliedByVersion[migration.Version]; ok {
			if prior.Checksum != "" && prior.Checksum != migration.Checksum {
				return newError(migration.Version, migration.Path, "verify", ErrChecksumMismatch)
			}
			continue
		}
		pending = append(pending, migration)
	}

	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date", "applied_count", len(applied))
		return nil
	}

	for _, migration := range pending {
		started := time.Now()
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
		)
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			return err
		}
		if err := m.executor.RecordMigration(ctx, migration, time.Since(started)); err != nil {
			return err
		}
	}

	m.logger.InfoContext(ctx, "migrations complete", "applied_count", len(pending))
	return nil
}
