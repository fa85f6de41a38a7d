// Package sqlite implements the persistence contracts on SQLite via the
// cgo-free modernc.org/sqlite driver. Timestamps are stored as UTC RFC3339
// text; room amenities are serialized as a JSON array at this boundary.
package sqlite

import (
	"context"
	"embed"
	"log/slog"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var (
	_ persistence.RoomRepository        = (*RoomRepository)(nil)
	_ persistence.BookingRepository     = (*BookingRepository)(nil)
	_ persistence.IdempotencyRepository = (*IdempotencyRepository)(nil)
)

// Store bundles the connection pool with the repositories built on it.
type Store struct {
	pool *ConnectionPool

	Rooms       *RoomRepository
	Bookings    *BookingRepository
	Idempotency *IdempotencyRepository
}

// Open creates a store for the DSN using default connection settings.
func Open(dsn string) (*Store, error) {
	pool, err := NewConnectionPool(migration.DefaultConfig(dsn))
	if err != nil {
		return nil, err
	}
	return &Store{
		pool:        pool,
		Rooms:       NewRoomRepository(pool),
		Bookings:    NewBookingRepository(pool),
		Idempotency: NewIdempotencyRepository(pool),
	}, nil
}

// Migrate applies all pending embedded schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) error {
	manager := migration.NewManager(
		migration.NewFSScanner(migrationFiles, "migrations"),
		migration.NewSQLExecutor(s.pool.DB()),
		logger,
	)
	return manager.Run(ctx)
}

// Ping tests the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
