package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// IdempotencyRepository implements persistence.IdempotencyRepository on
// SQLite. The primary key on the key column makes TryLock atomic: only the
// caller whose INSERT succeeds observes true.
type IdempotencyRepository struct {
	pool *ConnectionPool
}

// NewIdempotencyRepository creates an idempotency repository backed by the pool.
func NewIdempotencyRepository(pool *ConnectionPool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// GetRecord fetches the record for the key.
func (r *IdempotencyRepository) GetRecord(ctx context.Context, key string) (persistence.IdempotencyRecord, error) {
	var (
		rec                persistence.IdempotencyRecord
		state              string
		code               sql.NullInt64
		body               sql.NullString
		createdAt, updated string
	)
	err := r.pool.DB().QueryRowContext(ctx,
		`SELECT key, state, response_code, response_body, request_fingerprint, created_at, updated_at
		 FROM idempotency_keys WHERE key = ?`, key).
		Scan(&rec.Key, &state, &code, &body, &rec.RequestFingerprint, &createdAt, &updated)
	if err == sql.ErrNoRows {
		return persistence.IdempotencyRecord{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.IdempotencyRecord{}, fmt.Errorf("failed to scan idempotency record: %w", err)
	}
	rec.State = persistence.IdempotencyState(state)
	if code.Valid {
		rec.ResponseCode = int(code.Int64)
	}
	if body.Valid {
		rec.ResponseBody = []byte(body.String)
	}
	if rec.CreatedAt, err = parseStoredTime("created_at", createdAt); err != nil {
		return persistence.IdempotencyRecord{}, err
	}
	if rec.UpdatedAt, err = parseStoredTime("updated_at", updated); err != nil {
		return persistence.IdempotencyRecord{}, err
	}
	return rec, nil
}

// TryLock creates a locked record for the key. It returns false when the key
// already exists.
func (r *IdempotencyRepository) TryLock(ctx context.Context, key, fingerprint string, now time.Time) (bool, error) {
	_, err := r.pool.DB().ExecContext(ctx,
		`INSERT INTO idempotency_keys (key, state, request_fingerprint, created_at, updated_at)
		 VALUES (?, 'locked', ?, ?, ?)`,
		key, fingerprint, formatTime(now), formatTime(now))
	if err != nil {
		if errors.Is(mapSQLiteError(err), persistence.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock idempotency key: %w", err)
	}
	return true, nil
}

// Complete transitions a locked record to completed with the cached outcome.
func (r *IdempotencyRepository) Complete(ctx context.Context, key string, code int, body []byte, now time.Time) error {
	result, err := r.pool.DB().ExecContext(ctx,
		`UPDATE idempotency_keys
		 SET state = 'completed', response_code = ?, response_body = ?, updated_at = ?
		 WHERE key = ? AND state = 'locked'`,
		code, string(body), formatTime(now), key)
	if err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read completion result: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
