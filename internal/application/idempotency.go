package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// IdempotencyStore captures the persistence operations the coordinator needs.
type IdempotencyStore interface {
	GetRecord(ctx context.Context, key string) (persistence.IdempotencyRecord, error)
	TryLock(ctx context.Context, key, fingerprint string, now time.Time) (bool, error)
	Complete(ctx context.Context, key string, code int, body []byte, now time.Time) error
}

// BeginState describes what the coordinator found for a key.
type BeginState int

const (
	// BeginFresh means this caller owns the key and must run the operation.
	BeginFresh BeginState = iota
	// BeginInProgress means another execution holds the key; the caller
	// must report a conflict without running the operation.
	BeginInProgress
	// BeginCompleted means a cached outcome exists and must be replayed
	// verbatim.
	BeginCompleted
)

// BeginResult carries the coordinator's verdict for a key. Code and Body are
// populated only when State is BeginCompleted.
type BeginResult struct {
	State BeginState
	Code  int
	Body  []byte
}

// IdempotencyCoordinator gives keyed create operations at-most-once
// semantics. Exactly one caller observes BeginFresh for a key; every other
// caller sees the in-progress or completed state.
type IdempotencyCoordinator struct {
	store  IdempotencyStore
	now    func() time.Time
	logger *slog.Logger
}

// NewIdempotencyCoordinator wires the coordinator's dependencies.
func NewIdempotencyCoordinator(store IdempotencyStore, now func() time.Time) *IdempotencyCoordinator {
	return NewIdempotencyCoordinatorWithLogger(store, now, nil)
}

// NewIdempotencyCoordinatorWithLogger constructs a coordinator with a specified logger.
func NewIdempotencyCoordinatorWithLogger(store IdempotencyStore, now func() time.Time, logger *slog.Logger) *IdempotencyCoordinator {
	if now == nil {
		now = time.Now
	}
	return &IdempotencyCoordinator{store: store, now: now, logger: defaultLogger(logger)}
}

// Begin resolves the state of key. When no record exists it atomically
// creates a locked one and reports BeginFresh; the first writer wins and
// losers observe BeginInProgress. The fingerprint identifies the request
// payload: a replay carrying a different fingerprint is logged as key misuse
// but still replays the stored outcome, per the replay contract.
func (c *IdempotencyCoordinator) Begin(ctx context.Context, key, fingerprint string) (BeginResult, error) {
	if c == nil {
		return BeginResult{}, fmt.Errorf("IdempotencyCoordinator is nil")
	}
	logger := serviceLogger(ctx, c.logger, "IdempotencyCoordinator", "Begin", "idempotency_key", key)

	record, err := c.store.GetRecord(ctx, key)
	switch {
	case err == nil:
		return c.resolve(ctx, logger, record, fingerprint)
	case errors.Is(err, persistence.ErrNotFound):
		// Fall through to the lock attempt.
	default:
		return BeginResult{}, internalError("idempotency lookup failed", err)
	}

	locked, err := c.store.TryLock(ctx, key, fingerprint, c.now())
	if err != nil {
		return BeginResult{}, internalError("idempotency lock failed", err)
	}
	if locked {
		return BeginResult{State: BeginFresh}, nil
	}

	// Lost the creation race; the record now exists in some state.
	record, err = c.store.GetRecord(ctx, key)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return BeginResult{State: BeginInProgress}, nil
		}
		return BeginResult{}, internalError("idempotency lookup failed", err)
	}
	return c.resolve(ctx, logger, record, fingerprint)
}

func (c *IdempotencyCoordinator) resolve(ctx context.Context, logger *slog.Logger, record persistence.IdempotencyRecord, fingerprint string) (BeginResult, error) {
	if fingerprint != "" && record.RequestFingerprint != "" && record.RequestFingerprint != fingerprint {
		logger.WarnContext(ctx, "idempotency key reused with a different payload")
	}
	if record.State == persistence.IdempotencyStateLocked {
		return BeginResult{State: BeginInProgress}, nil
	}
	return BeginResult{State: BeginCompleted, Code: record.ResponseCode, Body: record.ResponseBody}, nil
}

// Complete transitions the key from locked to completed, caching the outcome.
// Failure outcomes are cached too, so a retried failure replays identically.
func (c *IdempotencyCoordinator) Complete(ctx context.Context, key string, code int, body []byte) error {
	if c == nil {
		return fmt.Errorf("IdempotencyCoordinator is nil")
	}
	if err := c.store.Complete(ctx, key, code, body, c.now()); err != nil {
		return internalError("failed to record idempotency outcome", err)
	}
	return nil
}
