package application

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

type idempotencyStoreStub struct {
	records map[string]persistence.IdempotencyRecord

	getErr      error
	lockErr     error
	lockRefused bool
	completeErr error
}

func newIdempotencyStoreStub() *idempotencyStoreStub {
	return &idempotencyStoreStub{records: map[string]persistence.IdempotencyRecord{}}
}

func (s *idempotencyStoreStub) GetRecord(ctx context.Context, key string) (persistence.IdempotencyRecord, error) {
	if s.getErr != nil {
		return persistence.IdempotencyRecord{}, s.getErr
	}
	rec, ok := s.records[key]
	if !ok {
		return persistence.IdempotencyRecord{}, persistence.ErrNotFound
	}
	return rec, nil
}

func (s *idempotencyStoreStub) TryLock(ctx context.Context, key, fingerprint string, now time.Time) (bool, error) {
	if s.lockErr != nil {
		return false, s.lockErr
	}
	if s.lockRefused {
		return false, nil
	}
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = persistence.IdempotencyRecord{
		Key:                key,
		State:              persistence.IdempotencyStateLocked,
		RequestFingerprint: fingerprint,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return true, nil
}

func (s *idempotencyStoreStub) Complete(ctx context.Context, key string, code int, body []byte, now time.Time) error {
	if s.completeErr != nil {
		return s.completeErr
	}
	rec := s.records[key]
	rec.Key = key
	rec.State = persistence.IdempotencyStateCompleted
	rec.ResponseCode = code
	rec.ResponseBody = body
	rec.UpdatedAt = now
	s.records[key] = rec
	return nil
}

func newCoordinator(store IdempotencyStore) *IdempotencyCoordinator {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	return NewIdempotencyCoordinator(store, func() time.Time { return now })
}

func TestIdempotencyFreshKey(t *testing.T) {
	store := newIdempotencyStoreStub()
	coordinator := newCoordinator(store)

	result, err := coordinator.Begin(context.Background(), "key-1", "fp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != BeginFresh {
		t.Fatalf("state = %v, want BeginFresh", result.State)
	}
	if store.records["key-1"].State != persistence.IdempotencyStateLocked {
		t.Fatalf("record should be locked after Begin")
	}
}

func TestIdempotencyInProgress(t *testing.T) {
	store := newIdempotencyStoreStub()
	coordinator := newCoordinator(store)

	if _, err := coordinator.Begin(context.Background(), "key-1", "fp-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := coordinator.Begin(context.Background(), "key-1", "fp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != BeginInProgress {
		t.Fatalf("state = %v, want BeginInProgress", result.State)
	}
}

func TestIdempotencyReplaysCompletedOutcome(t *testing.T) {
	store := newIdempotencyStoreStub()
	coordinator := newCoordinator(store)

	if _, err := coordinator.Begin(context.Background(), "key-1", "fp-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := []byte(`{"id":"booking-1"}`)
	if err := coordinator.Complete(context.Background(), "key-1", 201, body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := coordinator.Begin(context.Background(), "key-1", "fp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != BeginCompleted {
		t.Fatalf("state = %v, want BeginCompleted", result.State)
	}
	if result.Code != 201 || !bytes.Equal(result.Body, body) {
		t.Fatalf("cached outcome = %d %s", result.Code, result.Body)
	}
}

func TestIdempotencyReplaysCachedFailure(t *testing.T) {
	store := newIdempotencyStoreStub()
	coordinator := newCoordinator(store)

	if _, err := coordinator.Begin(context.Background(), "key-1", "fp-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := []byte(`{"error":"Room is already booked for this time slot"}`)
	if err := coordinator.Complete(context.Background(), "key-1", 409, body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := coordinator.Begin(context.Background(), "key-1", "fp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != BeginCompleted || result.Code != 409 {
		t.Fatalf("failure outcome should replay verbatim, got %+v", result)
	}
}

func TestIdempotencyLostCreationRace(t *testing.T) {
	// GetRecord misses, TryLock is refused, and the re-read finds the
	// winner's completed record.
	store := newIdempotencyStoreStub()
	store.lockRefused = true
	coordinator := newCoordinator(store)

	result, err := coordinator.Begin(context.Background(), "key-1", "fp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != BeginInProgress {
		t.Fatalf("state = %v, want BeginInProgress when the record vanished", result.State)
	}

	store.records["key-1"] = persistence.IdempotencyRecord{
		Key:          "key-1",
		State:        persistence.IdempotencyStateCompleted,
		ResponseCode: 201,
		ResponseBody: []byte(`{}`),
	}
	result, err = coordinator.Begin(context.Background(), "key-1", "fp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != BeginCompleted || result.Code != 201 {
		t.Fatalf("expected winner's outcome, got %+v", result)
	}
}

func TestIdempotencyFingerprintMismatchStillReplays(t *testing.T) {
	store := newIdempotencyStoreStub()
	coordinator := newCoordinator(store)

	if _, err := coordinator.Begin(context.Background(), "key-1", "fp-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := coordinator.Complete(context.Background(), "key-1", 201, []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A different payload under the same key is logged as misuse but the
	// stored outcome still wins.
	result, err := coordinator.Begin(context.Background(), "key-1", "fp-other")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != BeginCompleted || result.Code != 201 {
		t.Fatalf("expected cached outcome despite mismatch, got %+v", result)
	}
}
