package persistence

import (
	"context"
	"time"
)

// RoomFilter narrows room catalog queries.
type RoomFilter struct {
	MinCapacity int
	// Amenity, when non-empty, restricts results to rooms carrying the
	// amenity (matched case-insensitively).
	Amenity string
}

// RoomRepository stores the meeting room catalog.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	GetRoomByName(ctx context.Context, name string) (Room, error)
	ListRooms(ctx context.Context, filter RoomFilter) ([]Room, error)
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	RoomID string
	// From keeps bookings ending at or after this instant.
	From *time.Time
	// To keeps bookings starting at or before this instant.
	To     *time.Time
	Limit  int
	Offset int
}

// BookingRepository stores bookings and answers overlap queries.
type BookingRepository interface {
	// CreateBooking persists a confirmed booking. Implementations must
	// re-check the no-overlap invariant atomically with the insert and
	// return ErrConflict when another confirmed booking occupies any part
	// of the slot.
	CreateBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	// FindOverlapping returns a confirmed booking on the room whose
	// half-open interval intersects [start, end), or ErrNotFound.
	FindOverlapping(ctx context.Context, roomID string, start, end time.Time) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, int, error)
	// ListConfirmedInRange returns confirmed bookings intersecting [start, end).
	ListConfirmedInRange(ctx context.Context, start, end time.Time) ([]Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status BookingStatus, updatedAt time.Time) (Booking, error)
}

// IdempotencyRepository stores per-key operation outcomes.
type IdempotencyRepository interface {
	GetRecord(ctx context.Context, key string) (IdempotencyRecord, error)
	// TryLock atomically creates a locked record for the key. It returns
	// false without error when the key already exists; exactly one caller
	// ever observes true for a given key.
	TryLock(ctx context.Context, key, fingerprint string, now time.Time) (bool, error)
	// Complete transitions a locked record to completed, storing the
	// response outcome.
	Complete(ctx context.Context, key string, code int, body []byte, now time.Time) error
}
