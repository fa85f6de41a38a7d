package persistence

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	// BookingStatusConfirmed marks an active booking occupying its slot.
	BookingStatusConfirmed BookingStatus = "confirmed"
	// BookingStatusCancelled marks a booking released before its start.
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Room represents a meeting room catalog entry.
type Room struct {
	ID        string
	Name      string
	Capacity  int
	Floor     int
	Amenities []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Booking represents a reserved time slot on a room.
type Booking struct {
	ID             string
	RoomID         string
	Title          string
	OrganizerEmail string
	Start          time.Time
	End            time.Time
	Status         BookingStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IdempotencyState enumerates the states of an idempotency record.
type IdempotencyState string

const (
	// IdempotencyStateLocked marks a key whose operation is still executing.
	IdempotencyStateLocked IdempotencyState = "locked"
	// IdempotencyStateCompleted marks a key with a cached outcome.
	IdempotencyStateCompleted IdempotencyState = "completed"
)

// IdempotencyRecord stores the outcome of a keyed create operation so retries
// replay the original response instead of re-running business logic.
type IdempotencyRecord struct {
	Key                string
	State              IdempotencyState
	ResponseCode       int
	ResponseBody       []byte
	RequestFingerprint string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
