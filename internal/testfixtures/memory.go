package testfixtures

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/persistence"
)

// MemoryStore is an in-memory implementation of the persistence repositories,
// honouring the same sentinel errors and atomicity contracts as the SQLite
// implementations. It backs application and handler tests.
type MemoryStore struct {
	mu          sync.Mutex
	rooms       map[string]persistence.Room
	bookings    map[string]persistence.Booking
	idempotency map[string]persistence.IdempotencyRecord
}

var (
	_ persistence.RoomRepository        = (*MemoryStore)(nil)
	_ persistence.BookingRepository     = (*MemoryStore)(nil)
	_ persistence.IdempotencyRepository = (*MemoryStore)(nil)
)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:       make(map[string]persistence.Room),
		bookings:    make(map[string]persistence.Booking),
		idempotency: make(map[string]persistence.IdempotencyRecord),
	}
}

// SeedRoom inserts a room directly, bypassing validation.
func (s *MemoryStore) SeedRoom(room persistence.Room) {
	s.mu.Lock()
	s.rooms[room.ID] = room
	s.mu.Unlock()
}

// SeedBooking inserts a booking directly, bypassing the overlap check.
func (s *MemoryStore) SeedBooking(b persistence.Booking) {
	s.mu.Lock()
	s.bookings[b.ID] = b
	s.mu.Unlock()
}

// CreateRoom stores a room, rejecting case-insensitive name duplicates.
func (s *MemoryStore) CreateRoom(ctx context.Context, room persistence.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rooms {
		if strings.EqualFold(existing.Name, room.Name) {
			return persistence.ErrDuplicate
		}
	}
	s.rooms[room.ID] = room
	return nil
}

// GetRoom fetches a room by ID.
func (s *MemoryStore) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

// GetRoomByName fetches a room by case-insensitive name.
func (s *MemoryStore) GetRoomByName(ctx context.Context, name string) (persistence.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if strings.EqualFold(room.Name, name) {
			return room, nil
		}
	}
	return persistence.Room{}, persistence.ErrNotFound
}

// ListRooms returns rooms matching the filter, ordered by name.
func (s *MemoryStore) ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]persistence.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := make([]persistence.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if filter.MinCapacity > 0 && room.Capacity < filter.MinCapacity {
			continue
		}
		if filter.Amenity != "" && !containsFold(room.Amenities, filter.Amenity) {
			continue
		}
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		return strings.ToLower(rooms[i].Name) < strings.ToLower(rooms[j].Name)
	})
	return rooms, nil
}

// CreateBooking stores a booking after re-checking the no-overlap invariant
// under the store lock.
func (s *MemoryStore) CreateBooking(ctx context.Context, b persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.bookings {
		if existing.RoomID != b.RoomID || existing.Status != persistence.BookingStatusConfirmed {
			continue
		}
		if booking.Overlaps(b.Start, b.End, existing.Start, existing.End) {
			return persistence.ErrConflict
		}
	}
	s.bookings[b.ID] = b
	return nil
}

// GetBooking fetches a booking by ID.
func (s *MemoryStore) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return b, nil
}

// FindOverlapping returns the earliest confirmed booking on the room whose
// interval intersects [start, end), or persistence.ErrNotFound.
func (s *MemoryStore) FindOverlapping(ctx context.Context, roomID string, start, end time.Time) (persistence.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		found persistence.Booking
		ok    bool
	)
	for _, b := range s.bookings {
		if b.RoomID != roomID || b.Status != persistence.BookingStatusConfirmed {
			continue
		}
		if !booking.Overlaps(start, end, b.Start, b.End) {
			continue
		}
		if !ok || b.Start.Before(found.Start) {
			found = b
			ok = true
		}
	}
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return found, nil
}

// ListBookings returns a page of bookings matching the filter, newest start
// first, together with the total match count.
func (s *MemoryStore) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]persistence.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		if filter.RoomID != "" && b.RoomID != filter.RoomID {
			continue
		}
		if filter.From != nil && b.End.Before(*filter.From) {
			continue
		}
		if filter.To != nil && b.Start.After(*filter.To) {
			continue
		}
		matches = append(matches, b)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Start.After(matches[j].Start)
	})

	total := len(matches)
	if filter.Offset >= len(matches) {
		return []persistence.Booking{}, total, nil
	}
	matches = matches[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matches) {
		matches = matches[:filter.Limit]
	}
	return matches, total, nil
}

// ListConfirmedInRange returns confirmed bookings intersecting [start, end),
// ordered by start time.
func (s *MemoryStore) ListConfirmedInRange(ctx context.Context, start, end time.Time) ([]persistence.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]persistence.Booking, 0)
	for _, b := range s.bookings {
		if b.Status != persistence.BookingStatusConfirmed {
			continue
		}
		if booking.Overlaps(start, end, b.Start, b.End) {
			matches = append(matches, b)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Start.Before(matches[j].Start)
	})
	return matches, nil
}

// UpdateBookingStatus sets the booking status and returns the updated record.
func (s *MemoryStore) UpdateBookingStatus(ctx context.Context, id string, status persistence.BookingStatus, updatedAt time.Time) (persistence.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	b.Status = status
	b.UpdatedAt = updatedAt
	s.bookings[id] = b
	return b, nil
}

// GetRecord fetches the idempotency record for the key.
func (s *MemoryStore) GetRecord(ctx context.Context, key string) (persistence.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idempotency[key]
	if !ok {
		return persistence.IdempotencyRecord{}, persistence.ErrNotFound
	}
	return rec, nil
}

// TryLock creates a locked record for the key, returning false when it exists.
func (s *MemoryStore) TryLock(ctx context.Context, key, fingerprint string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idempotency[key]; ok {
		return false, nil
	}
	s.idempotency[key] = persistence.IdempotencyRecord{
		Key:                key,
		State:              persistence.IdempotencyStateLocked,
		RequestFingerprint: fingerprint,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return true, nil
}

// Complete transitions a locked record to completed with the cached outcome.
func (s *MemoryStore) Complete(ctx context.Context, key string, code int, body []byte, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idempotency[key]
	if !ok || rec.State != persistence.IdempotencyStateLocked {
		return persistence.ErrNotFound
	}
	rec.State = persistence.IdempotencyStateCompleted
	rec.ResponseCode = code
	rec.ResponseBody = append([]byte(nil), body...)
	rec.UpdatedAt = now
	s.idempotency[key] = rec
	return nil
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
