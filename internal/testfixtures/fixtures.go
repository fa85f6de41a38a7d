package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

var (
	roomCounter    uint64
	bookingCounter uint64
)

// referenceTime is a Monday at 09:00 UTC, comfortably inside the bookable
// business window.
var referenceTime = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceMonday returns the canonical Monday at midnight UTC.
func ReferenceMonday() time.Time {
	return time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic meeting room record.
type RoomFixture struct {
	ID        string
	Name      string
	Capacity  int
	Floor     int
	Amenities []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:        id,
		Name:      fmt.Sprintf("Room %03d", idx),
		Capacity:  int(4 + idx%4),
		Floor:     int(idx % 3),
		Amenities: []string{"whiteboard"},
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomFloor overrides the generated floor.
func WithRoomFloor(floor int) RoomOption {
	return func(f *RoomFixture) {
		f.Floor = floor
	}
}

// WithRoomAmenities sets the amenities on the fixture.
func WithRoomAmenities(amenities ...string) RoomOption {
	return func(f *RoomFixture) {
		f.Amenities = append([]string(nil), amenities...)
	}
}

// WithRoomTimestamps sets both created and updated timestamps.
func WithRoomTimestamps(created, updated time.Time) RoomOption {
	return func(f *RoomFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:        f.ID,
		Name:      f.Name,
		Capacity:  f.Capacity,
		Floor:     f.Floor,
		Amenities: append([]string(nil), f.Amenities...),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{
		Name:      f.Name,
		Capacity:  f.Capacity,
		Floor:     f.Floor,
		Amenities: append([]string(nil), f.Amenities...),
	}
}

// ---------------------------- Booking fixtures ---------------------------

// BookingFixture represents a deterministic booking record. Slots are placed
// on successive weekday mornings so generated fixtures never collide.
type BookingFixture struct {
	ID             string
	RoomID         string
	Title          string
	OrganizerEmail string
	Start          time.Time
	End            time.Time
	Status         persistence.BookingStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a deterministic booking fixture with optional overrides.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	id := fmt.Sprintf("booking-%03d", idx)
	// One-hour morning slots on the reference Monday, walking forward a day
	// per fixture within the work week.
	day := ReferenceMonday().AddDate(0, 0, int((idx-1)%5))
	start := day.Add(9 * time.Hour)
	fixture := BookingFixture{
		ID:             id,
		RoomID:         fmt.Sprintf("room-%03d", idx),
		Title:          fmt.Sprintf("Meeting %03d", idx),
		OrganizerEmail: fmt.Sprintf("organizer-%03d@example.com", idx),
		Start:          start,
		End:            start.Add(time.Hour),
		Status:         persistence.BookingStatusConfirmed,
		CreatedAt:      referenceTime,
		UpdatedAt:      referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingRoomID sets the room the booking occupies.
func WithBookingRoomID(roomID string) BookingOption {
	return func(f *BookingFixture) {
		f.RoomID = roomID
	}
}

// WithBookingTitle overrides the title.
func WithBookingTitle(title string) BookingOption {
	return func(f *BookingFixture) {
		f.Title = title
	}
}

// WithBookingOrganizer sets the organizer email.
func WithBookingOrganizer(email string) BookingOption {
	return func(f *BookingFixture) {
		f.OrganizerEmail = email
	}
}

// WithBookingSlot sets the start and end times.
func WithBookingSlot(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithBookingStatus sets the booking status.
func WithBookingStatus(status persistence.BookingStatus) BookingOption {
	return func(f *BookingFixture) {
		f.Status = status
	}
}

// WithBookingTimestamps sets both created and updated timestamps.
func WithBookingTimestamps(created, updated time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Persistence returns the fixture as a persistence.Booking value.
func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		ID:             f.ID,
		RoomID:         f.RoomID,
		Title:          f.Title,
		OrganizerEmail: f.OrganizerEmail,
		Start:          f.Start,
		End:            f.End,
		Status:         f.Status,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Input returns the fixture as an application.BookingInput with RFC3339
// timestamps.
func (f BookingFixture) Input() application.BookingInput {
	return application.BookingInput{
		RoomID:         f.RoomID,
		Title:          f.Title,
		OrganizerEmail: f.OrganizerEmail,
		StartTime:      f.Start.UTC().Format(time.RFC3339),
		EndTime:        f.End.UTC().Format(time.RFC3339),
	}
}
