package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/persistence"
)

// emailPattern accepts the minimal local@domain.tld shape. Full RFC 5322
// validation is deliberately out of scope.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// timestampLayouts are tried in order when parsing booking times. The second
// layout accepts timezone-less ISO-8601 input, which is read as UTC.
var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// DefaultCancelCutoff is how long before a booking's start cancellation closes.
const DefaultCancelCutoff = time.Hour

// BookingStore captures the persistence interactions needed by the service.
type BookingStore interface {
	CreateBooking(ctx context.Context, b persistence.Booking) error
	GetBooking(ctx context.Context, id string) (persistence.Booking, error)
	FindOverlapping(ctx context.Context, roomID string, start, end time.Time) (persistence.Booking, error)
	ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, int, error)
	UpdateBookingStatus(ctx context.Context, id string, status persistence.BookingStatus, updatedAt time.Time) (persistence.Booking, error)
}

// RoomDirectory exposes the room lookup the validator needs.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id string) (persistence.Room, error)
}

// BookingService orchestrates validation, conflict detection, and persistence
// for booking operations.
type BookingService struct {
	bookings     BookingStore
	rooms        RoomDirectory
	idGenerator  func() string
	now          func() time.Time
	cancelCutoff time.Duration
	onChange     func()
	logger       *slog.Logger
}

// NewBookingService wires dependencies for booking operations. A zero
// cancelCutoff falls back to DefaultCancelCutoff.
func NewBookingService(bookings BookingStore, rooms RoomDirectory, idGenerator func() string, now func() time.Time, cancelCutoff time.Duration) *BookingService {
	return NewBookingServiceWithLogger(bookings, rooms, idGenerator, now, cancelCutoff, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(bookings BookingStore, rooms RoomDirectory, idGenerator func() string, now func() time.Time, cancelCutoff time.Duration, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if cancelCutoff <= 0 {
		cancelCutoff = DefaultCancelCutoff
	}
	return &BookingService{
		bookings:     bookings,
		rooms:        rooms,
		idGenerator:  idGenerator,
		now:          now,
		cancelCutoff: cancelCutoff,
		logger:       defaultLogger(logger),
	}
}

// NotifyOnChange registers fn to run after a booking is created or cancelled.
// The report service hooks in here so cached utilization windows never
// outlive a write.
func (s *BookingService) NotifyOnChange(fn func()) {
	if s == nil {
		return
	}
	s.onChange = fn
}

func (s *BookingService) notifyChange() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking validates the candidate, rejects overlapping slots, and
// persists a confirmed booking. Checks run in a fixed order so the reported
// failure is deterministic.
func (s *BookingService) CreateBooking(ctx context.Context, input BookingInput) (created persistence.Booking, err error) {
	if s == nil {
		return persistence.Booking{}, fmt.Errorf("BookingService is nil")
	}

	logger := s.loggerWith(ctx, "CreateBooking", "room_id", input.RoomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", created.ID).InfoContext(ctx, "booking created")
	}()

	start, end, err := s.validate(ctx, input)
	if err != nil {
		return persistence.Booking{}, err
	}

	if _, err := s.bookings.FindOverlapping(ctx, input.RoomID, start, end); err == nil {
		return persistence.Booking{}, conflict("Room is already booked for this time slot")
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return persistence.Booking{}, internalError("overlap check failed", err)
	}

	now := s.now()
	candidate := persistence.Booking{
		ID:             s.idGenerator(),
		RoomID:         input.RoomID,
		Title:          strings.TrimSpace(input.Title),
		OrganizerEmail: strings.TrimSpace(input.OrganizerEmail),
		Start:          start,
		End:            end,
		Status:         persistence.BookingStatusConfirmed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.bookings.CreateBooking(ctx, candidate); err != nil {
		// The repository re-checks overlap inside its transaction; losing
		// that race surfaces as the same conflict the read path reports.
		if errors.Is(err, persistence.ErrConflict) {
			return persistence.Booking{}, conflict("Room is already booked for this time slot")
		}
		return persistence.Booking{}, internalError("failed to persist booking", err)
	}

	s.notifyChange()
	return candidate, nil
}

// validate applies the structural and business-hour rules in their fixed
// order and returns the parsed, UTC-normalized interval.
func (s *BookingService) validate(ctx context.Context, input BookingInput) (time.Time, time.Time, error) {
	if strings.TrimSpace(input.RoomID) == "" {
		return time.Time{}, time.Time{}, invalidInput(ReasonRoomIDRequired, "roomId is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return time.Time{}, time.Time{}, invalidInput(ReasonTitleRequired, "Booking title is required")
	}
	if !emailPattern.MatchString(strings.TrimSpace(input.OrganizerEmail)) {
		return time.Time{}, time.Time{}, invalidInput(ReasonEmailInvalid, "Valid organizerEmail is required")
	}
	if strings.TrimSpace(input.StartTime) == "" || strings.TrimSpace(input.EndTime) == "" {
		return time.Time{}, time.Time{}, invalidInput(ReasonTimesRequired, "startTime and endTime are required")
	}

	if _, err := s.rooms.GetRoom(ctx, input.RoomID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return time.Time{}, time.Time{}, notFound(fmt.Sprintf("Room with ID %s not found", input.RoomID))
		}
		return time.Time{}, time.Time{}, internalError("room lookup failed", err)
	}

	start, err := parseTimestamp(input.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, invalidInput(ReasonStartUnparseable, "Invalid startTime format (ISO 8601 expected)")
	}
	end, err := parseTimestamp(input.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, invalidInput(ReasonEndUnparseable, "Invalid endTime format (ISO 8601 expected)")
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, invalidInput(ReasonTimeOrder, "startTime must be strictly before endTime")
	}

	duration := end.Sub(start)
	if duration < booking.MinDuration {
		return time.Time{}, time.Time{}, invalidInput(ReasonDurationTooShort, "Booking duration must be at least 15 minutes")
	}
	if duration > booking.MaxDuration {
		return time.Time{}, time.Time{}, invalidInput(ReasonDurationTooLong, "Booking duration cannot exceed 4 hours")
	}

	if !booking.OnBusinessDay(start) || !booking.OnBusinessDay(end) {
		return time.Time{}, time.Time{}, invalidInput(ReasonOutsideWeekdays, "Bookings are allowed only Monday to Friday")
	}
	if !booking.ValidStart(start) || !booking.ValidEnd(end) {
		return time.Time{}, time.Time{}, invalidInput(ReasonOutsideHours, "Bookings allowed only between 08:00 and 20:00")
	}

	return start, end, nil
}

// CancelBooking transitions a confirmed booking to cancelled when the cutoff
// allows it. Cancelling an already cancelled booking is a no-op returning the
// stored state.
func (s *BookingService) CancelBooking(ctx context.Context, id string) (cancelled persistence.Booking, err error) {
	if s == nil {
		return persistence.Booking{}, fmt.Errorf("BookingService is nil")
	}

	logger := s.loggerWith(ctx, "CancelBooking", "booking_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	stored, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Booking{}, notFound("Booking not found")
		}
		return persistence.Booking{}, internalError("booking lookup failed", err)
	}

	if stored.Status == persistence.BookingStatusCancelled {
		return stored, nil
	}

	cutoff := stored.Start.Add(-s.cancelCutoff)
	if s.now().After(cutoff) {
		return persistence.Booking{}, policyViolation("Cannot cancel within 1 hour of start time")
	}

	updated, err := s.bookings.UpdateBookingStatus(ctx, id, persistence.BookingStatusCancelled, s.now())
	if err != nil {
		return persistence.Booking{}, internalError("failed to update booking status", err)
	}
	s.notifyChange()
	return updated, nil
}

// BookingPage carries one page of booking listings.
type BookingPage struct {
	Items  []persistence.Booking
	Total  int
	Limit  int
	Offset int
}

// ListBookings enumerates bookings intersecting the optional time range,
// most recent start first.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) (page BookingPage, err error) {
	if s == nil {
		return BookingPage{}, fmt.Errorf("BookingService is nil")
	}

	logger := s.loggerWith(ctx, "ListBookings", "room_id", params.RoomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(page.Items)).InfoContext(ctx, "bookings listed")
	}()

	filter := persistence.BookingFilter{
		RoomID: strings.TrimSpace(params.RoomID),
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if raw := strings.TrimSpace(params.From); raw != "" {
		from, perr := parseTimestamp(raw)
		if perr != nil {
			return BookingPage{}, invalidInput(ReasonStartUnparseable, "Invalid 'from' format (ISO 8601 expected)")
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(params.To); raw != "" {
		to, perr := parseTimestamp(raw)
		if perr != nil {
			return BookingPage{}, invalidInput(ReasonEndUnparseable, "Invalid 'to' format (ISO 8601 expected)")
		}
		filter.To = &to
	}

	items, total, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		return BookingPage{}, internalError("failed to list bookings", err)
	}

	return BookingPage{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// parseTimestamp accepts RFC3339 input or a timezone-less ISO-8601 form read
// as UTC, and normalizes the result to UTC.
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
