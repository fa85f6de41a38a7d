package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/testfixtures"
)

type testEnv struct {
	store   *testfixtures.MemoryStore
	clock   *testfixtures.Clock
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := testfixtures.NewMemoryStore()
	// A week before the reference Monday, so every fixture slot is far
	// outside the cancellation cutoff.
	clock := testfixtures.NewClock(testfixtures.ReferenceTime().AddDate(0, 0, -7))
	factory := testfixtures.NewServiceFactory(
		testfixtures.WithClock(clock),
		testfixtures.WithIDGenerator(testfixtures.NewIDGenerator("api")),
	)

	roomService := factory.NewRoomService(testfixtures.RoomServiceDeps{Rooms: store})
	bookingService := factory.NewBookingService(testfixtures.BookingServiceDeps{Bookings: store, Rooms: store})
	reportService := factory.NewReportService(testfixtures.ReportServiceDeps{Bookings: store, Rooms: store})
	idempotency := factory.NewIdempotencyCoordinator(testfixtures.IdempotencyDeps{Store: store})
	bookingService.NotifyOnChange(reportService.InvalidateCache)

	handler := NewRouter(RouterConfig{
		Rooms:    NewRoomHandler(roomService, nil),
		Bookings: NewBookingHandler(bookingService, idempotency, nil),
		Reports:  NewReportHandler(reportService, nil),
	})

	return &testEnv{store: store, clock: clock, handler: handler}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func (e *testEnv) seedRoom(opts ...testfixtures.RoomOption) persistence.Room {
	room := testfixtures.NewRoomFixture(opts...).Persistence()
	e.store.SeedRoom(room)
	return room
}

func (e *testEnv) seedBooking(opts ...testfixtures.BookingOption) persistence.Booking {
	b := testfixtures.NewBookingFixture(opts...).Persistence()
	e.store.SeedBooking(b)
	return b
}

func roomPayload(t *testing.T, fx testfixtures.RoomFixture) string {
	t.Helper()
	in := fx.Input()
	raw, err := json.Marshal(roomRequest{
		Name:      in.Name,
		Capacity:  in.Capacity,
		Floor:     in.Floor,
		Amenities: in.Amenities,
	})
	if err != nil {
		t.Fatalf("failed to encode room payload: %v", err)
	}
	return string(raw)
}

func bookingPayload(t *testing.T, fx testfixtures.BookingFixture) string {
	t.Helper()
	in := fx.Input()
	raw, err := json.Marshal(bookingRequest{
		RoomID:         in.RoomID,
		Title:          in.Title,
		OrganizerEmail: in.OrganizerEmail,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
	})
	if err != nil {
		t.Fatalf("failed to encode booking payload: %v", err)
	}
	return string(raw)
}

func (e *testEnv) createRoom(t *testing.T, opts ...testfixtures.RoomOption) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/rooms", roomPayload(t, testfixtures.NewRoomFixture(opts...)), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("room create returned %d: %s", rec.Code, rec.Body.String())
	}
	var room roomDTO
	decodeJSON(t, rec, &room)
	return room.ID
}

func mondayAt(hour, minute int) time.Time {
	return testfixtures.ReferenceMonday().Add(
		time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func TestBookingLifecycle(t *testing.T) {
	env := newTestEnv(t)
	roomID := env.createRoom(t, testfixtures.WithRoomName("Room A"), testfixtures.WithRoomCapacity(10))

	// Confirmed booking on the reference Monday morning.
	rec := env.do(t, http.MethodPost, "/bookings", bookingPayload(t, testfixtures.NewBookingFixture(
		testfixtures.WithBookingRoomID(roomID),
		testfixtures.WithBookingTitle("Sprint Planning"),
		testfixtures.WithBookingOrganizer("alice@example.com"),
		testfixtures.WithBookingSlot(mondayAt(10, 0), mondayAt(12, 0)),
	)), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("booking create returned %d: %s", rec.Code, rec.Body.String())
	}
	var created bookingDTO
	decodeJSON(t, rec, &created)
	if created.Status != "confirmed" {
		t.Fatalf("status = %q, want confirmed", created.Status)
	}
	if created.Title != "Sprint Planning" || created.OrganizerEmail != "alice@example.com" {
		t.Fatalf("created = %+v", created)
	}

	// An overlapping slot on the same room conflicts.
	rec = env.do(t, http.MethodPost, "/bookings", bookingPayload(t, testfixtures.NewBookingFixture(
		testfixtures.WithBookingRoomID(roomID),
		testfixtures.WithBookingSlot(mondayAt(11, 0), mondayAt(13, 0)),
	)), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlap returned %d, want 409", rec.Code)
	}
	var conflictBody errorResponse
	decodeJSON(t, rec, &conflictBody)
	if conflictBody.Error != "Room is already booked for this time slot" {
		t.Fatalf("conflict error = %q", conflictBody.Error)
	}

	// A missing title is rejected as invalid input.
	rec = env.do(t, http.MethodPost, "/bookings", bookingPayload(t, testfixtures.NewBookingFixture(
		testfixtures.WithBookingRoomID(roomID),
		testfixtures.WithBookingTitle(""),
		testfixtures.WithBookingSlot(mondayAt(14, 0), mondayAt(15, 0)),
	)), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing title returned %d, want 400", rec.Code)
	}
	var invalidBody errorResponse
	decodeJSON(t, rec, &invalidBody)
	if invalidBody.Error != "Booking title is required" {
		t.Fatalf("invalid error = %q", invalidBody.Error)
	}

	// Listing returns the single confirmed booking in a paging envelope.
	rec = env.do(t, http.MethodGet, "/bookings?roomId="+roomID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	var page listBookingsResponse
	decodeJSON(t, rec, &page)
	if page.Total != 1 || len(page.Items) != 1 || page.Limit != 10 || page.Offset != 0 {
		t.Fatalf("page = %+v", page)
	}

	// Cancellation succeeds well ahead of the cutoff and repeats as a no-op.
	for i := 0; i < 2; i++ {
		rec = env.do(t, http.MethodPost, "/bookings/"+created.ID+"/cancel", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("cancel attempt %d returned %d: %s", i+1, rec.Code, rec.Body.String())
		}
		var cancelled bookingDTO
		decodeJSON(t, rec, &cancelled)
		if cancelled.Status != "cancelled" {
			t.Fatalf("status = %q, want cancelled", cancelled.Status)
		}
	}
}

func TestBookingUnknownRoom(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/bookings", bookingPayload(t, testfixtures.NewBookingFixture(
		testfixtures.WithBookingRoomID("room-404"),
	)), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown room returned %d, want 404", rec.Code)
	}
	var body errorResponse
	decodeJSON(t, rec, &body)
	if body.Error != "Room with ID room-404 not found" {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestListBookingsCarriesStoredFields(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(testfixtures.WithRoomID("room-list"))
	seededAt := testfixtures.ReferenceTime().AddDate(0, 0, -1)
	env.seedBooking(
		testfixtures.WithBookingID("booking-early"),
		testfixtures.WithBookingRoomID(room.ID),
		testfixtures.WithBookingSlot(mondayAt(9, 0), mondayAt(10, 0)),
		testfixtures.WithBookingTimestamps(seededAt, seededAt),
	)
	env.seedBooking(
		testfixtures.WithBookingID("booking-late"),
		testfixtures.WithBookingRoomID(room.ID),
		testfixtures.WithBookingTitle("Retro"),
		testfixtures.WithBookingOrganizer("carol@example.com"),
		testfixtures.WithBookingSlot(mondayAt(16, 0), mondayAt(17, 0)),
		testfixtures.WithBookingTimestamps(seededAt, seededAt),
	)

	rec := env.do(t, http.MethodGet, "/bookings?roomId="+room.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	var page listBookingsResponse
	decodeJSON(t, rec, &page)
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("page = %+v", page)
	}

	// Most recent start first, stored fields rendered verbatim.
	first := page.Items[0]
	if first.ID != "booking-late" || first.Title != "Retro" || first.OrganizerEmail != "carol@example.com" {
		t.Fatalf("first item = %+v", first)
	}
	if first.StartTime != mondayAt(16, 0).Format(time.RFC3339) {
		t.Fatalf("startTime = %q", first.StartTime)
	}
	if first.CreatedAt != seededAt.Format(time.RFC3339) {
		t.Fatalf("createdAt = %q", first.CreatedAt)
	}
}

func TestCancelInsideCutoff(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(testfixtures.WithRoomID("room-cutoff"))
	booking := env.seedBooking(
		testfixtures.WithBookingID("booking-cutoff"),
		testfixtures.WithBookingRoomID(room.ID),
		testfixtures.WithBookingSlot(mondayAt(10, 0), mondayAt(11, 0)),
	)

	// 09:30 on the booking day is inside the one hour cutoff.
	env.clock.Set(mondayAt(9, 30))

	rec := env.do(t, http.MethodPost, "/bookings/"+booking.ID+"/cancel", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("late cancel returned %d, want 400", rec.Code)
	}
	var body errorResponse
	decodeJSON(t, rec, &body)
	if body.Error != "Cannot cancel within 1 hour of start time" {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestCancelAlreadyCancelledIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(testfixtures.WithRoomID("room-noop"))
	booking := env.seedBooking(
		testfixtures.WithBookingID("booking-noop"),
		testfixtures.WithBookingRoomID(room.ID),
		testfixtures.WithBookingSlot(mondayAt(10, 0), mondayAt(11, 0)),
		testfixtures.WithBookingStatus(persistence.BookingStatusCancelled),
	)

	// Inside the cutoff: the no-op check precedes the cutoff check.
	env.clock.Set(mondayAt(9, 30))

	rec := env.do(t, http.MethodPost, "/bookings/"+booking.ID+"/cancel", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat cancel returned %d: %s", rec.Code, rec.Body.String())
	}
	var dto bookingDTO
	decodeJSON(t, rec, &dto)
	if dto.Status != "cancelled" {
		t.Fatalf("status = %q, want cancelled", dto.Status)
	}
}

func TestRoomDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	env.createRoom(t, testfixtures.WithRoomName("Room A"))

	rec := env.do(t, http.MethodPost, "/rooms",
		roomPayload(t, testfixtures.NewRoomFixture(testfixtures.WithRoomName("room a"))), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate room returned %d, want 400", rec.Code)
	}
	var body errorResponse
	decodeJSON(t, rec, &body)
	if body.Error != "Room with this name already exists" {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestRoomListFilters(t *testing.T) {
	env := newTestEnv(t)
	seededAt := testfixtures.ReferenceTime().AddDate(0, 0, -2)
	env.seedRoom(
		testfixtures.WithRoomName("Huddle"),
		testfixtures.WithRoomCapacity(4),
		testfixtures.WithRoomFloor(1),
		testfixtures.WithRoomAmenities("whiteboard"),
	)
	env.seedRoom(
		testfixtures.WithRoomName("Boardroom"),
		testfixtures.WithRoomCapacity(16),
		testfixtures.WithRoomFloor(3),
		testfixtures.WithRoomAmenities("projector", "whiteboard"),
		testfixtures.WithRoomTimestamps(seededAt, seededAt),
	)

	rec := env.do(t, http.MethodGet, "/rooms?minCapacity=10", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	var rooms []roomDTO
	decodeJSON(t, rec, &rooms)
	if len(rooms) != 1 || rooms[0].Name != "Boardroom" {
		t.Fatalf("capacity-filtered rooms = %+v", rooms)
	}
	if rooms[0].Floor != 3 || rooms[0].CreatedAt != seededAt.Format(time.RFC3339) {
		t.Fatalf("room DTO = %+v", rooms[0])
	}

	// Amenity matching is case-insensitive.
	rec = env.do(t, http.MethodGet, "/rooms?amenity=Projector", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	rooms = nil
	decodeJSON(t, rec, &rooms)
	if len(rooms) != 1 || rooms[0].Name != "Boardroom" {
		t.Fatalf("amenity-filtered rooms = %+v", rooms)
	}

	rec = env.do(t, http.MethodGet, "/rooms?minCapacity=nope", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad filter returned %d, want 400", rec.Code)
	}
}

func TestUtilizationReportEndpoint(t *testing.T) {
	env := newTestEnv(t)
	roomA := env.seedRoom(testfixtures.WithRoomID("room-a"), testfixtures.WithRoomName("Room A"))
	env.seedRoom(testfixtures.WithRoomID("room-b"), testfixtures.WithRoomName("Room B"))
	env.seedBooking(
		testfixtures.WithBookingRoomID(roomA.ID),
		testfixtures.WithBookingSlot(mondayAt(10, 0), mondayAt(12, 0)),
	)

	rec := env.do(t, http.MethodGet, "/reports/room-utilization?from=2026-03-02&to=2026-03-03", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report returned %d: %s", rec.Code, rec.Body.String())
	}
	var entries []utilizationDTO
	decodeJSON(t, rec, &entries)
	if len(entries) != 2 {
		t.Fatalf("expected both rooms in the report, got %d", len(entries))
	}
	var booked utilizationDTO
	for _, e := range entries {
		if e.RoomID == roomA.ID {
			booked = e
		}
	}
	if booked.TotalBookingHours != 2.0 || booked.UtilizationPercent != 0.17 {
		t.Fatalf("booked room entry = %+v", booked)
	}

	rec = env.do(t, http.MethodGet, "/reports/room-utilization?from=2026-03-02", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing range returned %d, want 400", rec.Code)
	}
}

func TestUtilizationReportReflectsNewBookings(t *testing.T) {
	env := newTestEnv(t)
	roomID := env.createRoom(t, testfixtures.WithRoomName("Room A"))

	// Prime the cache with an empty window.
	rec := env.do(t, http.MethodGet, "/reports/room-utilization?from=2026-03-02&to=2026-03-03", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report returned %d", rec.Code)
	}
	var entries []utilizationDTO
	decodeJSON(t, rec, &entries)
	if len(entries) != 1 || entries[0].TotalBookingHours != 0 {
		t.Fatalf("baseline entries = %+v", entries)
	}

	rec = env.do(t, http.MethodPost, "/bookings", bookingPayload(t, testfixtures.NewBookingFixture(
		testfixtures.WithBookingRoomID(roomID),
		testfixtures.WithBookingSlot(mondayAt(10, 0), mondayAt(12, 0)),
	)), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("booking create returned %d", rec.Code)
	}

	// The write invalidated the cached window, so the report is fresh.
	rec = env.do(t, http.MethodGet, "/reports/room-utilization?from=2026-03-02&to=2026-03-03", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report returned %d", rec.Code)
	}
	entries = nil
	decodeJSON(t, rec, &entries)
	if len(entries) != 1 || entries[0].TotalBookingHours != 2.0 {
		t.Fatalf("post-write entries = %+v", entries)
	}
}

func TestIdempotentCreateReplaysOutcome(t *testing.T) {
	env := newTestEnv(t)
	roomID := env.createRoom(t, testfixtures.WithRoomName("Room A"))

	body := bookingPayload(t, testfixtures.NewBookingFixture(
		testfixtures.WithBookingRoomID(roomID),
		testfixtures.WithBookingSlot(mondayAt(10, 0), mondayAt(12, 0)),
	))
	headers := map[string]string{IdempotencyKeyHeader: "key-1"}

	first := env.do(t, http.MethodPost, "/bookings", body, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("first create returned %d: %s", first.Code, first.Body.String())
	}

	second := env.do(t, http.MethodPost, "/bookings", body, headers)
	if second.Code != first.Code {
		t.Fatalf("replay status = %d, want %d", second.Code, first.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body differs:\nfirst:  %s\nsecond: %s", first.Body.String(), second.Body.String())
	}

	// The operation ran once: exactly one booking exists.
	rec := env.do(t, http.MethodGet, "/bookings?roomId="+roomID, "", nil)
	var page listBookingsResponse
	decodeJSON(t, rec, &page)
	if page.Total != 1 {
		t.Fatalf("expected a single booking after replay, got %d", page.Total)
	}
}

func TestIdempotentCreateCachesFailure(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(testfixtures.WithRoomID("room-busy"))
	env.seedBooking(
		testfixtures.WithBookingRoomID(room.ID),
		testfixtures.WithBookingSlot(mondayAt(10, 0), mondayAt(12, 0)),
	)

	body := bookingPayload(t, testfixtures.NewBookingFixture(
		testfixtures.WithBookingRoomID(room.ID),
		testfixtures.WithBookingSlot(mondayAt(11, 0), mondayAt(13, 0)),
	))
	headers := map[string]string{IdempotencyKeyHeader: "key-conflict"}

	first := env.do(t, http.MethodPost, "/bookings", body, headers)
	if first.Code != http.StatusConflict {
		t.Fatalf("conflicting create returned %d, want 409", first.Code)
	}

	second := env.do(t, http.MethodPost, "/bookings", body, headers)
	if second.Code != http.StatusConflict || second.Body.String() != first.Body.String() {
		t.Fatalf("cached failure should replay verbatim, got %d %s", second.Code, second.Body.String())
	}
}

func TestIdempotentCreateInProgress(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(testfixtures.WithRoomID("room-racing"))

	// Simulate another in-flight execution holding the key.
	locked, err := env.store.TryLock(context.Background(), "key-busy", "", env.clock.Now())
	if err != nil || !locked {
		t.Fatalf("failed to pre-lock key: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/bookings", bookingPayload(t, testfixtures.NewBookingFixture(
		testfixtures.WithBookingRoomID(room.ID),
		testfixtures.WithBookingSlot(mondayAt(10, 0), mondayAt(12, 0)),
	)), map[string]string{IdempotencyKeyHeader: "key-busy"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-progress key returned %d, want 409", rec.Code)
	}
	var body errorResponse
	decodeJSON(t, rec, &body)
	if body.Error != "Request in progress" {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/rooms", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("returned %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET, POST" {
		t.Fatalf("Allow = %q", allow)
	}
}
