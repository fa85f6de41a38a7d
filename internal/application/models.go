package application

// RoomInput captures caller provided room attributes.
type RoomInput struct {
	Name      string
	Capacity  int
	Floor     int
	Amenities []string
}

// ListRoomsParams narrows room catalog listings.
type ListRoomsParams struct {
	MinCapacity int
	Amenity     string
}

// BookingInput captures caller provided booking fields. The timestamps stay
// raw strings so the validator owns parse failures and their error ordering.
type BookingInput struct {
	RoomID         string
	Title          string
	OrganizerEmail string
	StartTime      string
	EndTime        string
}

// ListBookingsParams narrows booking listings. From and To are optional
// ISO-8601 bounds; bookings intersecting the closed range are returned.
type ListBookingsParams struct {
	RoomID string
	From   string
	To     string
	Limit  int
	Offset int
}

// UtilizationEntry is one row of the room utilization report. Hours and the
// utilization fraction are rounded to two decimal places.
type UtilizationEntry struct {
	RoomID             string
	RoomName           string
	TotalBookingHours  float64
	UtilizationPercent float64
}
