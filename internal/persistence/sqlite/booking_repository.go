package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository on SQLite.
type BookingRepository struct {
	pool *ConnectionPool
}

// NewBookingRepository creates a booking repository backed by the pool.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = "id, room_id, title, organizer_email, start_time, end_time, status, created_at, updated_at"

// overlapCondition matches confirmed bookings whose half-open interval
// intersects [?, ?) on the indexed (room_id, start_time, end_time) columns.
const overlapCondition = `room_id = ? AND status = 'confirmed' AND start_time < ? AND end_time > ?`

// CreateBooking inserts a confirmed booking, re-checking the no-overlap
// invariant inside the same transaction. Two racing inserts for the same slot
// serialize on the transaction, so the loser sees the winner's row and gets
// persistence.ErrConflict.
func (r *BookingRepository) CreateBooking(ctx context.Context, b persistence.Booking) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var occupied int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings WHERE `+overlapCondition,
			b.RoomID, formatTime(b.End), formatTime(b.Start)).Scan(&occupied)
		if err != nil {
			return fmt.Errorf("failed to check overlap: %w", err)
		}
		if occupied > 0 {
			return persistence.ErrConflict
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO bookings (`+bookingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.RoomID, b.Title, b.OrganizerEmail,
			formatTime(b.Start), formatTime(b.End), string(b.Status),
			formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert booking: %w", mapSQLiteError(err))
		}
		return nil
	})
}

// GetBooking fetches a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	row := r.pool.DB().QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

// FindOverlapping returns one confirmed booking on the room intersecting
// [start, end), or persistence.ErrNotFound when the slot is free.
func (r *BookingRepository) FindOverlapping(ctx context.Context, roomID string, start, end time.Time) (persistence.Booking, error) {
	row := r.pool.DB().QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE `+overlapCondition+` ORDER BY start_time LIMIT 1`,
		roomID, formatTime(end), formatTime(start))
	return scanBooking(row)
}

// ListBookings returns a page of bookings matching the filter, newest start
// first, together with the total match count.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, int, error) {
	where := `1 = 1`
	var args []any
	if filter.RoomID != "" {
		where += ` AND room_id = ?`
		args = append(args, filter.RoomID)
	}
	if filter.From != nil {
		where += ` AND end_time >= ?`
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		where += ` AND start_time <= ?`
		args = append(args, formatTime(*filter.To))
	}

	var total int
	err := r.pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where +
		` ORDER BY start_time DESC LIMIT ? OFFSET ?`
	rows, err := r.pool.DB().QueryContext(ctx, query,
		append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// ListConfirmedInRange returns confirmed bookings intersecting [start, end),
// ordered by start time.
func (r *BookingRepository) ListConfirmedInRange(ctx context.Context, start, end time.Time) ([]persistence.Booking, error) {
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE status = 'confirmed' AND start_time < ? AND end_time > ?
		 ORDER BY start_time`,
		formatTime(end), formatTime(start))
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings in range: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

// UpdateBookingStatus sets the booking status and returns the updated row.
func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, id string, status persistence.BookingStatus, updatedAt time.Time) (persistence.Booking, error) {
	result, err := r.pool.DB().ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(updatedAt), id)
	if err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to update booking status: %w", mapSQLiteError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return r.GetBooking(ctx, id)
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		b                  persistence.Booking
		status             string
		startRaw, endRaw   string
		createdAt, updated string
	)
	err := row.Scan(&b.ID, &b.RoomID, &b.Title, &b.OrganizerEmail,
		&startRaw, &endRaw, &status, &createdAt, &updated)
	if err == sql.ErrNoRows {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to scan booking: %w", err)
	}
	b.Status = persistence.BookingStatus(status)
	if b.Start, err = parseStoredTime("start_time", startRaw); err != nil {
		return persistence.Booking{}, err
	}
	if b.End, err = parseStoredTime("end_time", endRaw); err != nil {
		return persistence.Booking{}, err
	}
	if b.CreatedAt, err = parseStoredTime("created_at", createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if b.UpdatedAt, err = parseStoredTime("updated_at", updated); err != nil {
		return persistence.Booking{}, err
	}
	return b, nil
}

func collectBookings(rows *sql.Rows) ([]persistence.Booking, error) {
	bookings := make([]persistence.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}
