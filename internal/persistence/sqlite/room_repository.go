package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/room-booking/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository on SQLite.
type RoomRepository struct {
	pool *ConnectionPool
}

// NewRoomRepository creates a room repository backed by the pool.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

const roomColumns = "id, name, capacity, floor, amenities, created_at, updated_at"

// CreateRoom inserts a room. The NOCASE unique index on name surfaces
// duplicates as persistence.ErrDuplicate.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	amenities, err := encodeAmenities(room.Amenities)
	if err != nil {
		return err
	}

	_, err = r.pool.DB().ExecContext(ctx,
		`INSERT INTO rooms (`+roomColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		room.ID, room.Name, room.Capacity, room.Floor, amenities,
		formatTime(room.CreatedAt), formatTime(room.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", mapSQLiteError(err))
	}
	return nil
}

// GetRoom fetches a room by ID.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	row := r.pool.DB().QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	return scanRoom(row)
}

// GetRoomByName fetches a room by name, matched case-insensitively.
func (r *RoomRepository) GetRoomByName(ctx context.Context, name string) (persistence.Room, error) {
	row := r.pool.DB().QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE name = ? COLLATE NOCASE`, name)
	return scanRoom(row)
}

// ListRooms returns rooms matching the filter, ordered by name. Amenity
// matching happens in Go because amenities are stored as a JSON array.
func (r *RoomRepository) ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]persistence.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms`
	var args []any
	if filter.MinCapacity > 0 {
		query += ` WHERE capacity >= ?`
		args = append(args, filter.MinCapacity)
	}
	query += ` ORDER BY name COLLATE NOCASE`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]persistence.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		if filter.Amenity != "" && !hasAmenity(room.Amenities, filter.Amenity) {
			continue
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	return rooms, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room               persistence.Room
		amenities          string
		createdAt, updated string
	)
	err := row.Scan(&room.ID, &room.Name, &room.Capacity, &room.Floor,
		&amenities, &createdAt, &updated)
	if err == sql.ErrNoRows {
		return persistence.Room{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Room{}, fmt.Errorf("failed to scan room: %w", err)
	}
	if room.Amenities, err = decodeAmenities(amenities); err != nil {
		return persistence.Room{}, err
	}
	if room.CreatedAt, err = parseStoredTime("created_at", createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseStoredTime("updated_at", updated); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

func encodeAmenities(amenities []string) (string, error) {
	if amenities == nil {
		amenities = []string{}
	}
	raw, err := json.Marshal(amenities)
	if err != nil {
		return "", fmt.Errorf("failed to encode amenities: %w", err)
	}
	return string(raw), nil
}

func decodeAmenities(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var amenities []string
	if err := json.Unmarshal([]byte(raw), &amenities); err != nil {
		return nil, fmt.Errorf("failed to decode amenities: %w", err)
	}
	return amenities, nil
}

func hasAmenity(amenities []string, want string) bool {
	for _, a := range amenities {
		if strings.EqualFold(a, want) {
			return true
		}
	}
	return false
}
