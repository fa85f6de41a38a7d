package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// RoomStore captures the persistence operations needed by the service.
type RoomStore interface {
	CreateRoom(ctx context.Context, room persistence.Room) error
	GetRoom(ctx context.Context, id string) (persistence.Room, error)
	GetRoomByName(ctx context.Context, name string) (persistence.Room, error)
	ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]persistence.Room, error)
}

// RoomService orchestrates validation and persistence for the room catalog.
type RoomService struct {
	rooms       RoomStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomStore, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input, enforces case-insensitive name uniqueness, and
// persists a new room.
func (s *RoomService) CreateRoom(ctx context.Context, input RoomInput) (room persistence.Room, err error) {
	if s == nil {
		return persistence.Room{}, fmt.Errorf("RoomService is nil")
	}

	logger := s.loggerWith(ctx, "CreateRoom", "room_name", input.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return persistence.Room{}, invalidInput("name_required", "Room name is required")
	}
	if input.Capacity <= 0 {
		return persistence.Room{}, invalidInput("capacity_invalid", "Room capacity must be a positive integer")
	}

	existing, err := s.rooms.GetRoomByName(ctx, name)
	switch {
	case err == nil:
		if strings.EqualFold(existing.Name, name) {
			return persistence.Room{}, duplicateName("Room with this name already exists")
		}
	case errors.Is(err, persistence.ErrNotFound):
		// Name is free.
	default:
		return persistence.Room{}, internalError("room name lookup failed", err)
	}

	now := s.now()
	room = persistence.Room{
		ID:        s.idGenerator(),
		Name:      name,
		Capacity:  input.Capacity,
		Floor:     input.Floor,
		Amenities: normalizeAmenities(input.Amenities),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.rooms.CreateRoom(ctx, room); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.Room{}, duplicateName("Room with this name already exists")
		}
		return persistence.Room{}, internalError("failed to persist room", err)
	}

	return room, nil
}

// GetRoom fetches a room by identifier.
func (s *RoomService) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if s == nil {
		return persistence.Room{}, fmt.Errorf("RoomService is nil")
	}
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Room{}, notFound(fmt.Sprintf("Room with ID %s not found", id))
		}
		return persistence.Room{}, internalError("room lookup failed", err)
	}
	return room, nil
}

// ListRooms returns the catalog filtered by minimum capacity and amenity.
func (s *RoomService) ListRooms(ctx context.Context, params ListRoomsParams) (rooms []persistence.Room, err error) {
	if s == nil {
		return nil, fmt.Errorf("RoomService is nil")
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).InfoContext(ctx, "rooms listed")
	}()

	if params.MinCapacity < 0 {
		return nil, invalidInput("min_capacity_invalid", "minCapacity must not be negative")
	}

	raw, err := s.rooms.ListRooms(ctx, persistence.RoomFilter{
		MinCapacity: params.MinCapacity,
		Amenity:     strings.TrimSpace(params.Amenity),
	})
	if err != nil {
		return nil, internalError("failed to list rooms", err)
	}

	rooms = make([]persistence.Room, len(raw))
	copy(rooms, raw)
	sort.Slice(rooms, func(i, j int) bool {
		if strings.EqualFold(rooms[i].Name, rooms[j].Name) {
			return rooms[i].ID < rooms[j].ID
		}
		return strings.ToLower(rooms[i].Name) < strings.ToLower(rooms[j].Name)
	})

	return rooms, nil
}

// normalizeAmenities trims entries and drops blanks and duplicates while
// preserving first-seen order.
func normalizeAmenities(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
