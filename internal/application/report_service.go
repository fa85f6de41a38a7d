package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/persistence"
)

// ReportBookingSource lists the confirmed bookings feeding the aggregator.
type ReportBookingSource interface {
	ListConfirmedInRange(ctx context.Context, start, end time.Time) ([]persistence.Booking, error)
}

// ReportService computes per-room utilization over a query window.
type ReportService struct {
	bookings ReportBookingSource
	rooms    RoomStore
	cache    *reportCache
	logger   *slog.Logger
}

// NewReportService constructs a report service with the provided dependencies.
func NewReportService(bookings ReportBookingSource, rooms RoomStore, now func() time.Time) *ReportService {
	return NewReportServiceWithLogger(bookings, rooms, now, nil)
}

// NewReportServiceWithLogger constructs a report service with a specified logger.
func NewReportServiceWithLogger(bookings ReportBookingSource, rooms RoomStore, now func() time.Time, logger *slog.Logger) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{
		bookings: bookings,
		rooms:    rooms,
		cache:    newReportCache(0, 0, now),
		logger:   defaultLogger(logger),
	}
}

func (s *ReportService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReportService", operation, attrs...)
}

// InvalidateCache drops every cached report window. The booking service calls
// this after a create or cancel so reports stay consistent with writes.
func (s *ReportService) InvalidateCache() {
	if s == nil {
		return
	}
	s.cache.Purge()
}

// UtilizationReport returns, for every room in the catalog, the booked hours
// and the fraction of available business time occupied inside [from, to).
// A window containing no business seconds yields an empty report.
func (s *ReportService) UtilizationReport(ctx context.Context, fromRaw, toRaw string) (entries []UtilizationEntry, err error) {
	if s == nil {
		return nil, fmt.Errorf("ReportService is nil")
	}

	logger := s.loggerWith(ctx, "UtilizationReport", "from", fromRaw, "to", toRaw)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build utilization report", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(entries)).InfoContext(ctx, "utilization report built")
	}()

	if strings.TrimSpace(fromRaw) == "" || strings.TrimSpace(toRaw) == "" {
		return nil, invalidInput("report_range_required", "Missing 'from' or 'to' parameters")
	}

	from, perr := parseTimestamp(fromRaw)
	if perr != nil {
		return nil, invalidInput("report_range_invalid", "Invalid date parameters")
	}
	to, perr := parseTimestamp(toRaw)
	if perr != nil {
		return nil, invalidInput("report_range_invalid", "Invalid date parameters")
	}

	cacheKey := from.Format(time.RFC3339) + "|" + to.Format(time.RFC3339)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached, nil
	}

	totalBusinessSeconds := booking.BusinessSeconds(from, to)
	if totalBusinessSeconds == 0 {
		return []UtilizationEntry{}, nil
	}
	totalBusinessHours := float64(totalBusinessSeconds) / 3600.0

	confirmed, err := s.bookings.ListConfirmedInRange(ctx, from, to)
	if err != nil {
		return nil, internalError("failed to load confirmed bookings", err)
	}

	rooms, err := s.rooms.ListRooms(ctx, persistence.RoomFilter{})
	if err != nil {
		return nil, internalError("failed to load room catalog", err)
	}

	// Booked time is clipped to the query window only, not re-intersected
	// with per-day business hours: confirmed bookings already live inside
	// the business window by construction.
	secondsByRoom := make(map[string]int64, len(rooms))
	for _, b := range confirmed {
		if clipped := booking.Clip(b.Start, b.End, from, to); clipped > 0 {
			secondsByRoom[b.RoomID] += clipped
		}
	}

	entries = make([]UtilizationEntry, 0, len(rooms))
	for _, room := range rooms {
		hours := float64(secondsByRoom[room.ID]) / 3600.0
		entries = append(entries, UtilizationEntry{
			RoomID:             room.ID,
			RoomName:           room.Name,
			TotalBookingHours:  round2(hours),
			UtilizationPercent: round2(hours / totalBusinessHours),
		})
	}

	s.cache.Set(cacheKey, entries)
	return entries, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
