package http

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

// IdempotencyKeyHeader is the request header that opts a create into
// at-most-once semantics.
const IdempotencyKeyHeader = "Idempotency-Key"

type bookingService interface {
	CreateBooking(ctx context.Context, input application.BookingInput) (persistence.Booking, error)
	CancelBooking(ctx context.Context, id string) (persistence.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) (application.BookingPage, error)
}

type idempotencyCoordinator interface {
	Begin(ctx context.Context, key, fingerprint string) (application.BeginResult, error)
	Complete(ctx context.Context, key string, code int, body []byte) error
}

type BookingHandler struct {
	service     bookingService
	idempotency idempotencyCoordinator
	responder   responder
	logger      *slog.Logger
}

func NewBookingHandler(service bookingService, idempotency idempotencyCoordinator, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, idempotency: idempotency, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// Create handles booking creation. When the Idempotency-Key header is present
// the outcome, success or failure, is produced at most once and replayed
// verbatim for retries.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to read request body", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(bytes.NewReader(rawBody)).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" || h.idempotency == nil {
		h.createDirect(w, r, req)
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", req.RoomID, "idempotency_key", key)

	begin, err := h.idempotency.Begin(r.Context(), key, fingerprintBody(rawBody))
	if err != nil {
		logger.ErrorContext(r.Context(), "idempotency begin failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	switch begin.State {
	case application.BeginInProgress:
		logger.InfoContext(r.Context(), "idempotent request already in progress")
		h.responder.writeJSON(r.Context(), w, http.StatusConflict, errorResponse{Error: "Request in progress"})
		return
	case application.BeginCompleted:
		logger.InfoContext(r.Context(), "replaying cached idempotent response", "status", begin.Code)
		h.responder.writeRawJSON(r.Context(), w, begin.Code, begin.Body)
		return
	}

	status, payload := h.executeCreate(r.Context(), logger, req)

	body, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to encode idempotent response", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}
	if err := h.idempotency.Complete(r.Context(), key, status, body); err != nil {
		// The operation already ran; losing the cache write must not turn a
		// completed booking into an error for this caller.
		logger.ErrorContext(r.Context(), "failed to cache idempotent outcome", "error", err)
	}

	h.responder.writeRawJSON(r.Context(), w, status, body)
}

func (h *BookingHandler) createDirect(w http.ResponseWriter, r *http.Request, req bookingRequest) {
	logger := h.log(r.Context(), "Create", "room_id", req.RoomID)

	booking, err := h.service.CreateBooking(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", booking.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBookingDTO(booking))
}

// executeCreate runs the create and renders its outcome as the status and
// payload that will be both served and cached.
func (h *BookingHandler) executeCreate(ctx context.Context, logger *slog.Logger, req bookingRequest) (int, any) {
	booking, err := h.service.CreateBooking(ctx, req.toInput())
	if err != nil {
		logger.ErrorContext(ctx, "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		status, body := serviceErrorResponse(err)
		return status, body
	}

	logger.With("booking_id", booking.ID).InfoContext(ctx, "booking created")
	return http.StatusCreated, toBookingDTO(booking)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), "Cancel", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id for cancel")
		h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: "Invalid booking ID"})
		return
	}

	logger := h.log(r.Context(), "Cancel", "booking_id", bookingID)

	booking, err := h.service.CancelBooking(r.Context(), bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	params := application.ListBookingsParams{
		RoomID: strings.TrimSpace(query.Get("roomId")),
		From:   strings.TrimSpace(query.Get("from")),
		To:     strings.TrimSpace(query.Get("to")),
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: "Invalid limit parameter"})
			return
		}
		params.Limit = limit
	}
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: "Invalid offset parameter"})
			return
		}
		params.Offset = offset
	}

	logger := h.log(r.Context(), "List", "room_id", params.RoomID)

	page, err := h.service.ListBookings(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(page.Items)).InfoContext(r.Context(), "bookings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{
		Items:  toBookingDTOs(page.Items),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// fingerprintBody hashes the raw request payload so replays of an idempotency
// key with a different body can be flagged.
func fingerprintBody(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type bookingRequest struct {
	RoomID         string `json:"roomId"`
	Title          string `json:"title"`
	OrganizerEmail string `json:"organizerEmail"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
}

func (r bookingRequest) toInput() application.BookingInput {
	return application.BookingInput{
		RoomID:         strings.TrimSpace(r.RoomID),
		Title:          r.Title,
		OrganizerEmail: r.OrganizerEmail,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
	}
}

type listBookingsResponse struct {
	Items  []bookingDTO `json:"items"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type bookingDTO struct {
	ID             string `json:"id"`
	RoomID         string `json:"roomId"`
	Title          string `json:"title"`
	OrganizerEmail string `json:"organizerEmail"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	Status         string `json:"status"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

func toBookingDTO(b persistence.Booking) bookingDTO {
	return bookingDTO{
		ID:             b.ID,
		RoomID:         b.RoomID,
		Title:          b.Title,
		OrganizerEmail: b.OrganizerEmail,
		StartTime:      b.Start.UTC().Format(time.RFC3339),
		EndTime:        b.End.UTC().Format(time.RFC3339),
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toBookingDTOs(bookings []persistence.Booking) []bookingDTO {
	out := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingDTO(b))
	}
	return out
}
