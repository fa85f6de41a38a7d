package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-booking/internal/application"
)

var errBadRequestBody = errors.New("Invalid request body")

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeRawJSON replays a previously serialized response body verbatim.
func (r responder) writeRawJSON(ctx context.Context, w http.ResponseWriter, status int, body []byte) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to write response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Error: message})
}

// handleServiceError maps tagged domain errors onto HTTP statuses.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	status, body := serviceErrorResponse(err)
	if status == http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "internal error", "error", err)
	}
	r.writeJSON(ctx, w, status, body)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// serviceErrorResponse resolves the HTTP status and JSON body for a domain
// error. It is shared with the idempotency flow, which caches failure
// outcomes exactly as they were first rendered.
func serviceErrorResponse(err error) (int, errorResponse) {
	var dErr *application.DomainError
	if !errors.As(err, &dErr) {
		return http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"}
	}

	switch dErr.Kind {
	case application.KindInvalidInput, application.KindPolicyViolation, application.KindDuplicateName:
		return http.StatusBadRequest, errorResponse{Error: dErr.Message}
	case application.KindNotFound:
		return http.StatusNotFound, errorResponse{Error: dErr.Message}
	case application.KindConflict:
		return http.StatusConflict, errorResponse{Error: dErr.Message}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}
