package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-booking/internal/application"
)

type reportService interface {
	UtilizationReport(ctx context.Context, from, to string) ([]application.UtilizationEntry, error)
}

type ReportHandler struct {
	service   reportService
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(service reportService, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	return &ReportHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReportHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReportHandler", operation, attrs...)
}

func (h *ReportHandler) RoomUtilization(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))

	logger := h.log(r.Context(), "RoomUtilization", "from", from, "to", to)

	entries, err := h.service.UtilizationReport(r.Context(), from, to)
	if err != nil {
		logger.ErrorContext(r.Context(), "utilization report failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(entries)).InfoContext(r.Context(), "utilization report generated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUtilizationDTOs(entries))
}

type utilizationDTO struct {
	RoomID             string  `json:"roomId"`
	RoomName           string  `json:"roomName"`
	TotalBookingHours  float64 `json:"totalBookingHours"`
	UtilizationPercent float64 `json:"utilizationPercent"`
}

func toUtilizationDTOs(entries []application.UtilizationEntry) []utilizationDTO {
	out := make([]utilizationDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, utilizationDTO{
			RoomID:             e.RoomID,
			RoomName:           e.RoomName,
			TotalBookingHours:  e.TotalBookingHours,
			UtilizationPercent: e.UtilizationPercent,
		})
	}
	return out
}
