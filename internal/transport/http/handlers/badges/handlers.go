package badgeshandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"mapleerp/internal/domain/badges"
	"mapleerp/internal/platform/metrics"
	"mapleerp/internal/transport/http/api"
	"mapleerp/internal/transport/http/middleware"
	"mapleerp/internal/transport/http/shared"
)

type Handler struct {
	Service *badges.Service
	Metrics *metrics.Collector
	// Limit wraps both badge routes; nil means unlimited.
	Limit func(http.Handler) http.Handler
}

func NewHandler(service *badges.Service, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Metrics: collector}
}

type batchRequest struct {
	EmployeeIDs []int64 `json:"employeeIds" validate:"required"`
}

// RegisterRoutes expects to be mounted on the /employees subrouter.
func (h *Handler) RegisterRoutes(r chi.Router) {
	limited := chi.Chain()
	if h.Limit != nil {
		limited = chi.Chain(h.Limit)
	}
	r.With(limited...).Get("/{employeeID}/badge", h.handleSingle)
	r.With(limited...).Post("/badges", h.handleBatch)
}

func (h *Handler) handleSingle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "employeeID"), 10, 64)
	if err != nil || id <= 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "employee id must be a positive integer", middleware.GetRequestID(r.Context()))
		return
	}

	file, err := h.Service.Single(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.Metrics.RecordBadges("single", file.Count)
	zerolog.Ctx(r.Context()).Info().Int64("employeeId", id).Int("bytes", len(file.Content)).Msg("badge generated")
	api.Attachment(w, "application/pdf", file.Name, file.Content)
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var req batchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Fail(w, http.StatusBadRequest, "payload_too_large", "request body too large", reqID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", reqID)
		return
	}
	v := shared.NewValidator()
	v.Struct(req)
	if v.Reject(w, reqID) {
		return
	}

	file, err := h.Service.Batch(r.Context(), req.EmployeeIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.Metrics.RecordBadges("batch", file.Count)
	zerolog.Ctx(r.Context()).Info().
		Int("requested", len(req.EmployeeIDs)).
		Int("rendered", file.Count).
		Msg("badge batch generated")
	api.Attachment(w, "application/pdf", file.Name, file.Content)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	logger := zerolog.Ctx(r.Context())

	switch {
	case errors.Is(err, context.Canceled):
		logger.Info().Err(err).Msg("client went away during badge generation")
	case errors.Is(err, badges.ErrInvalidRequest):
		api.Fail(w, http.StatusBadRequest, "invalid_request", err.Error(), reqID)
	case errors.Is(err, badges.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, badges.ErrRenderingEngine):
		logger.Error().Err(err).Msg("badge rendering failed")
		api.Fail(w, http.StatusInternalServerError, "rendering_failed", "failed to generate badge PDF", reqID)
	default:
		logger.Error().Err(err).Msg("badge request failed")
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal error", reqID)
	}
}
