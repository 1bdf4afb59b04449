package employeeshandler

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"mapleerp/internal/domain/employees"
	"mapleerp/internal/platform/metrics"
	"mapleerp/internal/transport/http/api"
	"mapleerp/internal/transport/http/middleware"
	"mapleerp/internal/transport/http/shared"
)

type Handler struct {
	Service *employees.Service
	Metrics *metrics.Collector
	// CreateLimit wraps the create route; nil means unlimited.
	CreateLimit func(http.Handler) http.Handler
}

func NewHandler(service *employees.Service, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	create := chi.Chain()
	if h.CreateLimit != nil {
		create = chi.Chain(h.CreateLimit)
	}
	r.With(create...).Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/search", h.handleSearch)
	r.Get("/export", h.handleExport)
	r.Get("/{employeeID}", h.handleGet)
	r.Put("/{employeeID}", h.handleUpdate)
	r.Delete("/{employeeID}", h.handleDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	reader, err := r.MultipartReader()
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_content_type", "request must be multipart/form-data", reqID)
		return
	}

	draft, err := h.Service.Ingest(r.Context(), reader)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Str("fileName", draft.FileName).
		Str("mimeType", draft.MIMEType).
		Int("size", len(draft.File)).
		Msg("employee photo received")

	emp, err := h.Service.Create(r.Context(), draft)
	if err != nil {
		if errors.Is(err, employees.ErrUpload) {
			h.Metrics.RecordUpload(false)
		}
		writeError(w, r, err)
		return
	}
	h.Metrics.RecordUpload(true)

	zerolog.Ctx(r.Context()).Info().Int64("employeeId", emp.ID).Msg("employee created")
	api.Created(w, emp, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := shared.ParsePagination(r, 20, 100)

	result, err := h.Service.Search(r.Context(), employees.SearchFilter{
		Name:        query.Get("name"),
		JobFunction: query.Get("jobFunction"),
		Status:      query.Get("status"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}
	emp, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	var patch employees.Patch
	if err := shared.DecodeJSON(r, &patch); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	emp, err := h.Service.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, map[string]int64{"id": id}, middleware.GetRequestID(r.Context()))
}

var csvHeader = []string{
	"id", "full_name", "tag_name", "tag_last_name", "job_functions", "birthday",
	"status", "email", "phone", "mobile", "photo_url", "created_at",
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	status := r.URL.Query().Get("status")

	v := shared.NewValidator()
	v.Enum("format", format, []string{"csv", "json"}, "must be csv or json")
	v.Enum("status", status, []string{employees.StatusActive, employees.StatusInactive, employees.StatusOnLeave}, "must be one of Active, Inactive, OnLeave")
	if v.Reject(w, reqID) {
		return
	}

	list, err := h.Service.Export(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if format == "json" {
		api.Success(w, list, reqID)
		return
	}

	scope := "all"
	if status != "" {
		scope = strings.ToLower(status)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "employees_"+scope+".csv"))
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("employee export csv header write failed")
	}
	for _, emp := range list {
		birthday := ""
		if emp.Birthday != nil {
			birthday = emp.Birthday.Format("2006-01-02")
		}
		row := []string{
			strconv.FormatInt(emp.ID, 10), emp.FullName, emp.TagName, emp.TagLastName, emp.JobFunctions, birthday,
			emp.Status, emp.Email, emp.Phone, emp.Mobile, emp.PhotoURL, emp.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Int64("employeeId", emp.ID).Msg("employee export csv row write failed")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("employee export csv flush failed")
	}
}

func employeeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "employeeID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "employee id must be a positive integer", middleware.GetRequestID(r.Context()))
		return 0, false
	}
	return id, true
}

func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		api.Fail(w, http.StatusBadRequest, "payload_too_large", "request body too large", middleware.GetRequestID(r.Context()))
		return
	}
	api.Fail(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", middleware.GetRequestID(r.Context()))
}

// writeError maps domain errors onto the response envelope. Upstream and
// unexpected failures are logged in full and answered generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	logger := zerolog.Ctx(r.Context())

	var (
		maxErr        *http.MaxBytesError
		ingestErr     *employees.IngestionError
		fieldErr      *employees.FieldError
		constraintErr *employees.ConstraintError
	)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info().Err(err).Msg("client went away")
	case errors.As(err, &maxErr):
		api.Fail(w, http.StatusBadRequest, string(employees.FileTooLarge),
			fmt.Sprintf("request body exceeds the %d byte limit", maxErr.Limit), reqID)
	case errors.As(err, &ingestErr):
		api.FailWithDetails(w, http.StatusBadRequest, string(ingestErr.Kind), ingestErr.Error(), ingestionDetails(ingestErr), reqID)
	case errors.As(err, &fieldErr):
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", fieldErr.Error(),
			map[string]string{"field": fieldErr.Field, "reason": fieldErr.Reason}, reqID)
	case errors.Is(err, employees.ErrNoChanges):
		api.Fail(w, http.StatusBadRequest, "no_changes", err.Error(), reqID)
	case errors.Is(err, employees.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	case errors.Is(err, employees.ErrConflict):
		logger.Warn().Err(err).Msg("employee conflict")
		api.Fail(w, http.StatusConflict, "conflict", "employee already exists", reqID)
	case errors.As(err, &constraintErr):
		api.FailWithDetails(w, http.StatusBadRequest, "constraint_violation", "data violates a database constraint",
			map[string]string{"constraint": constraintErr.Constraint, "detail": constraintErr.Detail}, reqID)
	case errors.Is(err, employees.ErrUpload):
		logger.Error().Err(err).Msg("photo upload failed")
		api.Fail(w, http.StatusInternalServerError, "upload_failed", "failed to upload photo", reqID)
	default:
		logger.Error().Err(err).Msg("employee request failed")
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal error", reqID)
	}
}

func ingestionDetails(err *employees.IngestionError) any {
	switch err.Kind {
	case employees.MissingRequiredFields:
		return map[string]any{"fields": err.Missing}
	case employees.FieldValidationFailed:
		return map[string]string{"field": err.Field, "reason": err.Reason}
	case employees.FileTooLarge:
		return map[string]int64{"size": err.Size, "limit": err.Limit}
	case employees.InvalidFileFormat:
		return map[string]string{"mimeType": err.MIMEType}
	case employees.DisallowedExtension:
		return map[string]string{"fileName": err.FileName}
	}
	return nil
}
