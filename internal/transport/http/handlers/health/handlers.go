package healthhandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"mapleerp/internal/transport/http/api"
	"mapleerp/internal/transport/http/middleware"
)

const checkTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Database    Pinger
	Photos      Pinger
	Environment string
	Version     string
	Started     time.Time
	Now         func() time.Time
}

func NewHandler(database, photos Pinger, environment, version string) *Handler {
	return &Handler{
		Database:    database,
		Photos:      photos,
		Environment: environment,
		Version:     version,
		Started:     time.Now(),
		Now:         time.Now,
	}
}

type Report struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      float64   `json:"uptime"`
	Environment string    `json:"environment"`
	Version     string    `json:"version"`
	Database    string    `json:"database"`
	Photos      string    `json:"photos"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.handleLive)
	r.Get("/readyz", h.handleReady)
	r.Get("/health-check", h.handleCheck)
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()
	if err := h.Database.Ping(ctx); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("readiness check failed")
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleCheck reports dependency state. The photo gateway is only contacted
// when deep=true; otherwise its configuration is reported.
func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	now := h.Now()
	report := Report{
		Status:      "ok",
		Timestamp:   now.UTC(),
		Uptime:      now.Sub(h.Started).Seconds(),
		Environment: h.Environment,
		Version:     h.Version,
		Database:    "connected",
		Photos:      "not_configured",
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	if err := h.Database.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("database health check failed")
		report.Database = "error"
	}
	if h.Photos != nil {
		report.Photos = "configured"
		if r.URL.Query().Get("deep") == "true" {
			if err := h.Photos.Ping(ctx); err != nil {
				logger.Error().Err(err).Msg("photo gateway health check failed")
				report.Photos = "error"
			} else {
				report.Photos = "connected"
			}
		}
	}

	status := http.StatusOK
	if report.Database == "error" || report.Photos == "error" {
		report.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	api.WriteJSON(w, status, api.Envelope{Success: status == http.StatusOK, Data: report, RequestID: middleware.GetRequestID(r.Context())})
}
