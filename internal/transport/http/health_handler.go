package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"insightpipe/internal/errorintel"
)

// HubStats exposes websocket hub counters to the health endpoint.
type HubStats interface {
	Stats() map[string]int64
}

// HealthHandler serves liveness and worker health intelligence.
type HealthHandler struct {
	tracker *errorintel.Tracker
	hub     HubStats
	logger  *slog.Logger
	started time.Time
}

// NewHealthHandler creates the health handler. hub may be nil.
func NewHealthHandler(tracker *errorintel.Tracker, hub HubStats, logger *slog.Logger) *HealthHandler {
	if tracker == nil {
		panic("tracker cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		tracker: tracker,
		hub:     hub,
		logger:  logger.With(slog.String("handler", "health")),
		started: time.Now(),
	}
}

// Routes returns the chi router for health endpoints.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Liveness)
	r.Get("/workers", h.Workers)
	r.Get("/patterns", h.Patterns)
	r.Get("/recommendations", h.Recommendations)
	return r
}

// Liveness handles GET /api/health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	}
	if h.hub != nil {
		body["websocket"] = h.hub.Stats()
	}
	render.JSON(w, r, body)
}

// Workers handles GET /api/health/workers: the per-worker health report.
func (h *HealthHandler) Workers(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"report":  h.tracker.HealthReport(),
		"workers": h.tracker.AllWorkerHealth(),
	})
}

// Patterns handles GET /api/health/patterns: clustered failure history.
func (h *HealthHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"patterns":    h.tracker.AnalyzePatterns(),
		"error_count": h.tracker.ErrorCount(),
	})
}

// Recommendations handles GET /api/health/recommendations.
func (h *HealthHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"recommendations": h.tracker.Recommendations(),
	})
}
