// Package handler provides HTTP handlers for all API endpoints. Handlers
// validate input, call into the scheduling core, and write JSON — no
// business logic lives here.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kindredapp/kindred-notify/internal/api/respond"
	"github.com/kindredapp/kindred-notify/internal/config"
	"github.com/kindredapp/kindred-notify/internal/notify"
	"github.com/kindredapp/kindred-notify/internal/prefs"
	"github.com/kindredapp/kindred-notify/internal/push"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool    *pgxpool.Pool
	cfg     *config.Config
	logger  *slog.Logger
	svc     notify.Service
	sched   *notify.Scheduler
	gate    *notify.ForegroundGate
	tokens  *push.TokenStore
	reactor *prefs.Reactor
}

// New creates a Handler with shared dependencies.
func New(pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger,
	svc notify.Service, sched *notify.Scheduler, gate *notify.ForegroundGate,
	tokens *push.TokenStore, reactor *prefs.Reactor) *Handler {
	return &Handler{
		pool:    pool,
		cfg:     cfg,
		logger:  logger,
		svc:     svc,
		sched:   sched,
		gate:    gate,
		tokens:  tokens,
		reactor: reactor,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Kindred Notify API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.pool.QueryRow(r.Context(), "health_check").Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
