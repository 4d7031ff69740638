package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/kindredapp/kindred-notify/internal/api/handler"
	"github.com/kindredapp/kindred-notify/internal/config"
	"github.com/kindredapp/kindred-notify/internal/notify"
	"github.com/kindredapp/kindred-notify/internal/prefs"
	"github.com/kindredapp/kindred-notify/internal/push"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger,
	svc notify.Service, sched *notify.Scheduler, gate *notify.ForegroundGate,
	tokens *push.TokenStore, reactor *prefs.Reactor) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type"},
		ExposedHeaders:   []string{"X-Process-Time"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(pool, cfg, logger, svc, sched, gate, tokens, reactor)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	// Swagger UI — spec generated out-of-band into /docs/doc.json.
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Devices
		r.Put("/devices", h.RegisterDevice)
		r.Delete("/devices", h.UnregisterDevice)

		// Notifications
		r.Get("/notifications", h.ListHistory)
		r.Get("/notifications/pending", h.ListPending)
		r.Post("/notifications", h.SendImmediate)

		// Event reminders
		r.Post("/events/{eventID}/reminders", h.ScheduleEventReminders)
		r.Delete("/events/{eventID}/reminders", h.CancelEventReminders)

		// Preferences
		r.Post("/preferences/{userID}/sync", h.SyncPreferences)

		// Foreground delivery decisions
		r.Post("/delivery/decision", h.DecideForeground)
	})

	return r
}
