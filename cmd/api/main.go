// Command api is the Kindred Notify service: it schedules, reconciles,
// and delivers fellowship-group notifications.
//
// Usage:
//
//	kindred-notify-api
//	API_PORT=8080 kindred-notify-api

// @title Kindred Notify API
// @version 1.0.0
// @description Notification scheduling service for Kindred fellowship groups: devotional reminders, event reminders, prayer updates, and foreground delivery decisions.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Kindred
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/kindredapp/kindred-notify/internal/api"
	"github.com/kindredapp/kindred-notify/internal/config"
	"github.com/kindredapp/kindred-notify/internal/db"
	"github.com/kindredapp/kindred-notify/internal/devotional"
	"github.com/kindredapp/kindred-notify/internal/maintenance"
	"github.com/kindredapp/kindred-notify/internal/notify"
	"github.com/kindredapp/kindred-notify/internal/prefs"
	"github.com/kindredapp/kindred-notify/internal/push"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Optional Redis cache for the suppression check
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, suppression cache disabled", "error", err)
			rdb = nil
		} else {
			logger.Info("Redis connected", "addr", cfg.RedisAddr)
		}
	}

	// Scheduling core
	svc := notify.NewPgService(pool.Pool)
	sched := notify.NewScheduler(svc, logger)
	reader := devotional.NewReader(pool.Pool, rdb, logger)
	gate := notify.NewForegroundGate(reader, logger)
	tokens := push.NewTokenStore(pool.Pool)
	prefStore := prefs.NewStore(pool.Pool)
	reactor := prefs.NewReactor(pool.Pool, prefStore, sched, logger)

	// Push sender (nil-safe when FCM is not configured)
	sender := push.NewSender(cfg.FCMCredentialsFile, logger)
	if sender != nil {
		logger.Info("Push sender configured")
	} else {
		logger.Info("Push sender disabled (no FIREBASE_CREDENTIALS_FILE)")
	}

	// Background loops: delivery, preference reaction, maintenance
	go notify.StartDispatcher(ctx, pool.Pool, sender, tokens, logger)
	go prefs.Listen(ctx, cfg.DatabaseURL, reactor, logger)
	go maintenance.Start(ctx, pool.Pool, reactor, maintenance.DefaultConfig(), logger)

	// Create router
	router := api.NewRouter(pool.Pool, cfg, logger, svc, sched, gate, tokens, reactor)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Kindred Notify API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
