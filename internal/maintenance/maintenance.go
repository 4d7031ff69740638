// Package maintenance runs periodic background tasks as Go tickers.
// Replaces pg_cron — all scheduled work is driven from Go since the
// service is already persistent and long-running (required for
// LISTEN/NOTIFY).
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kindredapp/kindred-notify/internal/prefs"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	CleanupInterval time.Duration // Purge old sent/failed rows, stale tokens
	ResyncInterval  time.Duration // Re-issue reminders missed during downtime
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval: 30 * time.Minute,
		ResyncInterval:  6 * time.Hour,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pool *pgxpool.Pool, reactor *prefs.Reactor, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"cleanup", cfg.CleanupInterval,
		"resync", cfg.ResyncInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Cleanup: remove delivered/failed notifications past retention and
	// deactivate tokens that have not been refreshed in months.
	if cfg.CleanupInterval > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, pool, logger) })
	}

	// Re-sync: re-apply preferences for every user with devotional
	// reminders enabled. Catches NOTIFY events missed during downtime —
	// reconciliation is idempotent, so re-applying is always safe.
	if cfg.ResyncInterval > 0 {
		t := time.NewTicker(cfg.ResyncInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { resync(ctx, pool, reactor, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// cleanup removes notifications older than 30 days that have been sent or
// failed, and deactivates device tokens untouched for 90 days.
func cleanup(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM pending_notifications
		WHERE status IN ('sent', 'failed')
		  AND updated_at < NOW() - INTERVAL '30 days'`)
	if err != nil {
		logger.Warn("Cleanup: failed to purge old notifications", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Cleanup: purged old notifications", "count", tag.RowsAffected())
	}

	tag, err = pool.Exec(ctx, `
		UPDATE user_devices SET is_active = false
		WHERE is_active = true
		  AND updated_at < NOW() - INTERVAL '90 days'`)
	if err != nil {
		logger.Warn("Cleanup: failed to deactivate stale tokens", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Cleanup: deactivated stale tokens", "count", tag.RowsAffected())
	}
}

// resync re-applies preferences for users with devotional reminders on.
func resync(ctx context.Context, pool *pgxpool.Pool, reactor *prefs.Reactor, logger *slog.Logger) {
	rows, err := pool.Query(ctx, "users_with_devotional_reminders")
	if err != nil {
		logger.Warn("Resync: user query failed", "error", err)
		return
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			logger.Warn("Resync: scan failed", "error", err)
			return
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		logger.Warn("Resync: rows error", "error", err)
		return
	}

	for _, id := range users {
		reactor.Apply(ctx, id)
	}
	if len(users) > 0 {
		logger.Info("Resync complete", "users", len(users))
	}
}
