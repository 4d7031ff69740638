// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kindredapp/kindred-notify/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the scheduling and
// API layers use. Prepared statements eliminate parse overhead on every
// request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Users
		"user_push_permission": "SELECT push_permission FROM users WHERE id = $1",
		"user_timezone":        "SELECT timezone FROM users WHERE id = $1",

		// Pending notifications
		"list_pending_notifications": `
			SELECT id, kind, screen_hint, COALESCE(related_id, '')
			FROM pending_notifications
			WHERE user_id = $1 AND status = 'scheduled'
			ORDER BY next_fire_at`,

		// In-app notification history
		"list_notification_history": `
			SELECT id, kind, title, body, screen_hint, COALESCE(related_id, ''), sent_at
			FROM pending_notifications
			WHERE user_id = $1 AND status = 'sent'
			ORDER BY sent_at DESC
			LIMIT $2`,

		// Preferences
		"load_user_preferences": `
			SELECT devotional_reminders_enabled, reminder_count,
			       reminder1_hour, reminder1_minute,
			       reminder2_hour, reminder2_minute,
			       reminder3_hour, reminder3_minute,
			       legacy_reminder_hour, legacy_reminder_minute,
			       prayer_notifications_enabled, event_alerts_enabled
			FROM notification_preferences
			WHERE user_id = $1`,

		// Events the user has RSVP'd to
		"upcoming_user_events": `
			SELECT e.id, e.title, e.starts_at
			FROM events e
			JOIN event_rsvps r ON r.event_id = e.id
			WHERE r.user_id = $1 AND r.status = 'going' AND e.starts_at > NOW()
			ORDER BY e.starts_at`,

		"event_by_id": "SELECT id, title, starts_at FROM events WHERE id = $1",

		// Devotional suppression check
		"devotional_posted_today": `
			SELECT EXISTS (
				SELECT 1 FROM devotional_posts
				WHERE user_id = $1 AND group_id = $2 AND post_date = $3
			)`,

		// Push tokens
		"get_user_device_tokens": "SELECT token FROM user_devices WHERE user_id = $1 AND is_active = true",

		// Re-sync sweep
		"users_with_devotional_reminders": `
			SELECT user_id FROM notification_preferences
			WHERE devotional_reminders_enabled = true`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
