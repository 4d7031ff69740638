package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	channel          = "preference_changed"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// ChangeEvent is the JSON payload from pg_notify('preference_changed', ...),
// fired by a trigger on the preference table.
type ChangeEvent struct {
	UserID    string `json:"user_id"`
	Timestamp int64  `json:"ts"`
}

// Listen opens a dedicated connection (not from the pool) and listens on
// the preference_changed channel, applying the reactor per event. Events
// are handled serially on the listen connection, which keeps cancel+create
// sequences for one user from interleaving. Reconnects automatically on
// connection loss. Blocks until ctx is cancelled; intended to be called
// with `go`.
func Listen(ctx context.Context, dbURL string, reactor *Reactor, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		connected, err := listenLoop(ctx, dbURL, reactor, logger)
		if ctx.Err() != nil {
			logger.Info("Preference listener stopped (context cancelled)")
			return
		}

		backoff = nextBackoff(backoff, connected)
		logger.Error("Preference listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
	}
}

// nextBackoff doubles the reconnect delay up to the cap. A session that
// got as far as LISTEN resets the progression.
func nextBackoff(current time.Duration, connected bool) time.Duration {
	if connected {
		return reconnectBackoff
	}
	return min(current*2, maxReconnect)
}

// listenLoop runs a single listen session. Returns when the connection
// drops or the context is cancelled; connected reports whether LISTEN
// was established before the session ended.
func listenLoop(ctx context.Context, dbURL string, reactor *Reactor, logger *slog.Logger) (connected bool, _ error) {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return false, fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Preference listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, fmt.Errorf("wait for notification: %w", err)
		}

		var event ChangeEvent
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			logger.Warn("Failed to parse preference event",
				"payload", notification.Payload, "error", err)
			continue
		}
		if event.UserID == "" {
			continue
		}

		logger.Info("Preference change received", "user_id", event.UserID)
		reactor.Apply(ctx, event.UserID)
	}
}
