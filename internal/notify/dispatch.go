package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kindredapp/kindred-notify/internal/push"
)

const (
	dispatchInterval  = 30 * time.Second
	dispatchBatchSize = 100
)

// StartDispatcher runs a background loop that delivers due notifications.
// Blocks until ctx is cancelled. Intended to be called with `go`.
func StartDispatcher(ctx context.Context, pool *pgxpool.Pool, sender *push.Sender, tokens *push.TokenStore, logger *slog.Logger) {
	logger.Info("Notification dispatcher started", "interval", dispatchInterval)
	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sent, failed, err := DispatchBatch(ctx, pool, sender, tokens, logger)
			if err != nil {
				logger.Error("dispatch error", "error", err)
			} else if sent+failed > 0 {
				logger.Info("dispatch batch", "sent", sent, "failed", failed)
			}
		case <-ctx.Done():
			logger.Info("Notification dispatcher stopped")
			return
		}
	}
}

// dueRow is a claimed notification ready for delivery.
type dueRow struct {
	ID            string
	UserID        string
	Kind          string
	Title         string
	Body          string
	ScreenHint    string
	RelatedID     string
	TriggerType   string
	TriggerHour   int
	TriggerMinute int
}

// DispatchBatch claims due notifications and delivers them. One-shot rows
// are marked sent or failed; daily rows are re-armed for the next local
// occurrence either way, so a failed delivery costs one day, not the
// reminder itself.
func DispatchBatch(ctx context.Context, pool *pgxpool.Pool, sender *push.Sender, tokens *push.TokenStore, logger *slog.Logger) (sent, failed int, err error) {
	claimed, err := claimDue(ctx, pool)
	if err != nil {
		return 0, 0, err
	}

	for _, row := range claimed {
		data := map[string]string{
			"kind":        row.Kind,
			"screen_hint": row.ScreenHint,
		}
		if row.RelatedID != "" {
			data["related_id"] = row.RelatedID
		}

		var sendErr error
		devices, tokErr := tokens.Active(ctx, row.UserID)
		switch {
		case tokErr != nil:
			sendErr = fmt.Errorf("device tokens: %w", tokErr)
		case len(devices) == 0:
			sendErr = fmt.Errorf("no active device tokens for user %s", row.UserID)
		default:
			sendErr = sender.SendMulti(ctx, devices, row.Title, row.Body, data)
		}

		if row.TriggerType == string(TriggerDaily) {
			if sendErr != nil {
				logger.Warn("daily reminder delivery failed, re-arming",
					"notification_id", row.ID, "error", sendErr)
				failed++
			} else {
				sent++
			}
			if err := rearmDaily(ctx, pool, row); err != nil {
				logger.Warn("re-arm failed", "notification_id", row.ID, "error", err)
			}
			continue
		}

		if sendErr != nil {
			logger.Warn("delivery failed", "notification_id", row.ID, "error", sendErr)
			_ = markFailed(ctx, pool, row.ID, sendErr.Error())
			failed++
		} else {
			_ = markSent(ctx, pool, row.ID)
			sent++
		}
	}
	return sent, failed, nil
}

// claimDue atomically claims a batch of due notifications for delivery.
// Uses FOR UPDATE SKIP LOCKED for safe concurrent dispatch.
func claimDue(ctx context.Context, pool *pgxpool.Pool) ([]dueRow, error) {
	rows, err := pool.Query(ctx, `
		UPDATE pending_notifications
		SET status = 'sending', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM pending_notifications
			WHERE status = 'scheduled' AND next_fire_at <= NOW()
			ORDER BY next_fire_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, user_id, kind, title, body, screen_hint, related_id,
		          trigger_type, trigger_hour, trigger_minute`,
		dispatchBatchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due notifications: %w", err)
	}
	defer rows.Close()

	var claimed []dueRow
	for rows.Next() {
		var r dueRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.Kind, &r.Title, &r.Body,
			&r.ScreenHint, &r.RelatedID, &r.TriggerType, &r.TriggerHour, &r.TriggerMinute); err != nil {
			return nil, fmt.Errorf("scan claimed: %w", err)
		}
		claimed = append(claimed, r)
	}
	return claimed, rows.Err()
}

// rearmDaily schedules the next occurrence of a daily reminder. The next
// fire is recomputed from the stored slot in the user's timezone rather
// than by adding 24 absolute hours, so the local wall-clock time holds
// across DST transitions.
func rearmDaily(ctx context.Context, pool *pgxpool.Pool, row dueRow) error {
	loc := time.UTC
	var tz string
	if err := pool.QueryRow(ctx, "user_timezone", row.UserID).Scan(&tz); err == nil {
		if l, lerr := time.LoadLocation(tz); lerr == nil {
			loc = l
		}
	}
	next := NextDailyFire(time.Now(), Slot{Hour: row.TriggerHour, Minute: row.TriggerMinute}, loc)

	_, err := pool.Exec(ctx, `
		UPDATE pending_notifications
		SET status = 'scheduled', next_fire_at = $2,
		    last_sent_at = NOW(), updated_at = NOW()
		WHERE id = $1`, row.ID, next)
	return err
}

func markSent(ctx context.Context, pool *pgxpool.Pool, id string) error {
	_, err := pool.Exec(ctx, `
		UPDATE pending_notifications
		SET status = 'sent', sent_at = NOW(), updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

func markFailed(ctx context.Context, pool *pgxpool.Pool, id string, reason string) error {
	_, err := pool.Exec(ctx, `
		UPDATE pending_notifications
		SET status = 'failed', last_error = $2, updated_at = NOW()
		WHERE id = $1`, id, reason)
	return err
}
