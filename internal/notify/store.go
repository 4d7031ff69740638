package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgService is the Postgres-backed notification service: scheduling
// inserts a pending row, cancelling deletes it, and listing reads the
// user's scheduled rows. The dispatch worker (dispatch.go) delivers rows
// as they come due.
type PgService struct {
	pool *pgxpool.Pool
}

// NewPgService creates a service over the given pool.
func NewPgService(pool *pgxpool.Pool) *PgService {
	return &PgService{pool: pool}
}

// Schedule inserts a pending notification row and returns its identifier.
// Daily triggers are stored with their slot so the dispatcher can re-arm
// them after each delivery.
func (s *PgService) Schedule(ctx context.Context, userID string, req Request) (string, error) {
	fireAt, err := s.firstFire(ctx, userID, req.Trigger)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pending_notifications (
			id, user_id, kind, screen_hint, related_id,
			title, body, trigger_type, trigger_hour, trigger_minute,
			status, next_fire_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'scheduled',$11)`,
		id, userID, string(req.Kind), req.Payload.ScreenHint, req.Payload.RelatedID,
		req.Title, req.Body, string(req.Trigger.Type), req.Trigger.Hour, req.Trigger.Minute,
		fireAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// Cancel deletes a pending notification. Unknown identifiers are a no-op.
func (s *PgService) Cancel(ctx context.Context, userID, id string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM pending_notifications
		WHERE id = $1 AND user_id = $2 AND status = 'scheduled'`, id, userID)
	if err != nil {
		return fmt.Errorf("cancel notification: %w", err)
	}
	return nil
}

// ListPending returns the user's scheduled notifications.
func (s *PgService) ListPending(ctx context.Context, userID string) ([]Record, error) {
	rows, err := s.pool.Query(ctx, "list_pending_notifications", userID)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var kind string
		if err := rows.Scan(&rec.ID, &kind, &rec.Payload.ScreenHint, &rec.Payload.RelatedID); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		rec.Payload.Kind = Kind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RequestPermission reports the user's push-permission flag. Unknown users
// have not granted anything.
func (s *PgService) RequestPermission(ctx context.Context, userID string) (bool, error) {
	var granted bool
	err := s.pool.QueryRow(ctx, "user_push_permission", userID).Scan(&granted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("push permission: %w", err)
	}
	return granted, nil
}

// firstFire resolves a trigger to its first delivery instant. Daily slots
// fire in the user's timezone.
func (s *PgService) firstFire(ctx context.Context, userID string, t Trigger) (time.Time, error) {
	switch t.Type {
	case TriggerImmediate:
		return time.Now(), nil
	case TriggerAt:
		return t.At, nil
	case TriggerDaily:
		loc, err := s.userLocation(ctx, userID)
		if err != nil {
			loc = time.UTC
		}
		return NextDailyFire(time.Now(), Slot{Hour: t.Hour, Minute: t.Minute}, loc), nil
	default:
		return time.Time{}, fmt.Errorf("unknown trigger type %q", t.Type)
	}
}

func (s *PgService) userLocation(ctx context.Context, userID string) (*time.Location, error) {
	var tz string
	if err := s.pool.QueryRow(ctx, "user_timezone", userID).Scan(&tz); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return loc, nil
}
