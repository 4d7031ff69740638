package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kindredapp/kindred-notify/internal/notify"
)

// Reactor applies a user's current preferences to their pending
// notification set: enabled kinds are re-issued from scratch, disabled
// kinds are cancelled. It is the single code path behind both the
// change-listener and the periodic re-sync sweep.
type Reactor struct {
	pool   *pgxpool.Pool
	store  *Store
	sched  *notify.Scheduler
	logger *slog.Logger
}

// NewReactor creates a reactor.
func NewReactor(pool *pgxpool.Pool, store *Store, sched *notify.Scheduler, logger *slog.Logger) *Reactor {
	return &Reactor{pool: pool, store: store, sched: sched, logger: logger}
}

// Apply reconciles every notification kind for one user against their
// preference record. A missing record means preferences have not loaded
// yet — nothing is scheduled or cancelled.
func (r *Reactor) Apply(ctx context.Context, userID string) {
	p, err := r.store.Load(ctx, userID)
	if err != nil {
		r.logger.Warn("Preference load failed", "user_id", userID, "error", err)
		return
	}
	if p == nil {
		r.logger.Debug("Preferences not yet present, skipping", "user_id", userID)
		return
	}

	// Devotional reminders: full cancel-and-recreate per the current slots.
	if p.DevotionalRemindersEnabled {
		r.sched.ScheduleDevotionalReminders(ctx, userID, p.DevotionalSlots())
	} else {
		r.sched.CancelDevotionalReminders(ctx, userID)
	}

	// Prayer updates are immediates; disabling just clears anything pending.
	if !p.PrayerNotificationsEnabled {
		r.sched.CancelAll(ctx, userID, notify.KindPrayerUpdate)
	}

	// Event reminders: re-derive from the user's upcoming RSVP'd events.
	if p.EventAlertsEnabled {
		r.resyncEvents(ctx, userID)
	} else {
		r.sched.CancelAll(ctx, userID, notify.KindEventReminder)
	}
}

// resyncEvents reschedules reminders for each upcoming event the user has
// RSVP'd to. One event failing never blocks the rest.
func (r *Reactor) resyncEvents(ctx context.Context, userID string) {
	events, err := r.upcomingEvents(ctx, userID)
	if err != nil {
		r.logger.Warn("Upcoming events lookup failed", "user_id", userID, "error", err)
		return
	}
	for _, ev := range events {
		r.sched.ScheduleEventReminders(ctx, userID, ev.ID, ev.Title, ev.StartsAt)
	}
}

type upcomingEvent struct {
	ID       string
	Title    string
	StartsAt time.Time
}

func (r *Reactor) upcomingEvents(ctx context.Context, userID string) ([]upcomingEvent, error) {
	rows, err := r.pool.Query(ctx, "upcoming_user_events", userID)
	if err != nil {
		return nil, fmt.Errorf("upcoming events: %w", err)
	}
	defer rows.Close()

	var events []upcomingEvent
	for rows.Next() {
		var ev upcomingEvent
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.StartsAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
