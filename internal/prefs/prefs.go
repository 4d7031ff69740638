// Package prefs reads per-user notification preferences and reacts to
// their changes. The reaction loop never diffs individual slots: any
// change recomputes the full desired set for the affected kind from
// scratch, so stale or duplicate reminders cannot accumulate.
package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kindredapp/kindred-notify/internal/notify"
)

// Default slot times used when a configured slot has no stored time.
var defaultSlots = [3]notify.Slot{
	{Hour: 7},
	{Hour: 12},
	{Hour: 18},
}

// Preferences is one user's notification preference record.
type Preferences struct {
	UserID string

	DevotionalRemindersEnabled bool
	ReminderCount              int // 0–3 configured devotional slots
	SlotHours                  [3]*int
	SlotMinutes                [3]*int

	// Legacy single-reminder pair, used when no slots are configured.
	LegacyHour   *int
	LegacyMinute *int

	PrayerNotificationsEnabled bool
	EventAlertsEnabled         bool
}

// DevotionalSlots resolves the configured slots to concrete times: each of
// the first ReminderCount slots takes its stored time or the smart default
// for its position (07:00, 12:00, 18:00). With no slots configured the
// result falls back to the legacy pair, defaulting to 07:00.
func (p *Preferences) DevotionalSlots() []notify.Slot {
	count := p.ReminderCount
	if count > 3 {
		count = 3
	}

	slots := make([]notify.Slot, 0, count)
	for i := 0; i < count; i++ {
		slot := defaultSlots[i]
		if p.SlotHours[i] != nil {
			slot.Hour = *p.SlotHours[i]
		}
		if p.SlotMinutes[i] != nil {
			slot.Minute = *p.SlotMinutes[i]
		}
		slots = append(slots, slot)
	}

	legacy := notify.Slot{Hour: -1}
	if p.LegacyHour != nil {
		legacy = notify.Slot{Hour: *p.LegacyHour}
		if p.LegacyMinute != nil {
			legacy.Minute = *p.LegacyMinute
		}
	}
	return notify.NormalizeSlots(slots, legacy)
}

// Store loads preference records from Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a preference store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Load returns the user's preference record, or nil when none exists yet.
// Callers must treat a nil record as "not loaded" and skip scheduling.
func (s *Store) Load(ctx context.Context, userID string) (*Preferences, error) {
	p := &Preferences{UserID: userID}
	err := s.pool.QueryRow(ctx, "load_user_preferences", userID).Scan(
		&p.DevotionalRemindersEnabled, &p.ReminderCount,
		&p.SlotHours[0], &p.SlotMinutes[0],
		&p.SlotHours[1], &p.SlotMinutes[1],
		&p.SlotHours[2], &p.SlotMinutes[2],
		&p.LegacyHour, &p.LegacyMinute,
		&p.PrayerNotificationsEnabled, &p.EventAlertsEnabled,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	return p, nil
}
