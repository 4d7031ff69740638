package notify

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler translates preference state and one-shot domain events into
// pending notifications, with cancel-before-create semantics so that stale
// or duplicate reminders cannot accumulate.
//
// Scheduling failures are logged and swallowed: callers treat every
// operation as fire-and-forget, and one reminder failing never aborts its
// siblings.
type Scheduler struct {
	svc    Service
	logger *slog.Logger
	now    func() time.Time
}

// NewScheduler creates a scheduler over the given service.
func NewScheduler(svc Service, logger *slog.Logger) *Scheduler {
	return &Scheduler{svc: svc, logger: logger, now: time.Now}
}

// WithClock overrides the time source. Used by tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// --------------------------------------------------------------------------
// Devotional reminders
// --------------------------------------------------------------------------

// ScheduleDevotionalReminders replaces the user's repeating devotional
// reminders with one daily trigger per slot. An empty slot list falls back
// to a single 07:00 reminder. Existing devotional reminders are always
// cancelled first, so calling this twice leaves the same pending set.
func (s *Scheduler) ScheduleDevotionalReminders(ctx context.Context, userID string, slots []Slot) {
	if !s.permitted(ctx, userID) {
		return
	}
	if len(slots) == 0 {
		slots = []Slot{{Hour: defaultReminderHour}}
	}

	desired := make([]Request, 0, len(slots))
	for _, slot := range slots {
		if !slot.Valid() {
			s.logger.Warn("Skipping invalid reminder slot",
				"user_id", userID, "hour", slot.Hour, "minute", slot.Minute)
			continue
		}
		desired = append(desired, Request{
			Kind:    KindDevotionalReminder,
			Trigger: DailyAt(slot.Hour, slot.Minute),
			Title:   "Daily Devotional",
			Body:    "Time to share today's devotional with your group",
			Payload: Payload{Kind: KindDevotionalReminder, ScreenHint: ScreenDevotionals},
		})
	}

	s.reconcile(ctx, userID, matchKind(KindDevotionalReminder), desired)
}

// CancelDevotionalReminders removes every pending devotional reminder.
// Safe to call when none exist.
func (s *Scheduler) CancelDevotionalReminders(ctx context.Context, userID string) {
	s.reconcile(ctx, userID, matchKind(KindDevotionalReminder), nil)
}

// --------------------------------------------------------------------------
// Event reminders
// --------------------------------------------------------------------------

// ScheduleEventReminders replaces the reminder set for one event: every
// previously scheduled reminder carrying the event's id is cancelled, then
// the subset of {24h-before, 1h-before, day-of} still in the future is
// scheduled. Call after creating or editing an event.
func (s *Scheduler) ScheduleEventReminders(ctx context.Context, userID, eventID, title string, startsAt time.Time) {
	if !s.permitted(ctx, userID) {
		return
	}

	reminders := EventReminderTimes(s.now(), startsAt, title)
	desired := make([]Request, 0, len(reminders))
	for _, r := range reminders {
		desired = append(desired, Request{
			Kind:    KindEventReminder,
			Trigger: At(r.At),
			Title:   title,
			Body:    r.Body,
			Payload: Payload{Kind: KindEventReminder, ScreenHint: ScreenEvents, RelatedID: eventID},
		})
	}

	s.reconcile(ctx, userID, matchEvent(eventID), desired)
}

// CancelEventReminders removes every pending reminder for one event. Call
// when an event is deleted.
func (s *Scheduler) CancelEventReminders(ctx context.Context, userID, eventID string) {
	s.reconcile(ctx, userID, matchEvent(eventID), nil)
}

// CancelAll removes every pending notification of one kind. Used by the
// preference reaction loop when a kind's governing flag is switched off.
func (s *Scheduler) CancelAll(ctx context.Context, userID string, kind Kind) {
	s.reconcile(ctx, userID, matchKind(kind), nil)
}

// --------------------------------------------------------------------------
// Immediate notices
// --------------------------------------------------------------------------

// SendImmediate fires a one-shot notification now: prayer updates, event
// created/updated/cancelled notices. No cancellation step — immediates are
// not deduplicated by the scheduler.
func (s *Scheduler) SendImmediate(ctx context.Context, userID string, kind Kind, title, body, relatedID string) {
	if !s.permitted(ctx, userID) {
		return
	}

	hint := ScreenPrayers
	switch kind {
	case KindEventReminder:
		hint = ScreenEvents
	case KindDevotionalReminder:
		hint = ScreenDevotionals
	}

	_, err := s.svc.Schedule(ctx, userID, Request{
		Kind:    kind,
		Trigger: Immediately(),
		Title:   title,
		Body:    body,
		Payload: Payload{Kind: kind, ScreenHint: hint, RelatedID: relatedID},
	})
	if err != nil {
		s.logger.Warn("Immediate notification failed",
			"user_id", userID, "kind", kind, "error", err)
	}
}

// --------------------------------------------------------------------------
// Reconciliation
// --------------------------------------------------------------------------

// reconcile converges the pending set for one match scope: every pending
// notification the matcher selects is cancelled, then the desired requests
// are scheduled. Per-call failures are logged and do not abort siblings.
func (s *Scheduler) reconcile(ctx context.Context, userID string, match func(Payload) bool, desired []Request) {
	pending, err := s.svc.ListPending(ctx, userID)
	if err != nil {
		s.logger.Warn("List pending failed, skipping reconcile",
			"user_id", userID, "error", err)
		return
	}

	for _, rec := range pending {
		if !match(rec.Payload) {
			continue
		}
		if err := s.svc.Cancel(ctx, userID, rec.ID); err != nil {
			s.logger.Warn("Cancel failed",
				"user_id", userID, "notification_id", rec.ID, "error", err)
		}
	}

	for _, req := range desired {
		if _, err := s.svc.Schedule(ctx, userID, req); err != nil {
			s.logger.Warn("Schedule failed",
				"user_id", userID, "kind", req.Kind, "error", err)
		}
	}
}

// permitted checks push permission. Errors fail open: an unreachable
// permission check should not silently disable reminders.
func (s *Scheduler) permitted(ctx context.Context, userID string) bool {
	granted, err := s.svc.RequestPermission(ctx, userID)
	if err != nil {
		s.logger.Warn("Permission check failed, proceeding",
			"user_id", userID, "error", err)
		return true
	}
	if !granted {
		s.logger.Debug("Push permission not granted, skipping", "user_id", userID)
	}
	return granted
}

func matchKind(kind Kind) func(Payload) bool {
	return func(p Payload) bool { return p.Kind == kind }
}

func matchEvent(eventID string) func(Payload) bool {
	return func(p Payload) bool {
		return p.Kind == KindEventReminder && p.RelatedID == eventID
	}
}
