package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

// fakeService is an in-memory Service. Error behavior is overridable via
// the ...Func fields.
type fakeService struct {
	nextID  int
	pending map[string]Record
	reqs    map[string]Request
	granted bool

	ScheduleFunc   func(req Request) error
	PermissionFunc func() (bool, error)
}

func newFakeService() *fakeService {
	return &fakeService{
		pending: make(map[string]Record),
		reqs:    make(map[string]Request),
		granted: true,
	}
}

func (f *fakeService) Schedule(ctx context.Context, userID string, req Request) (string, error) {
	if f.ScheduleFunc != nil {
		if err := f.ScheduleFunc(req); err != nil {
			return "", err
		}
	}
	f.nextID++
	id := fmt.Sprintf("n%d", f.nextID)
	f.pending[id] = Record{ID: id, Payload: req.Payload}
	f.reqs[id] = req
	return id, nil
}

func (f *fakeService) Cancel(ctx context.Context, userID, id string) error {
	delete(f.pending, id)
	delete(f.reqs, id)
	return nil
}

func (f *fakeService) ListPending(ctx context.Context, userID string) ([]Record, error) {
	out := make([]Record, 0, len(f.pending))
	for _, rec := range f.pending {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeService) RequestPermission(ctx context.Context, userID string) (bool, error) {
	if f.PermissionFunc != nil {
		return f.PermissionFunc()
	}
	return f.granted, nil
}

func (f *fakeService) countKind(kind Kind) int {
	n := 0
	for _, rec := range f.pending {
		if rec.Payload.Kind == kind {
			n++
		}
	}
	return n
}

func (f *fakeService) countEvent(eventID string) int {
	n := 0
	for _, rec := range f.pending {
		if rec.Payload.Kind == KindEventReminder && rec.Payload.RelatedID == eventID {
			n++
		}
	}
	return n
}

func testScheduler(svc Service) *Scheduler {
	return NewScheduler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScheduleDevotionalReminders_Idempotent(t *testing.T) {
	svc := newFakeService()
	s := testScheduler(svc)
	ctx := context.Background()
	slots := []Slot{{Hour: 7}, {Hour: 12}}

	s.ScheduleDevotionalReminders(ctx, "u1", slots)
	s.ScheduleDevotionalReminders(ctx, "u1", slots)

	if got := svc.countKind(KindDevotionalReminder); got != 2 {
		t.Fatalf("want 2 pending devotional reminders after rescheduling, got %d", got)
	}
}

func TestScheduleDevotionalReminders_EmptyFallsBack(t *testing.T) {
	svc := newFakeService()
	s := testScheduler(svc)

	s.ScheduleDevotionalReminders(context.Background(), "u1", nil)

	if got := svc.countKind(KindDevotionalReminder); got != 1 {
		t.Fatalf("want 1 fallback reminder, got %d", got)
	}
	for _, req := range svc.reqs {
		if req.Trigger.Type != TriggerDaily || req.Trigger.Hour != 7 || req.Trigger.Minute != 0 {
			t.Errorf("fallback trigger = %+v, want daily 07:00", req.Trigger)
		}
	}
}

func TestCancelDevotionalReminders_KindIsolation(t *testing.T) {
	svc := newFakeService()
	s := testScheduler(svc)
	ctx := context.Background()

	s.ScheduleDevotionalReminders(ctx, "u1", []Slot{{Hour: 7}})
	s.ScheduleEventReminders(ctx, "u1", "ev1", "Picnic", time.Now().Add(30*time.Hour))
	s.SendImmediate(ctx, "u1", KindPrayerUpdate, "Someone prayed for you", "", "")

	s.CancelDevotionalReminders(ctx, "u1")

	if got := svc.countKind(KindDevotionalReminder); got != 0 {
		t.Errorf("want 0 devotional reminders, got %d", got)
	}
	if got := svc.countKind(KindEventReminder); got == 0 {
		t.Error("event reminders were removed by a devotional cancel")
	}
	if got := svc.countKind(KindPrayerUpdate); got != 1 {
		t.Errorf("want 1 prayer notification, got %d", got)
	}
}

func TestCancelDevotionalReminders_NoneIsNoop(t *testing.T) {
	svc := newFakeService()
	s := testScheduler(svc)

	s.CancelDevotionalReminders(context.Background(), "u1")

	if len(svc.pending) != 0 {
		t.Fatalf("want empty pending set, got %d", len(svc.pending))
	}
}

func TestScheduleEventReminders_EditReplacesSet(t *testing.T) {
	svc := newFakeService()
	ctx := context.Background()
	now := at(t, "America/Chicago", 2025, time.May, 5, 10, 0)
	s := testScheduler(svc).WithClock(func() time.Time { return now })

	s.ScheduleEventReminders(ctx, "u1", "ev1", "Retreat", now.Add(30*time.Hour))
	if got := svc.countEvent("ev1"); got != 3 {
		t.Fatalf("want 3 reminders before edit, got %d", got)
	}

	// Edit moves the event closer: the old set must be fully replaced.
	s.ScheduleEventReminders(ctx, "u1", "ev1", "Retreat", now.Add(26*time.Hour))
	if got := svc.countEvent("ev1"); got != 3 {
		t.Fatalf("want 3 reminders after edit, got %d", got)
	}
	for _, req := range svc.reqs {
		if req.Kind != KindEventReminder {
			continue
		}
		if req.Trigger.At.After(now.Add(26 * time.Hour)) {
			t.Errorf("orphaned reminder for the old event time at %v", req.Trigger.At)
		}
	}
}

func TestScheduleEventReminders_ScopedToEvent(t *testing.T) {
	svc := newFakeService()
	s := testScheduler(svc)
	ctx := context.Background()
	now := time.Now()

	s.ScheduleEventReminders(ctx, "u1", "ev1", "Picnic", now.Add(30*time.Hour))
	s.ScheduleEventReminders(ctx, "u1", "ev2", "Retreat", now.Add(48*time.Hour))

	s.CancelEventReminders(ctx, "u1", "ev1")

	if got := svc.countEvent("ev1"); got != 0 {
		t.Errorf("want 0 reminders for cancelled event, got %d", got)
	}
	if got := svc.countEvent("ev2"); got != 3 {
		t.Errorf("want 3 reminders for other event, got %d", got)
	}
}

func TestPermissionDenied_SchedulingIsNoop(t *testing.T) {
	svc := newFakeService()
	svc.granted = false
	s := testScheduler(svc)
	ctx := context.Background()

	s.ScheduleDevotionalReminders(ctx, "u1", []Slot{{Hour: 7}})
	s.ScheduleEventReminders(ctx, "u1", "ev1", "Picnic", time.Now().Add(30*time.Hour))
	s.SendImmediate(ctx, "u1", KindPrayerUpdate, "x", "", "")

	if len(svc.pending) != 0 {
		t.Fatalf("want no pending notifications without permission, got %d", len(svc.pending))
	}
}

func TestPermissionCheckError_FailsOpen(t *testing.T) {
	svc := newFakeService()
	svc.PermissionFunc = func() (bool, error) {
		return false, errors.New("permission store unreachable")
	}
	s := testScheduler(svc)

	s.ScheduleDevotionalReminders(context.Background(), "u1", []Slot{{Hour: 7}})

	if got := svc.countKind(KindDevotionalReminder); got != 1 {
		t.Fatalf("want scheduling to proceed on permission-check error, got %d pending", got)
	}
}

func TestScheduleFailure_DoesNotAbortSiblings(t *testing.T) {
	svc := newFakeService()
	failed := false
	svc.ScheduleFunc = func(req Request) error {
		// Fail only the first (24h) event reminder.
		if req.Kind == KindEventReminder && !failed {
			failed = true
			return errors.New("scheduling rejected")
		}
		return nil
	}
	s := testScheduler(svc)

	s.ScheduleEventReminders(context.Background(), "u1", "ev1", "Picnic", time.Now().Add(30*time.Hour))

	if got := svc.countEvent("ev1"); got != 2 {
		t.Fatalf("want 2 surviving reminders after one failure, got %d", got)
	}
}

func TestSendImmediate_ScreenHints(t *testing.T) {
	svc := newFakeService()
	s := testScheduler(svc)
	ctx := context.Background()

	want := map[Kind]string{
		KindPrayerUpdate:       ScreenPrayers,
		KindEventReminder:      ScreenEvents,
		KindDevotionalReminder: ScreenDevotionals,
	}
	for kind := range want {
		s.SendImmediate(ctx, "u1", kind, "t", "", "")
	}

	for _, req := range svc.reqs {
		if req.Payload.ScreenHint != want[req.Kind] {
			t.Errorf("kind %s: screen hint %q, want %q",
				req.Kind, req.Payload.ScreenHint, want[req.Kind])
		}
	}
}

func TestCancelAll_ClearsKind(t *testing.T) {
	svc := newFakeService()
	s := testScheduler(svc)
	ctx := context.Background()

	s.SendImmediate(ctx, "u1", KindPrayerUpdate, "a", "", "")
	s.SendImmediate(ctx, "u1", KindPrayerUpdate, "b", "", "")
	s.ScheduleDevotionalReminders(ctx, "u1", []Slot{{Hour: 7}})

	s.CancelAll(ctx, "u1", KindPrayerUpdate)

	if got := svc.countKind(KindPrayerUpdate); got != 0 {
		t.Errorf("want 0 prayer notifications, got %d", got)
	}
	if got := svc.countKind(KindDevotionalReminder); got != 1 {
		t.Errorf("want devotional reminder untouched, got %d", got)
	}
}
