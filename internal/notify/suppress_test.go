package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeReader struct {
	HasPostedTodayFunc func(ctx context.Context, userID, groupID string, day time.Time) (bool, error)
}

func (f *fakeReader) HasPostedToday(ctx context.Context, userID, groupID string, day time.Time) (bool, error) {
	if f.HasPostedTodayFunc != nil {
		return f.HasPostedTodayFunc(ctx, userID, groupID, day)
	}
	return false, nil
}

func devotionalPayload() Payload {
	return Payload{Kind: KindDevotionalReminder, ScreenHint: ScreenDevotionals}
}

func TestDecide_NotPostedShowsAll(t *testing.T) {
	gate := NewForegroundGate(&fakeReader{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got := gate.Decide(context.Background(), devotionalPayload(), "u1", "g1")
	if got != ShowAll() {
		t.Fatalf("want permissive decision, got %+v", got)
	}
}

func TestDecide_PostedSuppressesBannerOnly(t *testing.T) {
	today := time.Date(2025, time.May, 6, 9, 30, 0, 0, time.UTC)
	reader := &fakeReader{
		HasPostedTodayFunc: func(ctx context.Context, userID, groupID string, day time.Time) (bool, error) {
			if !day.Equal(today) {
				t.Errorf("posted check for day %v, want %v", day, today)
			}
			return true, nil
		},
	}
	gate := NewForegroundGate(reader, slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithClock(func() time.Time { return today })

	got := gate.Decide(context.Background(), devotionalPayload(), "u1", "g1")
	want := DeliveryDecision{ShowBanner: false, ShowInList: true, PlaySound: false, SetBadge: false}
	if got != want {
		t.Fatalf("want %+v, got %+v", want, got)
	}
}

func TestDecide_ReadErrorFailsOpen(t *testing.T) {
	reader := &fakeReader{
		HasPostedTodayFunc: func(ctx context.Context, userID, groupID string, day time.Time) (bool, error) {
			return false, errors.New("backend unavailable")
		},
	}
	gate := NewForegroundGate(reader, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got := gate.Decide(context.Background(), devotionalPayload(), "u1", "g1")
	if got != ShowAll() {
		t.Fatalf("want permissive decision on read error, got %+v", got)
	}
}

func TestDecide_TimeoutFailsOpen(t *testing.T) {
	reader := &fakeReader{
		HasPostedTodayFunc: func(ctx context.Context, userID, groupID string, day time.Time) (bool, error) {
			select {
			case <-time.After(time.Second):
				return true, nil
			case <-ctx.Done():
				return false, ctx.Err()
			}
		},
	}
	gate := NewForegroundGate(reader, slog.New(slog.NewTextHandler(io.Discard, nil))).WithTimeout(10 * time.Millisecond)

	got := gate.Decide(context.Background(), devotionalPayload(), "u1", "g1")
	if got != ShowAll() {
		t.Fatalf("want permissive decision on timeout, got %+v", got)
	}
}

func TestDecide_OtherKindsNeverSuppressed(t *testing.T) {
	reader := &fakeReader{
		HasPostedTodayFunc: func(ctx context.Context, userID, groupID string, day time.Time) (bool, error) {
			t.Error("suppression check ran for a non-devotional kind")
			return true, nil
		},
	}
	gate := NewForegroundGate(reader, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for _, kind := range []Kind{KindPrayerUpdate, KindEventReminder} {
		got := gate.Decide(context.Background(), Payload{Kind: kind}, "u1", "g1")
		if got != ShowAll() {
			t.Fatalf("kind %s: want permissive decision, got %+v", kind, got)
		}
	}
}

func TestDecide_MissingContextShowsAll(t *testing.T) {
	reader := &fakeReader{
		HasPostedTodayFunc: func(ctx context.Context, userID, groupID string, day time.Time) (bool, error) {
			t.Error("suppression check ran without user context")
			return true, nil
		},
	}
	gate := NewForegroundGate(reader, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if got := gate.Decide(context.Background(), devotionalPayload(), "", ""); got != ShowAll() {
		t.Fatalf("want permissive decision without user context, got %+v", got)
	}
}
