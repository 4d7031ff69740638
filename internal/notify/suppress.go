package notify

import (
	"context"
	"log/slog"
	"time"
)

// DevotionalReader answers the single domain question the suppression
// check needs: has the user already posted a devotional for this group on
// this calendar day.
type DevotionalReader interface {
	HasPostedToday(ctx context.Context, userID, groupID string, day time.Time) (bool, error)
}

// ForegroundGate decides whether an incoming notification should visibly
// alert the user. Only devotional reminders are ever downgraded: a user
// who already posted today gets the list entry but no banner, sound, or
// badge. Every failure path resolves permissive — a failed check must
// never hide a legitimate reminder.
type ForegroundGate struct {
	reader  DevotionalReader
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewForegroundGate creates a gate with the default check timeout.
func NewForegroundGate(reader DevotionalReader, logger *slog.Logger) *ForegroundGate {
	return &ForegroundGate{
		reader:  reader,
		logger:  logger,
		timeout: suppressionTimeout,
		now:     time.Now,
	}
}

// WithTimeout overrides the suppression-check timeout.
func (g *ForegroundGate) WithTimeout(d time.Duration) *ForegroundGate {
	g.timeout = d
	return g
}

// WithClock overrides the time source. Used by tests.
func (g *ForegroundGate) WithClock(now func() time.Time) *ForegroundGate {
	g.now = now
	return g
}

// Decide returns the delivery decision for an incoming notification.
func (g *ForegroundGate) Decide(ctx context.Context, p Payload, userID, groupID string) DeliveryDecision {
	if p.Kind != KindDevotionalReminder || userID == "" || groupID == "" {
		return ShowAll()
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	posted, err := g.reader.HasPostedToday(ctx, userID, groupID, g.now())
	if err != nil {
		g.logger.Warn("Suppression check failed, showing normally",
			"user_id", userID, "group_id", groupID, "error", err)
		return ShowAll()
	}
	if posted {
		return Silenced()
	}
	return ShowAll()
}
