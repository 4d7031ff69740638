// Package notify owns the notification scheduling policy: it turns user
// preferences and domain events (a devotional posted, an event created or
// edited, a prayer state change) into the correct set of pending
// notifications, and keeps that set consistent as preferences change.
//
// The policy core never stores its own registry of what is pending — it
// re-derives the desired set and reconciles against whatever the backing
// Service reports, matched by payload kind (and related id for
// event-scoped reminders).
package notify

import "time"

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	dayBeforeOffset  = 24 * time.Hour
	hourBeforeOffset = time.Hour

	// Day-of reminders fire at 08:00 local unless the event starts earlier.
	dayOfReminderHour = 8

	// Fallback slot when no reminder time was ever configured.
	defaultReminderHour = 7

	// The suppression check fails open after this long.
	suppressionTimeout = 3 * time.Second
)

// Kind identifies what a notification is about. It is carried in the
// payload and is the unit of reconciliation.
type Kind string

const (
	KindDevotionalReminder Kind = "devotional_reminder"
	KindPrayerUpdate       Kind = "prayer_update"
	KindEventReminder      Kind = "event_reminder"
)

// Screen hints returned to the app when the user taps a notification.
const (
	ScreenDevotionals = "Devotionals"
	ScreenPrayers     = "Prayers"
	ScreenEvents      = "Events"
)

// --------------------------------------------------------------------------
// Triggers
// --------------------------------------------------------------------------

// TriggerType discriminates the scheduling condition of a request.
type TriggerType string

const (
	TriggerImmediate TriggerType = "immediate"
	TriggerDaily     TriggerType = "daily"
	TriggerAt        TriggerType = "at"
)

// Trigger is the scheduling condition attached to a notification request:
// fire now, repeat every day at a local time, or fire once at an absolute
// instant.
type Trigger struct {
	Type   TriggerType
	Hour   int       // daily only
	Minute int       // daily only
	At     time.Time // at only
}

// Immediately returns a fire-now trigger.
func Immediately() Trigger {
	return Trigger{Type: TriggerImmediate}
}

// DailyAt returns a trigger repeating every day at the given local time.
func DailyAt(hour, minute int) Trigger {
	return Trigger{Type: TriggerDaily, Hour: hour, Minute: minute}
}

// At returns a one-shot trigger for an absolute instant.
func At(t time.Time) Trigger {
	return Trigger{Type: TriggerAt, At: t}
}

// --------------------------------------------------------------------------
// Requests and records
// --------------------------------------------------------------------------

// Slot is a time-of-day reminder slot.
type Slot struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Valid reports whether the slot is a real wall-clock time.
func (s Slot) Valid() bool {
	return s.Hour >= 0 && s.Hour <= 23 && s.Minute >= 0 && s.Minute <= 59
}

// Payload is the opaque data a notification carries. It is read back on
// tap/delivery to route the user and to identify the notification during
// reconciliation.
type Payload struct {
	Kind       Kind   `json:"kind"`
	ScreenHint string `json:"screen_hint"`
	RelatedID  string `json:"related_id,omitempty"`
}

// Request is the unit the scheduler hands to the Service. Requests are
// transient — persistence of what is pending belongs to the Service.
type Request struct {
	Kind    Kind
	Trigger Trigger
	Title   string
	Body    string
	Payload Payload
}

// Record is what the Service reports back for a pending notification.
type Record struct {
	ID      string  `json:"id"`
	Payload Payload `json:"payload"`
}

// --------------------------------------------------------------------------
// Delivery decisions
// --------------------------------------------------------------------------

// DeliveryDecision controls how an incoming notification is surfaced while
// the app can inspect it before display. The four switches are independent
// so future kinds can have different suppression shapes.
type DeliveryDecision struct {
	ShowBanner bool `json:"show_banner"`
	ShowInList bool `json:"show_in_list"`
	PlaySound  bool `json:"play_sound"`
	SetBadge   bool `json:"set_badge"`
}

// ShowAll is the permissive decision: surface the notification normally.
func ShowAll() DeliveryDecision {
	return DeliveryDecision{ShowBanner: true, ShowInList: true, PlaySound: true, SetBadge: true}
}

// Silenced keeps the notification in the in-app list but drops the banner,
// sound, and badge.
func Silenced() DeliveryDecision {
	return DeliveryDecision{ShowInList: true}
}
