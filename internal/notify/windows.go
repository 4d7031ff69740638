package notify

import (
	"fmt"
	"time"
)

// EventReminder is one eligible reminder for an upcoming event.
type EventReminder struct {
	Label string // "24h" | "1h" | "day_of"
	At    time.Time
	Body  string
}

// EventReminderTimes computes which of the {24h-before, 1h-before, day-of}
// reminders are still eligible for an event starting at startsAt, relative
// to now. The three checks are independent: an event 20 hours out gets the
// 1h and day-of reminders only, an event 30 minutes out gets at most the
// day-of reminder.
//
// The day-of reminder fires at 08:00 local on the event's calendar day,
// or exactly at the event's start when the event begins before 08:00. A
// computed trigger already in the past is dropped, never shifted — when
// now is past 08:00 on the event's day the day-of slot is silently skipped.
func EventReminderTimes(now, startsAt time.Time, title string) []EventReminder {
	var out []EventReminder
	until := startsAt.Sub(now)

	// 24 hours before
	if until >= dayBeforeOffset {
		at := startsAt.Add(-dayBeforeOffset)
		if at.After(now) {
			out = append(out, EventReminder{
				Label: "24h",
				At:    at,
				Body:  fmt.Sprintf("%s starts in 24 hours", title),
			})
		}
	}

	// 1 hour before
	if until >= hourBeforeOffset {
		at := startsAt.Add(-hourBeforeOffset)
		if at.After(now) {
			out = append(out, EventReminder{
				Label: "1h",
				At:    at,
				Body:  fmt.Sprintf("%s starts in 1 hour", title),
			})
		}
	}

	// Day-of, 08:00 local or the event time itself for early events. Never
	// notify after the event already started.
	if startsAt.After(now) {
		at := time.Date(startsAt.Year(), startsAt.Month(), startsAt.Day(),
			dayOfReminderHour, 0, 0, 0, startsAt.Location())
		if startsAt.Before(at) {
			at = startsAt
		}
		if at.After(now) {
			out = append(out, EventReminder{
				Label: "day_of",
				At:    at,
				Body:  fmt.Sprintf("%s is today", title),
			})
		}
	}

	return out
}

// NextDailyFire returns the next occurrence of a daily slot in the given
// location: today at hour:minute if that is still ahead of now, otherwise
// tomorrow.
func NextDailyFire(now time.Time, slot Slot, loc *time.Location) time.Time {
	local := now.In(loc)
	fire := time.Date(local.Year(), local.Month(), local.Day(),
		slot.Hour, slot.Minute, 0, 0, loc)
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// NormalizeSlots validates and bounds reminder slots: invalid entries are
// dropped, at most three are kept, and an empty result falls back to the
// single legacy slot (07:00 when the legacy pair was never configured).
func NormalizeSlots(slots []Slot, legacy Slot) []Slot {
	valid := make([]Slot, 0, 3)
	for _, s := range slots {
		if !s.Valid() {
			continue
		}
		valid = append(valid, s)
		if len(valid) == 3 {
			break
		}
	}
	if len(valid) > 0 {
		return valid
	}
	if !legacy.Valid() {
		legacy = Slot{Hour: defaultReminderHour}
	}
	return []Slot{legacy}
}
