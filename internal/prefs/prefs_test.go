package prefs

import (
	"testing"

	"github.com/kindredapp/kindred-notify/internal/notify"
)

func intp(n int) *int { return &n }

func TestDevotionalSlots(t *testing.T) {
	tests := []struct {
		name  string
		prefs Preferences
		want  []notify.Slot
	}{
		{
			name: "configured slots win",
			prefs: Preferences{
				ReminderCount: 2,
				SlotHours:     [3]*int{intp(6), intp(20), nil},
				SlotMinutes:   [3]*int{intp(30), intp(0), nil},
			},
			want: []notify.Slot{{Hour: 6, Minute: 30}, {Hour: 20}},
		},
		{
			name: "unset slots take positional defaults",
			prefs: Preferences{
				ReminderCount: 3,
			},
			want: []notify.Slot{{Hour: 7}, {Hour: 12}, {Hour: 18}},
		},
		{
			name: "partially configured",
			prefs: Preferences{
				ReminderCount: 2,
				SlotHours:     [3]*int{nil, intp(21), nil},
			},
			want: []notify.Slot{{Hour: 7}, {Hour: 21}},
		},
		{
			name: "no slots falls back to legacy pair",
			prefs: Preferences{
				ReminderCount: 0,
				LegacyHour:    intp(5),
				LegacyMinute:  intp(45),
			},
			want: []notify.Slot{{Hour: 5, Minute: 45}},
		},
		{
			name:  "nothing configured defaults to 07:00",
			prefs: Preferences{},
			want:  []notify.Slot{{Hour: 7}},
		},
		{
			name: "count clamped to three",
			prefs: Preferences{
				ReminderCount: 7,
			},
			want: []notify.Slot{{Hour: 7}, {Hour: 12}, {Hour: 18}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.prefs.DevotionalSlots()
			if len(got) != len(tt.want) {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("slot %d: want %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}
