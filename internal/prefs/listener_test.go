package prefs

import (
	"testing"
	"time"
)

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		name      string
		current   time.Duration
		connected bool
		want      time.Duration
	}{
		{"doubles on failure", reconnectBackoff, false, 2 * reconnectBackoff},
		{"capped at max", 20 * time.Second, false, maxReconnect},
		{"already at max stays", maxReconnect, false, maxReconnect},
		{"resets after a connected session", maxReconnect, true, reconnectBackoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextBackoff(tt.current, tt.connected); got != tt.want {
				t.Errorf("nextBackoff(%v, %v) = %v, want %v",
					tt.current, tt.connected, got, tt.want)
			}
		})
	}
}
