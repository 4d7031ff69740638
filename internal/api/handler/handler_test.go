package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// testHandler builds a Handler with no backing stores; only validation
// paths that reject before touching a store can be exercised here.
func testHandler() *Handler {
	return New(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil, nil, nil, nil)
}

func TestRegisterDevice_RejectsIncompleteBody(t *testing.T) {
	h := testHandler()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"missing token", `{"user_id":"u1","device_id":"d1"}`},
		{"missing user", `{"device_id":"d1","token":"tok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/v1/devices", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.RegisterDevice(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestUnregisterDevice_RejectsMissingParams(t *testing.T) {
	h := testHandler()

	for _, target := range []string{
		"/api/v1/devices",
		"/api/v1/devices?user_id=u1",
		"/api/v1/devices?device_id=d1",
	} {
		req := httptest.NewRequest(http.MethodDelete, target, nil)
		w := httptest.NewRecorder()
		h.UnregisterDevice(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", target, w.Code, http.StatusBadRequest)
		}
	}
}
