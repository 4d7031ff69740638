package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/kindredapp/kindred-notify/internal/api/respond"
	"github.com/kindredapp/kindred-notify/internal/notify"
)

// --------------------------------------------------------------------------
// Devices
// --------------------------------------------------------------------------

type registerDeviceRequest struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
}

// RegisterDevice upserts the latest push token for a user's device.
// @Summary Register device token
// @Tags devices
// @Accept json
// @Produce json
// @Success 204
// @Failure 400 {object} respond.ErrorResponse
// @Router /devices [put]
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	if req.UserID == "" || req.DeviceID == "" || req.Token == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "user_id, device_id, and token are required")
		return
	}

	if err := h.tokens.Upsert(r.Context(), req.UserID, req.DeviceID, req.Token); err != nil {
		h.logger.Warn("Device token upsert failed", "user_id", req.UserID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to register device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnregisterDevice deactivates a device's push token. Call on logout or
// when the user disables push for the device.
// @Summary Unregister device token
// @Tags devices
// @Produce json
// @Param user_id query string true "User id"
// @Param device_id query string true "Device id"
// @Success 204
// @Failure 400 {object} respond.ErrorResponse
// @Router /devices [delete]
func (h *Handler) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	deviceID := r.URL.Query().Get("device_id")
	if userID == "" || deviceID == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "user_id and device_id are required")
		return
	}

	if err := h.tokens.Deactivate(r.Context(), userID, deviceID); err != nil {
		h.logger.Warn("Device token deactivation failed", "user_id", userID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to unregister device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --------------------------------------------------------------------------
// Notifications
// --------------------------------------------------------------------------

// ListPending returns the user's currently scheduled notifications.
// @Summary List pending notifications
// @Tags notifications
// @Produce json
// @Param user_id query string true "User id"
// @Success 200 {object} map[string]interface{}
// @Router /notifications/pending [get]
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "user_id is required")
		return
	}

	pending, err := h.svc.ListPending(r.Context(), userID)
	if err != nil {
		h.logger.Warn("List pending failed", "user_id", userID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to list notifications")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"count":   len(pending),
		"pending": pending,
	})
}

type historyEntry struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	ScreenHint string    `json:"screen_hint"`
	RelatedID  string    `json:"related_id,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// ListHistory returns the user's delivered notifications (the in-app
// notification list). Suppressed reminders still appear here.
// @Summary List delivered notifications
// @Tags notifications
// @Produce json
// @Param user_id query string true "User id"
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {object} map[string]interface{}
// @Router /notifications [get]
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "user_id is required")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	rows, err := h.pool.Query(r.Context(), "list_notification_history", userID, limit)
	if err != nil {
		h.logger.Warn("History query failed", "user_id", userID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to list notifications")
		return
	}
	defer rows.Close()

	entries := make([]historyEntry, 0, limit)
	for rows.Next() {
		var e historyEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Title, &e.Body, &e.ScreenHint, &e.RelatedID, &e.SentAt); err != nil {
			respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to read notifications")
			return
		}
		entries = append(entries, e)
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"user_id":       userID,
		"count":         len(entries),
		"notifications": entries,
	})
}

type immediateRequest struct {
	UserID    string `json:"user_id"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	RelatedID string `json:"related_id,omitempty"`
}

// SendImmediate fires a one-shot notification now ("someone prayed for
// you", "new event created"). Accepted fire-and-forget.
// @Summary Send an immediate notification
// @Tags notifications
// @Accept json
// @Produce json
// @Success 202
// @Failure 400 {object} respond.ErrorResponse
// @Router /notifications [post]
func (h *Handler) SendImmediate(w http.ResponseWriter, r *http.Request) {
	var req immediateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	if req.UserID == "" || req.Title == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "user_id and title are required")
		return
	}

	kind := notify.Kind(req.Kind)
	switch kind {
	case notify.KindPrayerUpdate, notify.KindEventReminder, notify.KindDevotionalReminder:
	default:
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown notification kind")
		return
	}

	h.sched.SendImmediate(r.Context(), req.UserID, kind, req.Title, req.Body, req.RelatedID)
	w.WriteHeader(http.StatusAccepted)
}

// --------------------------------------------------------------------------
// Event reminders
// --------------------------------------------------------------------------

type scheduleEventRequest struct {
	UserID   string    `json:"user_id"`
	Title    string    `json:"title,omitempty"`
	StartsAt time.Time `json:"starts_at,omitempty"`
}

// ScheduleEventReminders replaces the reminder set for one event. When the
// body omits title/starts_at they are looked up from the events table.
// @Summary Schedule event reminders
// @Tags events
// @Accept json
// @Produce json
// @Param eventID path string true "Event id"
// @Success 202
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /events/{eventID}/reminders [post]
func (h *Handler) ScheduleEventReminders(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req scheduleEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	if req.UserID == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "user_id is required")
		return
	}

	if req.Title == "" || req.StartsAt.IsZero() {
		var id string
		err := h.pool.QueryRow(r.Context(), "event_by_id", eventID).Scan(&id, &req.Title, &req.StartsAt)
		if errors.Is(err, pgx.ErrNoRows) {
			respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "event not found")
			return
		}
		if err != nil {
			h.logger.Warn("Event lookup failed", "event_id", eventID, "error", err)
			respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to look up event")
			return
		}
	}

	h.sched.ScheduleEventReminders(r.Context(), req.UserID, eventID, req.Title, req.StartsAt)
	w.WriteHeader(http.StatusAccepted)
}

// CancelEventReminders removes every reminder for one event. Call when an
// event is deleted.
// @Summary Cancel event reminders
// @Tags events
// @Produce json
// @Param eventID path string true "Event id"
// @Param user_id query string true "User id"
// @Success 202
// @Router /events/{eventID}/reminders [delete]
func (h *Handler) CancelEventReminders(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "user_id is required")
		return
	}

	h.sched.CancelEventReminders(r.Context(), userID, eventID)
	w.WriteHeader(http.StatusAccepted)
}

// --------------------------------------------------------------------------
// Preferences
// --------------------------------------------------------------------------

// SyncPreferences re-applies a user's preferences to their pending set.
// The LISTEN/NOTIFY loop does this automatically; this endpoint lets
// clients force a sync, e.g. right after onboarding.
// @Summary Re-apply notification preferences
// @Tags preferences
// @Produce json
// @Param userID path string true "User id"
// @Success 202
// @Router /preferences/{userID}/sync [post]
func (h *Handler) SyncPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	h.reactor.Apply(r.Context(), userID)
	w.WriteHeader(http.StatusAccepted)
}

// --------------------------------------------------------------------------
// Foreground delivery decisions
// --------------------------------------------------------------------------

type decisionRequest struct {
	UserID  string         `json:"user_id"`
	GroupID string         `json:"group_id"`
	Payload notify.Payload `json:"payload"`
}

// DecideForeground returns how an incoming notification should be surfaced
// while the app is foregrounded. Failure paths resolve permissive.
// @Summary Foreground delivery decision
// @Tags notifications
// @Accept json
// @Produce json
// @Success 200 {object} notify.DeliveryDecision
// @Failure 400 {object} respond.ErrorResponse
// @Router /delivery/decision [post]
func (h *Handler) DecideForeground(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}

	decision := h.gate.Decide(r.Context(), req.Payload, req.UserID, req.GroupID)
	respond.WriteJSONObject(w, http.StatusOK, decision)
}
