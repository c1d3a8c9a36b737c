package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tosho-dev/tosho-backend/internal/model"
)

type emitNotificationRequest struct {
	PatronID string                 `json:"patron_id"`
	Message  string                 `json:"message"`
	Type     model.NotificationType `json:"type"`
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var isRead *bool
	if value := r.URL.Query().Get("is_read"); value != "" {
		v := value == "true"
		isRead = &v
	}

	notifications, err := h.notifications.List(r.Context(), req, isRead)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notifications)
}

func (h *Handler) emitNotification(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var body emitNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.PatronID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "patron_id is required"})
		return
	}
	if body.Type == "" {
		body.Type = model.NotificationTypeAlert
	}

	notification, err := h.notifications.Emit(r.Context(), req, body.PatronID, body.Message, body.Type)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, notification)
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	notificationID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notification id"})
		return
	}

	notification, err := h.notifications.MarkRead(r.Context(), req, notificationID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notification)
}
