package handlers

import (
	"net/http"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
)

type NotificationHandler struct {
	Service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// GET /notifications
//
// Polling the list also runs the caller's deadline check.
func (h *NotificationHandler) GetUserNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	if _, err := h.Service.CheckDeadlines(r.Context(), actor.ID, time.Now()); err != nil {
		logger.Log.WithError(err).WithField("user_id", actor.ID.Hex()).Warn("Deadline check failed")
	}
	notifications, err := h.Service.GetNotifications(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// GET /notifications/unread-count
func (h *NotificationHandler) UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	n, err := h.Service.GetUnreadCount(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// POST /notifications/deadlines/check
func (h *NotificationHandler) CheckDeadlinesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	sent, err := h.Service.CheckDeadlines(r.Context(), actor.ID, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": sent})
}

// POST /notifications/{id}/read
func (h *NotificationHandler) MarkAsReadHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	notifID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.MarkAsRead(r.Context(), actor, notifID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message("Notification marked as read"))
}

// POST /notifications/read-all
func (h *NotificationHandler) MarkAllAsReadHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	if err := h.Service.MarkAllAsRead(r.Context(), actor); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message("All notifications marked as read"))
}

// DELETE /notifications/{id}
func (h *NotificationHandler) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	notifID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteNotification(r.Context(), actor, notifID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message("Notification deleted"))
}
