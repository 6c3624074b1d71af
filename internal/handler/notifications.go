package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/model"
)

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Updated *int64 `json:"updated,omitempty"`
}

type countResponse struct {
	Count int `json:"count"`
}

// GetNotifications возвращает последние уведомления пользователя.
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.service.GetNotifications(r.Context(), userID)
	if err != nil {
		h.fail(w, "GetNotifications", err, zap.Int64("userID", userID))
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkNotificationRead отмечает одно уведомление прочитанным.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.service.MarkNotificationRead(r.Context(), userID, id); err != nil {
		h.fail(w, "MarkNotificationRead", err, zap.Int64("userID", userID), zap.Int64("notificationID", id))
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Notification marked as read"})
}

// MarkAllNotificationsRead отмечает прочитанными все уведомления пользователя.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.service.MarkAllNotificationsRead(r.Context(), userID)
	if err != nil {
		h.fail(w, "MarkAllNotificationsRead", err, zap.Int64("userID", userID))
		return
	}
	writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Message: "All notifications marked as read",
		Updated: &n,
	})
}

// UnreadCount возвращает число непрочитанных уведомлений.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		h.fail(w, "UnreadCount", err, zap.Int64("userID", userID))
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}
