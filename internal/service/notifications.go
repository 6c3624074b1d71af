package service

import (
	"context"

	"github.com/mmeshcher/campus-canteen/internal/model"
)

const notificationsLimit = 50

// GetNotifications возвращает последние уведомления пользователя.
func (s *Service) GetNotifications(ctx context.Context, userID int64) ([]model.Notification, error) {
	return s.repo.GetNotifications(ctx, userID, notificationsLimit)
}

// MarkNotificationRead отмечает уведомление пользователя прочитанным.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	return s.repo.MarkNotificationRead(ctx, id, userID)
}

// MarkAllNotificationsRead отмечает прочитанными все уведомления пользователя.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllNotificationsRead(ctx, userID)
}

// UnreadCount возвращает количество непрочитанных уведомлений.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}
