package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/repository"
)

var statusMessages = map[model.OrderStatus]string{
	model.OrderStatusConfirmed: "Your order %s has been confirmed and is being prepared.",
	model.OrderStatusPreparing: "Your order %s is now being prepared by the vendor.",
	model.OrderStatusReady:     "Great news! Your order %s is ready for pickup. Please collect it from the counter.",
	model.OrderStatusCompleted: "Your order %s has been completed. Thank you for ordering with us!",
}

// StatusMessage возвращает текст уведомления о смене статуса заказа.
func StatusMessage(tok string, status model.OrderStatus) string {
	if tmpl, ok := statusMessages[status]; ok {
		return fmt.Sprintf(tmpl, tok)
	}
	return fmt.Sprintf("Your order %s status has been updated to %s.", tok, status)
}

// SetOrderStatus меняет статус заказа от имени управляющего точкой и уведомляет покупателя.
// Заказ без строк точек этого управляющего считается ненайденным.
func (s *Service) SetOrderStatus(ctx context.Context, managerID, orderID int64, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	var updated *model.Order
	err := s.repo.WithinTx(ctx, func(l repository.Ledger) error {
		current, err := l.LockManagedOrder(ctx, orderID, managerID)
		if err != nil {
			return err
		}

		if s.opts.StrictTransitions && status.Rank() <= current.Status.Rank() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
		}

		updated, err = l.UpdateOrderStatus(ctx, orderID, status)
		if err != nil {
			return err
		}

		tok := updated.Token
		return l.AppendNotification(ctx, model.Notification{
			UserID:      updated.UserID,
			Title:       "Order Status Updated",
			Message:     StatusMessage(tok, status),
			Type:        model.NotificationOrder,
			ReferenceID: &tok,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		zap.Int64("orderID", orderID),
		zap.Int64("managerID", managerID),
		zap.String("status", string(status)),
	)
	return updated, nil
}

// GetOrdersByUser возвращает историю заказов пользователя.
func (s *Service) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

// GetVendorOrders возвращает заказы точки, которой управляет пользователь.
func (s *Service) GetVendorOrders(ctx context.Context, managerID int64) ([]model.Order, error) {
	vendorID, err := s.repo.ManagedVendorID(ctx, managerID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetOrdersByVendor(ctx, vendorID)
}
