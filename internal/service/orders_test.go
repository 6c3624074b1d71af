package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/repository"
)

func seedOrder(repo *fakeRepo, tok string, status model.OrderStatus) int64 {
	repo.st.nextID++
	id := repo.st.nextID
	repo.st.orders[id] = model.Order{
		ID:          id,
		UserID:      payerID,
		Token:       tok,
		TotalAmount: decimal.RequireFromString("10"),
		Status:      status,
		Items: []model.OrderItem{
			{MenuItemID: 11, Qty: 1, Price: decimal.RequireFromString("10"), VendorID: 1},
		},
	}
	return id
}

func TestSetOrderStatus_ReadyNotification(t *testing.T) {
	svc, repo, _ := newTestService(t, "0")
	orderID := seedOrder(repo, "05_09_2025_02", model.OrderStatusPreparing)

	updated, err := svc.SetOrderStatus(context.Background(), managerID, orderID, model.OrderStatusReady)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusReady, updated.Status)

	notes := repo.st.notificationsOf(payerID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Order Status Updated", notes[0].Title)
	assert.Equal(t, model.NotificationOrder, notes[0].Type)
	assert.Contains(t, notes[0].Message, "05_09_2025_02")
	assert.Contains(t, notes[0].Message, "ready for pickup")
	require.NotNil(t, notes[0].ReferenceID)
	assert.Equal(t, "05_09_2025_02", *notes[0].ReferenceID)
}

func TestSetOrderStatus_NotManaged(t *testing.T) {
	svc, repo, _ := newTestService(t, "0")
	orderID := seedOrder(repo, "05_09_2025_01", model.OrderStatusPending)

	_, err := svc.SetOrderStatus(context.Background(), 777, orderID, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.SetOrderStatus(context.Background(), managerID, 424242, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Equal(t, model.OrderStatusPending, repo.st.orders[orderID].Status)
	assert.Empty(t, repo.st.notifications)
}

func TestSetOrderStatus_InvalidStatus(t *testing.T) {
	svc, repo, _ := newTestService(t, "0")
	orderID := seedOrder(repo, "05_09_2025_01", model.OrderStatusPending)

	_, err := svc.SetOrderStatus(context.Background(), managerID, orderID, model.OrderStatus("cancelled"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, repo.st.notifications)
}

func TestSetOrderStatus_Modes(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		from    model.OrderStatus
		to      model.OrderStatus
		wantErr error
	}{
		{name: "lenient skip forward", from: model.OrderStatusPending, to: model.OrderStatusReady},
		{name: "lenient reopen completed", from: model.OrderStatusCompleted, to: model.OrderStatusPreparing},
		{name: "strict forward", strict: true, from: model.OrderStatusConfirmed, to: model.OrderStatusPreparing},
		{name: "strict skip forward", strict: true, from: model.OrderStatusPending, to: model.OrderStatusCompleted},
		{name: "strict backwards", strict: true, from: model.OrderStatusCompleted, to: model.OrderStatusReady, wantErr: ErrInvalidTransition},
		{name: "strict same", strict: true, from: model.OrderStatusReady, to: model.OrderStatusReady, wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t, "0")
			svc.opts.StrictTransitions = tt.strict
			orderID := seedOrder(repo, "05_09_2025_07", tt.from)

			_, err := svc.SetOrderStatus(context.Background(), managerID, orderID, tt.to)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, repo.st.orders[orderID].Status)
				assert.Empty(t, repo.st.notifications)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, repo.st.orders[orderID].Status)
			assert.Len(t, repo.st.notifications, 1)
		})
	}
}

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		status model.OrderStatus
		want   string
	}{
		{model.OrderStatusConfirmed, "has been confirmed"},
		{model.OrderStatusPreparing, "is now being prepared"},
		{model.OrderStatusReady, "ready for pickup"},
		{model.OrderStatusCompleted, "has been completed"},
		{model.OrderStatusPending, "status has been updated to pending"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			msg := StatusMessage("05_09_2025_02", tt.status)
			assert.True(t, strings.Contains(msg, "05_09_2025_02"), msg)
			assert.Contains(t, msg, tt.want)
		})
	}
}

func TestNotifications_MarkRead(t *testing.T) {
	svc, repo, _ := newTestService(t, "0")
	ctx := context.Background()
	orderID := seedOrder(repo, "05_09_2025_01", model.OrderStatusPending)

	for _, st := range []model.OrderStatus{model.OrderStatusConfirmed, model.OrderStatusReady} {
		_, err := svc.SetOrderStatus(ctx, managerID, orderID, st)
		require.NoError(t, err)
	}

	n, err := svc.UnreadCount(ctx, payerID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := svc.GetNotifications(ctx, payerID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, svc.MarkNotificationRead(ctx, payerID, list[0].ID))
	require.NoError(t, svc.MarkNotificationRead(ctx, payerID, list[0].ID))
	assert.ErrorIs(t, svc.MarkNotificationRead(ctx, managerID, list[1].ID), repository.ErrNotFound)

	marked, err := svc.MarkAllNotificationsRead(ctx, payerID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	n, err = svc.UnreadCount(ctx, payerID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
