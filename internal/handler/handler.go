// Package handler содержит HTTP-обработчики API сервиса заказов столовой.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/cart"
	"github.com/mmeshcher/campus-canteen/internal/middleware"
	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/payment"
	"github.com/mmeshcher/campus-canteen/internal/repository"
	"github.com/mmeshcher/campus-canteen/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, name, email, password, role string) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)

	GetMenu(ctx context.Context) ([]model.MenuItem, error)
	GetVendorMenu(ctx context.Context, managerID int64) ([]model.MenuItem, error)
	AddMenuItem(ctx context.Context, managerID int64, mi model.MenuItem) (*model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, managerID, itemID int64, upd model.MenuItemUpdate) (*model.MenuItem, error)
	SetMenuItemAvailability(ctx context.Context, managerID, itemID int64, available bool) (*model.MenuItem, error)
	DeleteMenuItem(ctx context.Context, managerID, itemID int64) (bool, error)

	GetVendors(ctx context.Context) ([]model.Vendor, error)
	GetVendor(ctx context.Context, vendorID int64) (*model.Vendor, error)
	SetVendorOnline(ctx context.Context, managerID int64, online bool) (*model.Vendor, error)
	SetVendorUPI(ctx context.Context, managerID int64, upiID string) (*model.Vendor, error)
	GetVendorWallet(ctx context.Context, managerID int64) (*model.Wallet, error)

	PlaceWalletOrder(ctx context.Context, userID int64, req service.PlaceOrderRequest) (*model.Settlement, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetVendorOrders(ctx context.Context, managerID int64) ([]model.Order, error)
	SetOrderStatus(ctx context.Context, managerID, orderID int64, status model.OrderStatus) (*model.Order, error)

	CreatePaymentIntent(ctx context.Context, userID int64, req service.IntentRequest) (*service.Intent, error)
	VerifyPayment(ctx context.Context, userID int64, req service.VerifyRequest) (*model.Settlement, error)

	GetNotifications(ctx context.Context, userID int64) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)

	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	TopUpWallet(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	loginLimiter   *middleware.LoginLimiter
	apiLimiter     func(http.Handler) http.Handler
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// loginLimiter и apiLimiter могут быть nil, тогда ограничения не применяются.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, loginLimiter *middleware.LoginLimiter, apiLimiter func(http.Handler) http.Handler) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		loginLimiter:   loginLimiter,
		apiLimiter:     apiLimiter,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// errorStatus сопоставляет доменную ошибку HTTP-статусу.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, cart.ErrItemUnavailable),
		errors.Is(err, repository.ErrInsufficientBalance),
		errors.Is(err, payment.ErrInvalidSignature),
		errors.Is(err, service.ErrPaymentNotSuccessful):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrVendorNotFound):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrUserExists),
		errors.Is(err, repository.ErrMenuItemExists),
		errors.Is(err, repository.ErrPaymentAlreadySettled),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrGatewayDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail пишет ответ об ошибке. Внутренние ошибки логируются и не раскрываются клиенту.
func (h *Handler) fail(w http.ResponseWriter, op string, err error, fields ...zap.Field) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(op+" error", append(fields, zap.Error(err))...)
		writeError(w, status, "")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "")
		return 0, false
	}
	return userID, true
}
