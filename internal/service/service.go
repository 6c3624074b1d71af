// Package service реализует бизнес-логику сервиса заказов столовой кампуса:
// проведение заказов, смену статусов и уведомления.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/payment"
	"github.com/mmeshcher/campus-canteen/internal/repository"
)

var (
	// ErrValidation возвращается при некорректных входных данных.
	ErrValidation = errors.New("validation error")
	// ErrPaymentNotSuccessful возвращается, если шлюз не подтвердил платёж.
	ErrPaymentNotSuccessful = errors.New("payment not successful")
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidTransition возвращается в строгом режиме при попытке вернуть заказ назад.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAmountMismatch возвращается, если сумма клиента не совпала с рассчитанной сервером.
	ErrAmountMismatch = errors.New("amount mismatch")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	WithinTx(ctx context.Context, fn func(repository.Ledger) error) error

	CreateUser(ctx context.Context, u model.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	MenuItemsByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error)
	GetMenu(ctx context.Context) ([]model.MenuItem, error)
	GetVendorMenu(ctx context.Context, vendorID int64) ([]model.MenuItem, error)
	AddMenuItem(ctx context.Context, mi model.MenuItem) (*model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, vendorID, itemID int64, upd model.MenuItemUpdate) (*model.MenuItem, error)
	SetMenuItemAvailability(ctx context.Context, vendorID, itemID int64, available bool) (*model.MenuItem, error)
	DeleteMenuItem(ctx context.Context, vendorID, itemID int64) (bool, error)

	GetVendors(ctx context.Context) ([]model.Vendor, error)
	GetVendor(ctx context.Context, vendorID int64) (*model.Vendor, error)
	ManagedVendorID(ctx context.Context, userID int64) (int64, error)
	SetVendorOnline(ctx context.Context, vendorID int64, online bool) (*model.Vendor, error)
	SetVendorUPI(ctx context.Context, vendorID int64, upiID string) (*model.Vendor, error)
	GetVendorWallet(ctx context.Context, vendorID int64) (*model.Wallet, error)

	GetOrder(ctx context.Context, orderID int64) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrdersByVendor(ctx context.Context, vendorID int64) ([]model.Order, error)

	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	SavePaymentIntent(ctx context.Context, in model.PaymentIntent) error

	GetNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)

	AuditBalances(ctx context.Context) ([]repository.BalanceMismatch, error)
}

// Gateway описывает платёжный шлюз.
type Gateway interface {
	KeyID() string
	VerifySignature(orderID, paymentID, signature string) error
	CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*payment.Payment, error)
}

// Options задаёт параметры бизнес-правил.
type Options struct {
	StrictTransitions bool
	MaxOrderTotal     decimal.Decimal
	MaxTopUp          decimal.Decimal
	Currency          string
}

// Service содержит бизнес-логику сервиса.
type Service struct {
	repo    Repository
	gateway Gateway
	logger  *zap.Logger
	opts    Options
	now     func() time.Time
}

// NewService создаёт сервис. gateway может быть nil, тогда оплата через шлюз недоступна.
func NewService(repo Repository, gateway Gateway, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.MaxOrderTotal.IsZero() {
		opts.MaxOrderTotal = decimal.NewFromInt(10000)
	}
	if opts.MaxTopUp.IsZero() {
		opts.MaxTopUp = decimal.NewFromInt(10000)
	}
	return &Service{
		repo:    repo,
		gateway: gateway,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}
