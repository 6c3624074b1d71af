// Package model содержит доменные сущности сервиса заказа еды в кампусе.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Роли пользователей.
const (
	RoleCustomer = "customer"
	RoleVendor   = "vendor"
	RoleStudent  = "student"
)

// User представляет зарегистрированного пользователя с кошельком.
type User struct {
	ID            int64
	Name          string
	Email         string
	PasswordHash  []byte
	Role          string
	WalletBalance decimal.Decimal
	CreatedAt     time.Time
}

// Vendor описывает торговую точку (аутлет) кампуса.
type Vendor struct {
	ID            int64           `json:"id"`
	OutletName    string          `json:"outlet_name"`
	IsActive      bool            `json:"is_active"`
	IsOnline      bool            `json:"is_online"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	UPIID         *string         `json:"upi_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MenuItem описывает позицию меню одной торговой точки.
type MenuItem struct {
	ID          int64           `json:"id"`
	VendorID    int64           `json:"vendor_id"`
	VendorName  string          `json:"outlet_name,omitempty"`
	VendorLive  bool            `json:"-"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description *string         `json:"description,omitempty"`
	Category    *string         `json:"category,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	IsAvailable bool            `json:"is_available"`
}

// MenuItemUpdate содержит необязательные поля частичного обновления позиции меню.
// nil означает «не менять поле».
type MenuItemUpdate struct {
	Name        *string
	Price       *decimal.Decimal
	Description *string
	Category    *string
}

// Empty сообщает, что обновление не содержит ни одного поля.
func (u MenuItemUpdate) Empty() bool {
	return u.Name == nil && u.Price == nil && u.Description == nil && u.Category == nil
}

// OrderStatus описывает статус выполнения заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
)

var statusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusPreparing: 2,
	OrderStatusReady:     3,
	OrderStatusCompleted: 4,
}

// Valid сообщает, входит ли статус в допустимый набор.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank возвращает порядковый номер статуса в жизненном цикле заказа.
func (s OrderStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// Способы оплаты заказа.
const (
	PaymentMethodWallet = "wallet"
	PaymentMethodUPI    = "upi"
)

// PaymentStatusCompleted означает, что оплата заказа подтверждена.
const PaymentStatusCompleted = "completed"

// Order описывает заказ пользователя.
type Order struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"user_id"`
	VendorID         *int64          `json:"vendor_id,omitempty"`
	Token            string          `json:"token"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Status           OrderStatus     `json:"status"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentStatus    string          `json:"payment_status"`
	GatewayOrderID   *string         `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string         `json:"gateway_payment_id,omitempty"`
	OrderDate        time.Time       `json:"order_date"`
	OrderOfDay       int             `json:"order_of_day"`
	CreatedAt        time.Time       `json:"created_at"`
	Items            []OrderItem     `json:"items,omitempty"`
}

// OrderItem описывает строку заказа. Цена и торговая точка фиксируются на момент заказа.
type OrderItem struct {
	ID         int64           `json:"id,omitempty"`
	OrderID    int64           `json:"-"`
	MenuItemID int64           `json:"menu_item_id"`
	Name       string          `json:"name,omitempty"`
	Qty        int             `json:"qty"`
	Price      decimal.Decimal `json:"price"`
	VendorID   int64           `json:"vendor_id"`
	VendorName string          `json:"vendor,omitempty"`
}

// Направление проводки.
const (
	TxCredit = "credit"
	TxDebit  = "debit"
)

// Источник средств проводки пользователя.
const (
	FundingWallet   = "wallet"
	FundingExternal = "external"
)

// Transaction описывает неизменяемую проводку по кошельку пользователя или точки.
type Transaction struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Funding     string          `json:"funding,omitempty"`
	Description string          `json:"description"`
	ReferenceID *string         `json:"reference_id,omitempty"`
	PaymentID   *string         `json:"payment_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Типы уведомлений.
const (
	NotificationOrder   = "order"
	NotificationPayment = "payment"
)

// Notification описывает сообщение для пользователя.
type Notification struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"-"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Type        string    `json:"type"`
	ReferenceID *string   `json:"reference_id,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Wallet содержит баланс и последние проводки.
type Wallet struct {
	Balance      decimal.Decimal `json:"balance"`
	Transactions []Transaction   `json:"transactions"`
}

// CartLine описывает строку корзины, присланную клиентом.
// Цена клиента для расчётов не используется.
type CartLine struct {
	MenuItemID int64           `json:"menu_item_id"`
	Qty        int             `json:"qty"`
	UnitPrice  decimal.Decimal `json:"unit_price,omitempty"`
	VendorID   int64           `json:"vendor_id,omitempty"`
	VendorName string          `json:"vendor_name,omitempty"`
}

// VendorOrder описывает часть корзины, относящуюся к одной торговой точке.
type VendorOrder struct {
	VendorID   int64
	VendorName string
	Items      []OrderItem
	Total      decimal.Decimal
}

// Settlement описывает результат проведения заказа.
type Settlement struct {
	OrderID   int64
	Token     string
	Total     decimal.Decimal
	PaymentID string
}

// PaymentIntent фиксирует подзаказ в момент создания платёжного намерения.
// Подтверждение оплаты проводит этот снимок, а не текущее меню.
type PaymentIntent struct {
	GatewayOrderID string
	UserID         int64
	VendorID       int64
	VendorName     string
	Items          []OrderItem
	Total          decimal.Decimal
	AmountMinor    int64
	Currency       string
	CreatedAt      time.Time
	SettledAt      *time.Time
}
