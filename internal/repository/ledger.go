package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/token"
)

// Ledger описывает операции, выполняемые внутри одной транзакции проведения заказа.
// Все изменения балансов относительные: UPDATE ... SET balance = balance ± amount.
type Ledger interface {
	LockUserBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	MenuItemsByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error)
	AllocateToken(ctx context.Context, scope token.Scope) (int, error)
	InsertOrder(ctx context.Context, o *model.Order) error
	DebitUser(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	CreditUser(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	CreditVendor(ctx context.Context, vendorID int64, amount decimal.Decimal) (decimal.Decimal, error)
	AppendUserTransaction(ctx context.Context, userID int64, t model.Transaction) error
	AppendVendorTransaction(ctx context.Context, vendorID int64, t model.Transaction) error
	AppendNotification(ctx context.Context, n model.Notification) error
	LockManagedOrder(ctx context.Context, orderID, managerID int64) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) (*model.Order, error)
	LockPaymentIntent(ctx context.Context, gatewayOrderID string) (*model.PaymentIntent, error)
	MarkIntentSettled(ctx context.Context, gatewayOrderID string) error
}

type pgLedger struct {
	tx pgx.Tx
}

// LockUserBalance блокирует строку пользователя до конца транзакции и возвращает баланс.
func (l *pgLedger) LockUserBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.tx.QueryRow(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1 FOR UPDATE`,
		userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("lock user for update: %w", err)
	}
	return balance, nil
}

// MenuItemsByIDs возвращает актуальные позиции меню вместе с признаком активности точки.
func (l *pgLedger) MenuItemsByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error) {
	return menuItemsByIDs(ctx, l.tx, ids)
}

// AllocateToken атомарно увеличивает счётчик области и возвращает новое значение.
func (l *pgLedger) AllocateToken(ctx context.Context, scope token.Scope) (int, error) {
	var n int
	var err error
	if scope.PerVendor() {
		err = l.tx.QueryRow(ctx,
			`INSERT INTO vendor_order_counters (vendor_id, order_date, counter) VALUES ($1, $2, 1)
			 ON CONFLICT (vendor_id, order_date) DO UPDATE SET counter = vendor_order_counters.counter + 1
			 RETURNING counter`,
			scope.VendorID, scope.Date,
		).Scan(&n)
	} else {
		err = l.tx.QueryRow(ctx,
			`INSERT INTO order_counters (order_date, counter) VALUES ($1, 1)
			 ON CONFLICT (order_date) DO UPDATE SET counter = order_counters.counter + 1
			 RETURNING counter`,
			scope.Date,
		).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("allocate token: %w", err)
	}
	return n, nil
}

// InsertOrder сохраняет заказ и все его строки, заполняя o.ID и o.CreatedAt.
func (l *pgLedger) InsertOrder(ctx context.Context, o *model.Order) error {
	err := l.tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, vendor_id, token, total_amount, status, payment_method,
		                     payment_status, gateway_order_id, gateway_payment_id, order_date, order_of_day)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		o.UserID, o.VendorID, o.Token, o.TotalAmount, string(o.Status), o.PaymentMethod,
		o.PaymentStatus, o.GatewayOrderID, o.GatewayPaymentID, o.OrderDate, o.OrderOfDay,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "orders_gateway_payment_id_key") {
			return ErrPaymentAlreadySettled
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err := l.tx.QueryRow(ctx,
			`INSERT INTO order_items (order_id, menu_item_id, qty, price, vendor_id)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			o.ID, item.MenuItemID, item.Qty, item.Price, item.VendorID,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

// DebitUser списывает сумму с кошелька, не допуская отрицательного баланса.
func (l *pgLedger) DebitUser(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.tx.QueryRow(ctx,
		`UPDATE users SET wallet_balance = wallet_balance - $1
		 WHERE id = $2 AND wallet_balance >= $1
		 RETURNING wallet_balance`,
		amount, userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrInsufficientBalance
		}
		return decimal.Zero, fmt.Errorf("debit user: %w", err)
	}
	return balance, nil
}

// CreditUser зачисляет сумму на кошелёк пользователя.
func (l *pgLedger) CreditUser(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.tx.QueryRow(ctx,
		`UPDATE users SET wallet_balance = wallet_balance + $1 WHERE id = $2 RETURNING wallet_balance`,
		amount, userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("credit user: %w", err)
	}
	return balance, nil
}

// CreditVendor зачисляет выручку на кошелёк точки.
func (l *pgLedger) CreditVendor(ctx context.Context, vendorID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.tx.QueryRow(ctx,
		`UPDATE vendors SET wallet_balance = wallet_balance + $1 WHERE id = $2 RETURNING wallet_balance`,
		amount, vendorID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("credit vendor: %w", err)
	}
	return balance, nil
}

// AppendUserTransaction добавляет проводку по пользователю.
func (l *pgLedger) AppendUserTransaction(ctx context.Context, userID int64, t model.Transaction) error {
	funding := t.Funding
	if funding == "" {
		funding = model.FundingWallet
	}
	_, err := l.tx.Exec(ctx,
		`INSERT INTO transactions (user_id, amount, type, funding, description, reference_id, payment_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, t.Amount, t.Type, funding, t.Description, t.ReferenceID, t.PaymentID,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// AppendVendorTransaction добавляет проводку по торговой точке.
func (l *pgLedger) AppendVendorTransaction(ctx context.Context, vendorID int64, t model.Transaction) error {
	_, err := l.tx.Exec(ctx,
		`INSERT INTO vendor_transactions (vendor_id, amount, type, description, reference_id, payment_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		vendorID, t.Amount, t.Type, t.Description, t.ReferenceID, t.PaymentID,
	)
	if err != nil {
		return fmt.Errorf("insert vendor transaction: %w", err)
	}
	return nil
}

// AppendNotification добавляет уведомление пользователю.
func (l *pgLedger) AppendNotification(ctx context.Context, n model.Notification) error {
	_, err := l.tx.Exec(ctx,
		`INSERT INTO notifications (user_id, title, message, type, reference_id, is_read)
		 VALUES ($1, $2, $3, $4, $5, false)`,
		n.UserID, n.Title, n.Message, n.Type, n.ReferenceID,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// LockManagedOrder блокирует заказ, если в нём есть строки точки, которой управляет managerID.
func (l *pgLedger) LockManagedOrder(ctx context.Context, orderID, managerID int64) (*model.Order, error) {
	o, err := scanOrder(l.tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders o
		 WHERE o.id = $1 AND EXISTS (
		     SELECT 1 FROM order_items oi
		     JOIN vendor_users vu ON vu.vendor_id = oi.vendor_id
		     WHERE oi.order_id = o.id AND vu.user_id = $2
		 )
		 FOR UPDATE OF o`,
		orderID, managerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return o, nil
}

// UpdateOrderStatus меняет статус заказа и возвращает обновлённую запись.
func (l *pgLedger) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) (*model.Order, error) {
	o, err := scanOrder(l.tx.QueryRow(ctx,
		`UPDATE orders o SET status = $1 WHERE o.id = $2 RETURNING `+orderColumns,
		string(status), orderID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return o, nil
}
