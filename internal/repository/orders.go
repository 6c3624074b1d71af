package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/campus-canteen/internal/model"
)

const orderColumns = `o.id, o.user_id, o.vendor_id, o.token, o.total_amount, o.status, o.payment_method,
	o.payment_status, o.gateway_order_id, o.gateway_payment_id, o.order_date, o.order_of_day, o.created_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.VendorID, &o.Token, &o.TotalAmount, &status, &o.PaymentMethod,
		&o.PaymentStatus, &o.GatewayOrderID, &o.GatewayPaymentID, &o.OrderDate, &o.OrderOfDay, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	return &o, nil
}

// GetOrder возвращает заказ со строками.
func (r *PostgresRepository) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := r.attachItems(ctx, []*model.Order{o}, 0); err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrdersByUser возвращает историю заказов пользователя, новые первыми.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.queryOrders(ctx, 0,
		`SELECT `+orderColumns+` FROM orders o WHERE o.user_id = $1 ORDER BY o.created_at DESC`,
		userID)
}

// GetOrdersByVendor возвращает заказы, содержащие позиции точки. Строки других точек не включаются.
func (r *PostgresRepository) GetOrdersByVendor(ctx context.Context, vendorID int64) ([]model.Order, error) {
	return r.queryOrders(ctx, vendorID,
		`SELECT `+orderColumns+` FROM orders o
		 WHERE EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.vendor_id = $1)
		 ORDER BY o.created_at DESC`,
		vendorID)
}

func (r *PostgresRepository) queryOrders(ctx context.Context, vendorID int64, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := r.attachItems(ctx, orders, vendorID); err != nil {
		return nil, err
	}

	res := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		res = append(res, *o)
	}
	return res, nil
}

// attachItems загружает строки заказов одним запросом. vendorID != 0 ограничивает строки одной точкой.
func (r *PostgresRepository) attachItems(ctx context.Context, orders []*model.Order, vendorID int64) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*model.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx,
		`SELECT oi.id, oi.order_id, oi.menu_item_id, m.name, oi.qty, oi.price, oi.vendor_id, v.outlet_name
		 FROM order_items oi
		 JOIN menu_items m ON m.id = oi.menu_item_id
		 JOIN vendors v ON v.id = oi.vendor_id
		 WHERE oi.order_id = ANY($1) AND ($2::bigint = 0 OR oi.vendor_id = $2)
		 ORDER BY oi.id`,
		ids, vendorID,
	)
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Qty, &it.Price, &it.VendorID, &it.VendorName); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}
