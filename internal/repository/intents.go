package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/campus-canteen/internal/model"
)

// ErrIntentExists возвращается при повторном сохранении намерения с тем же идентификатором шлюза.
var ErrIntentExists = errors.New("payment intent already exists")

// SavePaymentIntent сохраняет снимок подзаказа, по которому создан заказ шлюза.
func (r *PostgresRepository) SavePaymentIntent(ctx context.Context, in model.PaymentIntent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO payment_intents (gateway_order_id, user_id, vendor_id, vendor_name, items,
		                              total_amount, amount_minor, currency)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		in.GatewayOrderID, in.UserID, in.VendorID, in.VendorName, in.Items,
		in.Total, in.AmountMinor, in.Currency,
	)
	if err != nil {
		if isUniqueViolation(err, "payment_intents_pkey") {
			return ErrIntentExists
		}
		return fmt.Errorf("insert payment intent: %w", err)
	}
	return nil
}

// LockPaymentIntent блокирует намерение до конца транзакции. Параллельные подтверждения
// одного заказа шлюза выполняются по очереди.
func (l *pgLedger) LockPaymentIntent(ctx context.Context, gatewayOrderID string) (*model.PaymentIntent, error) {
	in := model.PaymentIntent{GatewayOrderID: gatewayOrderID}
	err := l.tx.QueryRow(ctx,
		`SELECT user_id, vendor_id, vendor_name, items, total_amount, amount_minor, currency,
		        created_at, settled_at
		 FROM payment_intents WHERE gateway_order_id = $1 FOR UPDATE`,
		gatewayOrderID,
	).Scan(&in.UserID, &in.VendorID, &in.VendorName, &in.Items, &in.Total, &in.AmountMinor,
		&in.Currency, &in.CreatedAt, &in.SettledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock payment intent: %w", err)
	}
	return &in, nil
}

// MarkIntentSettled отмечает намерение проведённым. Повторная отметка даёт ErrPaymentAlreadySettled.
func (l *pgLedger) MarkIntentSettled(ctx context.Context, gatewayOrderID string) error {
	tag, err := l.tx.Exec(ctx,
		`UPDATE payment_intents SET settled_at = NOW()
		 WHERE gateway_order_id = $1 AND settled_at IS NULL`,
		gatewayOrderID,
	)
	if err != nil {
		return fmt.Errorf("mark intent settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentAlreadySettled
	}
	return nil
}
