package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ResetSummary содержит количество удалённых строк по таблицам.
type ResetSummary struct {
	Users         int64
	Orders        int64
	Transactions  int64
	Notifications int64
}

// BalanceMismatch описывает расхождение кэшированного баланса с суммой проводок.
type BalanceMismatch struct {
	Kind     string
	ID       int64
	Cached   decimal.Decimal
	Computed decimal.Decimal
}

// ResetAll удаляет пользователей, заказы и проводки и обнуляет балансы точек.
// Точки и меню сохраняются.
func (r *PostgresRepository) ResetAll(ctx context.Context) (*ResetSummary, error) {
	var sum ResetSummary
	err := r.withinPgTx(ctx, func(tx pgx.Tx) error {
		steps := []struct {
			query string
			count *int64
		}{
			{`DELETE FROM vendor_users`, nil},
			{`DELETE FROM notifications`, &sum.Notifications},
			{`DELETE FROM payment_intents`, nil},
			{`DELETE FROM transactions`, &sum.Transactions},
			{`DELETE FROM vendor_transactions`, nil},
			{`DELETE FROM order_items`, nil},
			{`DELETE FROM orders`, &sum.Orders},
			{`DELETE FROM order_counters`, nil},
			{`DELETE FROM vendor_order_counters`, nil},
			{`UPDATE vendors SET wallet_balance = 0`, nil},
			{`DELETE FROM users`, &sum.Users},
		}
		for _, s := range steps {
			tag, err := tx.Exec(ctx, s.query)
			if err != nil {
				return fmt.Errorf("reset %q: %w", s.query, err)
			}
			if s.count != nil {
				*s.count = tag.RowsAffected()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// AuditBalances сверяет балансы с журналом проводок. Для пользователей учитываются
// только проводки, проведённые через кошелёк.
func (r *PostgresRepository) AuditBalances(ctx context.Context) ([]BalanceMismatch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT 'user', u.id, u.wallet_balance, COALESCE(SUM(
		     CASE WHEN t.type = 'credit' THEN t.amount ELSE -t.amount END), 0)
		 FROM users u
		 LEFT JOIN transactions t ON t.user_id = u.id AND t.funding = 'wallet'
		 GROUP BY u.id, u.wallet_balance
		 HAVING u.wallet_balance <> COALESCE(SUM(CASE WHEN t.type = 'credit' THEN t.amount ELSE -t.amount END), 0)
		 UNION ALL
		 SELECT 'vendor', v.id, v.wallet_balance, COALESCE(SUM(
		     CASE WHEN t.type = 'credit' THEN t.amount ELSE -t.amount END), 0)
		 FROM vendors v
		 LEFT JOIN vendor_transactions t ON t.vendor_id = v.id
		 GROUP BY v.id, v.wallet_balance
		 HAVING v.wallet_balance <> COALESCE(SUM(CASE WHEN t.type = 'credit' THEN t.amount ELSE -t.amount END), 0)
		 ORDER BY 1, 2`)
	if err != nil {
		return nil, fmt.Errorf("audit balances: %w", err)
	}
	defer rows.Close()

	var res []BalanceMismatch
	for rows.Next() {
		var m BalanceMismatch
		if err := rows.Scan(&m.Kind, &m.ID, &m.Cached, &m.Computed); err != nil {
			return nil, fmt.Errorf("scan mismatch: %w", err)
		}
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}
