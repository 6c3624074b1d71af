package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/campus-canteen/internal/model"
)

const recentTransactions = 20

// GetWallet возвращает баланс пользователя и последние проводки.
func (r *PostgresRepository) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	u, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	txs, err := queryTransactions(ctx, r.pool,
		`SELECT id, amount, type, funding, description, reference_id, payment_id, created_at
		 FROM transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, recentTransactions)
	if err != nil {
		return nil, err
	}
	return &model.Wallet{Balance: u.WalletBalance, Transactions: txs}, nil
}

func queryTransactions(ctx context.Context, q querier, query string, args ...any) ([]model.Transaction, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	res := make([]model.Transaction, 0)
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.Amount, &t.Type, &t.Funding, &t.Description, &t.ReferenceID, &t.PaymentID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}
