package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/campus-canteen/internal/model"
)

const vendorColumns = `id, outlet_name, is_active, is_online, wallet_balance, upi_id, created_at`

func scanVendor(row pgx.Row) (*model.Vendor, error) {
	var v model.Vendor
	if err := row.Scan(&v.ID, &v.OutletName, &v.IsActive, &v.IsOnline, &v.WalletBalance, &v.UPIID, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVendors возвращает активные торговые точки.
func (r *PostgresRepository) GetVendors(ctx context.Context) ([]model.Vendor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE is_active = true ORDER BY outlet_name`)
	if err != nil {
		return nil, fmt.Errorf("select vendors: %w", err)
	}
	defer rows.Close()

	var res []model.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		res = append(res, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// GetVendor возвращает точку по идентификатору.
func (r *PostgresRepository) GetVendor(ctx context.Context, vendorID int64) (*model.Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, vendorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	return v, nil
}

// ManagedVendorID возвращает точку, которой управляет пользователь.
// Если точек несколько, берётся с наименьшим идентификатором.
func (r *PostgresRepository) ManagedVendorID(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT vendor_id FROM vendor_users WHERE user_id = $1 ORDER BY vendor_id LIMIT 1`,
		userID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVendorNotFound
		}
		return 0, fmt.Errorf("get managed vendor: %w", err)
	}
	return id, nil
}

// SetVendorOnline переключает признак приёма заказов онлайн.
func (r *PostgresRepository) SetVendorOnline(ctx context.Context, vendorID int64, online bool) (*model.Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx,
		`UPDATE vendors SET is_online = $1 WHERE id = $2 RETURNING `+vendorColumns,
		online, vendorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("update vendor status: %w", err)
	}
	return v, nil
}

// SetVendorUPI сохраняет UPI-идентификатор точки. Пустая строка очищает значение.
func (r *PostgresRepository) SetVendorUPI(ctx context.Context, vendorID int64, upiID string) (*model.Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx,
		`UPDATE vendors SET upi_id = $1 WHERE id = $2 RETURNING `+vendorColumns,
		nullIfEmpty(upiID), vendorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("update vendor upi: %w", err)
	}
	return v, nil
}

// GetVendorWallet возвращает баланс точки и последние проводки.
func (r *PostgresRepository) GetVendorWallet(ctx context.Context, vendorID int64) (*model.Wallet, error) {
	v, err := r.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	txs, err := queryTransactions(ctx, r.pool,
		`SELECT id, amount, type, '', description, reference_id, payment_id, created_at
		 FROM vendor_transactions WHERE vendor_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		vendorID, recentTransactions)
	if err != nil {
		return nil, err
	}
	return &model.Wallet{Balance: v.WalletBalance, Transactions: txs}, nil
}

// LinkManager назначает пользователя с данным email управляющим точки. Повторная привязка не ошибка.
func (r *PostgresRepository) LinkManager(ctx context.Context, vendorID int64, email string) error {
	u, err := r.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if _, err := r.GetVendor(ctx, vendorID); err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO vendor_users (vendor_id, user_id) VALUES ($1, $2)
		 ON CONFLICT (vendor_id, user_id) DO NOTHING`,
		vendorID, u.ID,
	)
	if err != nil {
		return fmt.Errorf("link manager: %w", err)
	}
	return nil
}
