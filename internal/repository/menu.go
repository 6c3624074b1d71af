package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/campus-canteen/internal/model"
)

const menuColumns = `m.id, m.vendor_id, v.outlet_name, v.is_active, m.name, m.price,
	m.description, m.category, m.image_url, m.is_available`

func scanMenuItem(row pgx.Row) (model.MenuItem, error) {
	var mi model.MenuItem
	err := row.Scan(&mi.ID, &mi.VendorID, &mi.VendorName, &mi.VendorLive, &mi.Name, &mi.Price,
		&mi.Description, &mi.Category, &mi.ImageURL, &mi.IsAvailable)
	return mi, err
}

func menuItemsByIDs(ctx context.Context, q querier, ids []int64) (map[int64]model.MenuItem, error) {
	rows, err := q.Query(ctx,
		`SELECT `+menuColumns+` FROM menu_items m JOIN vendors v ON v.id = m.vendor_id WHERE m.id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("select menu items: %w", err)
	}
	defer rows.Close()

	res := make(map[int64]model.MenuItem, len(ids))
	for rows.Next() {
		mi, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		res[mi.ID] = mi
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// MenuItemsByIDs возвращает позиции меню вне транзакции.
func (r *PostgresRepository) MenuItemsByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error) {
	return menuItemsByIDs(ctx, r.pool, ids)
}

// GetMenu возвращает доступные позиции активных точек.
func (r *PostgresRepository) GetMenu(ctx context.Context) ([]model.MenuItem, error) {
	return r.queryMenu(ctx,
		`SELECT `+menuColumns+` FROM menu_items m JOIN vendors v ON v.id = m.vendor_id
		 WHERE m.is_available = true AND v.is_active = true
		 ORDER BY v.outlet_name, m.name`)
}

// GetVendorMenu возвращает все позиции точки, включая снятые с продажи.
func (r *PostgresRepository) GetVendorMenu(ctx context.Context, vendorID int64) ([]model.MenuItem, error) {
	return r.queryMenu(ctx,
		`SELECT `+menuColumns+` FROM menu_items m JOIN vendors v ON v.id = m.vendor_id
		 WHERE m.vendor_id = $1 ORDER BY m.name`,
		vendorID)
}

func (r *PostgresRepository) queryMenu(ctx context.Context, query string, args ...any) ([]model.MenuItem, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select menu: %w", err)
	}
	defer rows.Close()

	var res []model.MenuItem
	for rows.Next() {
		mi, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		res = append(res, mi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// AddMenuItem добавляет позицию в меню точки.
func (r *PostgresRepository) AddMenuItem(ctx context.Context, mi model.MenuItem) (*model.MenuItem, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO menu_items (vendor_id, name, price, description, category, image_url, is_available)
		 VALUES ($1, $2, $3, $4, $5, $6, true) RETURNING id`,
		mi.VendorID, mi.Name, mi.Price, mi.Description, mi.Category, mi.ImageURL,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrMenuItemExists
		}
		return nil, fmt.Errorf("insert menu item: %w", err)
	}
	return r.getMenuItem(ctx, mi.VendorID, id)
}

func (r *PostgresRepository) getMenuItem(ctx context.Context, vendorID, itemID int64) (*model.MenuItem, error) {
	mi, err := scanMenuItem(r.pool.QueryRow(ctx,
		`SELECT `+menuColumns+` FROM menu_items m JOIN vendors v ON v.id = m.vendor_id
		 WHERE m.id = $1 AND m.vendor_id = $2`,
		itemID, vendorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return &mi, nil
}

// UpdateMenuItem применяет частичное обновление одним параметризованным запросом.
// Имена колонок берутся только из фиксированного набора полей model.MenuItemUpdate.
func (r *PostgresRepository) UpdateMenuItem(ctx context.Context, vendorID, itemID int64, upd model.MenuItemUpdate) (*model.MenuItem, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Price != nil {
		set("price", *upd.Price)
	}
	if upd.Description != nil {
		set("description", nullIfEmpty(*upd.Description))
	}
	if upd.Category != nil {
		set("category", nullIfEmpty(*upd.Category))
	}
	if len(sets) == 0 {
		return r.getMenuItem(ctx, vendorID, itemID)
	}

	args = append(args, itemID, vendorID)
	query := fmt.Sprintf(`UPDATE menu_items SET %s WHERE id = $%d AND vendor_id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrMenuItemExists
		}
		return nil, fmt.Errorf("update menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.getMenuItem(ctx, vendorID, itemID)
}

// SetMenuItemAvailability включает или выключает позицию.
func (r *PostgresRepository) SetMenuItemAvailability(ctx context.Context, vendorID, itemID int64, available bool) (*model.MenuItem, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE menu_items SET is_available = $1 WHERE id = $2 AND vendor_id = $3`,
		available, itemID, vendorID,
	)
	if err != nil {
		return nil, fmt.Errorf("update availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.getMenuItem(ctx, vendorID, itemID)
}

// DeleteMenuItem удаляет позицию. Если она встречается в заказах, позиция только
// снимается с продажи, и возвращается soft == true.
func (r *PostgresRepository) DeleteMenuItem(ctx context.Context, vendorID, itemID int64) (soft bool, err error) {
	err = r.withinPgTx(ctx, func(tx pgx.Tx) error {

		// Блокировка строки конфликтует с FK-проверкой новых строк заказа.
		var id int64
		err := tx.QueryRow(ctx,
			`SELECT id FROM menu_items WHERE id = $1 AND vendor_id = $2 FOR UPDATE`,
			itemID, vendorID,
		).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock menu item: %w", err)
		}

		var refs int64
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM order_items WHERE menu_item_id = $1`, itemID,
		).Scan(&refs); err != nil {
			return fmt.Errorf("count order items: %w", err)
		}

		if refs > 0 {
			soft = true
			_, err := tx.Exec(ctx, `UPDATE menu_items SET is_available = false WHERE id = $1`, itemID)
			if err != nil {
				return fmt.Errorf("mark unavailable: %w", err)
			}
			return nil
		}

		soft = false
		if _, err := tx.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, itemID); err != nil {
			return fmt.Errorf("delete menu item: %w", err)
		}
		return nil
	})
	return soft, err
}

func nullIfEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
