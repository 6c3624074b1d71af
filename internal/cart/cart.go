// Package cart разбивает корзину на подзаказы по торговым точкам.
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/validation"
)

var (
	// ErrEmptyCart возвращается для пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidQty возвращается для строки с количеством меньше единицы.
	ErrInvalidQty = errors.New("invalid item quantity")
	// ErrItemUnavailable возвращается, если позиция не найдена, снята с продажи
	// или её точка неактивна.
	ErrItemUnavailable = errors.New("item unavailable")
)

// MenuItemIDs возвращает идентификаторы позиций корзины без повторов в порядке появления.
func MenuItemIDs(lines []model.CartLine) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.MenuItemID]; ok {
			continue
		}
		seen[l.MenuItemID] = struct{}{}
		ids = append(ids, l.MenuItemID)
	}
	return ids
}

// Validate проверяет структуру корзины без обращения к хранилищу.
func Validate(lines []model.CartLine) error {
	if len(lines) == 0 {
		return ErrEmptyCart
	}
	for _, l := range lines {
		if l.MenuItemID <= 0 || !validation.IsValidQty(l.Qty) {
			return fmt.Errorf("%w: menu item %d, qty %d", ErrInvalidQty, l.MenuItemID, l.Qty)
		}
	}
	return nil
}

// Segregate группирует строки корзины по торговым точкам. Цены берутся из items,
// актуальных позиций меню, а не из данных клиента. Группы идут в порядке
// первого появления точки в корзине.
func Segregate(lines []model.CartLine, items map[int64]model.MenuItem) ([]model.VendorOrder, error) {
	if err := Validate(lines); err != nil {
		return nil, err
	}

	index := make(map[int64]int)
	var groups []model.VendorOrder

	for _, l := range lines {
		mi, ok := items[l.MenuItemID]
		if !ok || !mi.IsAvailable || !mi.VendorLive {
			return nil, fmt.Errorf("%w: menu item %d", ErrItemUnavailable, l.MenuItemID)
		}

		i, ok := index[mi.VendorID]
		if !ok {
			i = len(groups)
			index[mi.VendorID] = i
			groups = append(groups, model.VendorOrder{
				VendorID:   mi.VendorID,
				VendorName: mi.VendorName,
				Total:      decimal.Zero,
			})
		}

		g := &groups[i]
		g.Items = append(g.Items, model.OrderItem{
			MenuItemID: mi.ID,
			Name:       mi.Name,
			Qty:        l.Qty,
			Price:      mi.Price,
			VendorID:   mi.VendorID,
			VendorName: mi.VendorName,
		})
		g.Total = g.Total.Add(mi.Price.Mul(decimal.NewFromInt(int64(l.Qty))))
	}

	return groups, nil
}

// Total суммирует итоги всех подзаказов.
func Total(groups []model.VendorOrder) decimal.Decimal {
	sum := decimal.Zero
	for _, g := range groups {
		sum = sum.Add(g.Total)
	}
	return sum
}

// Flatten объединяет строки всех подзаказов в один список.
func Flatten(groups []model.VendorOrder) []model.OrderItem {
	var items []model.OrderItem
	for _, g := range groups {
		items = append(items, g.Items...)
	}
	return items
}
