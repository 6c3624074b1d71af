// Package token формирует человекочитаемые номера заказов.
package token

import (
	"fmt"
	"time"
)

// Scope задаёт область счётчика номеров: календарный день (UTC)
// и, для оплат через платёжный шлюз, торговую точку.
type Scope struct {
	VendorID int64
	Date     time.Time
}

// DateScope возвращает область «только дата» для оплаты из кошелька.
func DateScope(now time.Time) Scope {
	return Scope{Date: Day(now)}
}

// VendorScope возвращает область «точка + дата» для оплаты через шлюз.
func VendorScope(vendorID int64, now time.Time) Scope {
	return Scope{VendorID: vendorID, Date: Day(now)}
}

// PerVendor сообщает, привязана ли область к торговой точке.
func (s Scope) PerVendor() bool {
	return s.VendorID != 0
}

// Day обрезает момент времени до начала календарного дня в UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Format собирает номер заказа вида DD_MM_YYYY_NN (по дате)
// или DD_MM_YYYY_NNN (по точке и дате).
func Format(s Scope, n int) string {
	width := 2
	if s.PerVendor() {
		width = 3
	}
	return fmt.Sprintf("%s_%0*d", s.Date.Format("02_01_2006"), width, n)
}
