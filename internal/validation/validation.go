// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/campus-canteen/internal/model"
)

// MinPasswordLen задаёт минимальную длину пароля.
const MinPasswordLen = 6

var validate = validator.New()

// IsValidEmail проверяет формат email.
func IsValidEmail(email string) bool {
	return validate.Var(email, "required,email,max=255") == nil
}

// IsValidPassword проверяет длину пароля.
func IsValidPassword(password string) bool {
	return validate.Var(password, "required,min=6,max=72") == nil
}

// IsValidRole проверяет, что роль входит в допустимый набор.
func IsValidRole(role string) bool {
	return validate.Var(role, "oneof="+model.RoleCustomer+" "+model.RoleVendor+" "+model.RoleStudent) == nil
}

// ParseStatus разбирает статус заказа без учёта регистра и пробелов.
func ParseStatus(s string) (model.OrderStatus, bool) {
	st := model.OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// IsValidQty проверяет количество в строке корзины.
func IsValidQty(qty int) bool {
	return validate.Var(qty, "min=1") == nil
}

// IsValidAmount проверяет, что сумма положительна, не больше max и содержит не более двух знаков после запятой.
func IsValidAmount(amount, max decimal.Decimal) bool {
	if !amount.IsPositive() || amount.GreaterThan(max) {
		return false
	}
	return amount.Equal(amount.Round(2))
}
