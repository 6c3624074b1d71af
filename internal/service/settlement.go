package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/cart"
	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/payment"
	"github.com/mmeshcher/campus-canteen/internal/repository"
	"github.com/mmeshcher/campus-canteen/internal/token"
)

// ErrGatewayDisabled возвращается, если ключи платёжного шлюза не заданы.
var ErrGatewayDisabled = errors.New("payment gateway is not configured")

// PlaceOrderRequest описывает заказ с оплатой из кошелька.
type PlaceOrderRequest struct {
	Items []model.CartLine
	// ExpectedTotal, если задан, должен совпасть с суммой, рассчитанной сервером.
	ExpectedTotal *decimal.Decimal
}

// IntentRequest описывает подзаказ одной точки перед оплатой через шлюз.
type IntentRequest struct {
	VendorID   int64
	VendorName string
	VendorUPI  string
	Items      []model.CartLine
	Amount     *decimal.Decimal
	Receipt    string
}

// Intent содержит данные платёжного намерения для клиента.
type Intent struct {
	OrderID    string          `json:"order_id"`
	Amount     int64           `json:"amount"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
	KeyID      string          `json:"key_id"`
	Receipt    string          `json:"receipt"`
	VendorID   int64           `json:"vendor_id"`
	VendorName string          `json:"vendor_name,omitempty"`
}

// VerifyRequest описывает ответ шлюза после оплаты подзаказа.
type VerifyRequest struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
	// VendorID, Items и Amount необязательны. Если переданы, должны совпасть с оплаченным намерением.
	VendorID int64
	Items    []model.CartLine
	Amount   *decimal.Decimal
}

// PlaceWalletOrder проводит заказ с оплатой из кошелька одной транзакцией:
// переоценка корзины, проверка баланса, номер за день, заказ, списание и проводка.
func (s *Service) PlaceWalletOrder(ctx context.Context, userID int64, req PlaceOrderRequest) (*model.Settlement, error) {
	if err := cart.Validate(req.Items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var res *model.Settlement
	err := s.repo.WithinTx(ctx, func(l repository.Ledger) error {
		balance, err := l.LockUserBalance(ctx, userID)
		if err != nil {
			return err
		}

		items, err := l.MenuItemsByIDs(ctx, cart.MenuItemIDs(req.Items))
		if err != nil {
			return err
		}
		groups, err := cart.Segregate(req.Items, items)
		if err != nil {
			return err
		}

		total := cart.Total(groups)
		if err := s.checkTotal(total, req.ExpectedTotal); err != nil {
			return err
		}
		if balance.LessThan(total) {
			return repository.ErrInsufficientBalance
		}

		scope := token.DateScope(s.now())
		n, err := l.AllocateToken(ctx, scope)
		if err != nil {
			return err
		}
		tok := token.Format(scope, n)

		order := &model.Order{
			UserID:        userID,
			Token:         tok,
			TotalAmount:   total,
			Status:        model.OrderStatusPending,
			PaymentMethod: model.PaymentMethodWallet,
			PaymentStatus: model.PaymentStatusCompleted,
			OrderDate:     scope.Date,
			OrderOfDay:    n,
			Items:         cart.Flatten(groups),
		}
		if err := l.InsertOrder(ctx, order); err != nil {
			return err
		}

		if _, err := l.DebitUser(ctx, userID, total); err != nil {
			return err
		}
		if err := l.AppendUserTransaction(ctx, userID, model.Transaction{
			Amount:      total,
			Type:        model.TxDebit,
			Funding:     model.FundingWallet,
			Description: "Order payment",
			ReferenceID: &tok,
		}); err != nil {
			return err
		}

		res = &model.Settlement{OrderID: order.ID, Token: tok, Total: total}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("wallet order settled",
		zap.Int64("userID", userID),
		zap.Int64("orderID", res.OrderID),
		zap.String("token", res.Token),
		zap.String("total", res.Total.StringFixed(2)),
	)
	return res, nil
}

// CreatePaymentIntent создаёт платёжное намерение для подзаказа одной точки.
// Сохраняется только снимок подзаказа: заказ появится после подтверждения оплаты.
func (s *Service) CreatePaymentIntent(ctx context.Context, userID int64, req IntentRequest) (*Intent, error) {
	if s.gateway == nil {
		return nil, ErrGatewayDisabled
	}
	if err := cart.Validate(req.Items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	items, err := s.repo.MenuItemsByIDs(ctx, cart.MenuItemIDs(req.Items))
	if err != nil {
		return nil, err
	}
	group, err := vendorGroup(req.Items, items, req.VendorID)
	if err != nil {
		return nil, err
	}
	if err := s.checkTotal(group.Total, req.Amount); err != nil {
		return nil, err
	}

	receipt := req.Receipt
	if receipt == "" {
		receipt = "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	notes := map[string]string{
		"user_id":   strconv.FormatInt(userID, 10),
		"vendor_id": strconv.FormatInt(group.VendorID, 10),
	}
	if req.VendorName != "" {
		notes["vendor_name"] = req.VendorName
	}
	if req.VendorUPI != "" {
		notes["vendor_upi_id"] = req.VendorUPI
	}

	o, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:   minorUnits(group.Total),
		Currency: s.opts.Currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment order: %w", err)
	}

	if err := s.repo.SavePaymentIntent(ctx, model.PaymentIntent{
		GatewayOrderID: o.ID,
		UserID:         userID,
		VendorID:       group.VendorID,
		VendorName:     group.VendorName,
		Items:          group.Items,
		Total:          group.Total,
		AmountMinor:    o.Amount,
		Currency:       o.Currency,
	}); err != nil {
		return nil, fmt.Errorf("save payment intent: %w", err)
	}

	return &Intent{
		OrderID:    o.ID,
		Amount:     o.Amount,
		Total:      group.Total,
		Currency:   o.Currency,
		KeyID:      s.gateway.KeyID(),
		Receipt:    receipt,
		VendorID:   group.VendorID,
		VendorName: group.VendorName,
	}, nil
}

// VerifyPayment проверяет подпись и статус платежа и проводит подзаказ одной транзакцией.
// Проводится снимок, сохранённый при создании намерения: цены и состав не пересчитываются.
func (s *Service) VerifyPayment(ctx context.Context, userID int64, req VerifyRequest) (*model.Settlement, error) {
	if s.gateway == nil {
		return nil, ErrGatewayDisabled
	}
	if req.GatewayOrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, fmt.Errorf("%w: gateway_order_id, gateway_payment_id and gateway_signature are required", ErrValidation)
	}

	if err := s.gateway.VerifySignature(req.GatewayOrderID, req.PaymentID, req.Signature); err != nil {
		s.logger.Warn("payment signature mismatch",
			zap.Int64("userID", userID),
			zap.String("gatewayOrderID", req.GatewayOrderID),
			zap.String("paymentID", req.PaymentID),
		)
		return nil, err
	}

	p, err := s.gateway.FetchPayment(ctx, req.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("fetch payment: %w", err)
	}
	if !payment.IsSuccessful(p.Status) {
		return nil, fmt.Errorf("%w: status %s", ErrPaymentNotSuccessful, p.Status)
	}
	if p.OrderID != req.GatewayOrderID {
		return nil, fmt.Errorf("%w: payment belongs to another order", ErrPaymentNotSuccessful)
	}

	var (
		res    *model.Settlement
		vendor string
	)
	err = s.repo.WithinTx(ctx, func(l repository.Ledger) error {
		in, err := l.LockPaymentIntent(ctx, req.GatewayOrderID)
		if err != nil {
			return err
		}
		if err := checkIntent(in, userID, req, p); err != nil {
			return err
		}
		if err := l.MarkIntentSettled(ctx, in.GatewayOrderID); err != nil {
			return err
		}

		vendorID := in.VendorID
		vendor = in.VendorName

		scope := token.VendorScope(vendorID, s.now())
		n, err := l.AllocateToken(ctx, scope)
		if err != nil {
			return err
		}
		tok := token.Format(scope, n)

		gatewayOrderID, paymentID := in.GatewayOrderID, p.ID
		order := &model.Order{
			UserID:           userID,
			VendorID:         &vendorID,
			Token:            tok,
			TotalAmount:      in.Total,
			Status:           model.OrderStatusPending,
			PaymentMethod:    model.PaymentMethodUPI,
			PaymentStatus:    model.PaymentStatusCompleted,
			GatewayOrderID:   &gatewayOrderID,
			GatewayPaymentID: &paymentID,
			OrderDate:        scope.Date,
			OrderOfDay:       n,
			Items:            append([]model.OrderItem(nil), in.Items...),
		}
		if err := l.InsertOrder(ctx, order); err != nil {
			return err
		}

		if _, err := l.CreditVendor(ctx, vendorID, in.Total); err != nil {
			return err
		}
		if err := l.AppendVendorTransaction(ctx, vendorID, model.Transaction{
			Amount:      in.Total,
			Type:        model.TxCredit,
			Description: fmt.Sprintf("Payment for order %s", tok),
			ReferenceID: &tok,
			PaymentID:   &paymentID,
		}); err != nil {
			return err
		}
		if err := l.AppendUserTransaction(ctx, userID, model.Transaction{
			Amount:      in.Total,
			Type:        model.TxDebit,
			Funding:     model.FundingExternal,
			Description: fmt.Sprintf("UPI payment to %s", in.VendorName),
			ReferenceID: &tok,
			PaymentID:   &paymentID,
		}); err != nil {
			return err
		}
		if err := l.AppendNotification(ctx, model.Notification{
			UserID:      userID,
			Title:       "Payment Successful",
			Message:     fmt.Sprintf("Payment of ₹%s to %s was successful. Your order token is %s.", in.Total.StringFixed(2), in.VendorName, tok),
			Type:        model.NotificationPayment,
			ReferenceID: &tok,
		}); err != nil {
			return err
		}

		res = &model.Settlement{OrderID: order.ID, Token: tok, Total: in.Total, PaymentID: paymentID}
		return nil
	})
	if err != nil {
		if !errors.Is(err, repository.ErrPaymentAlreadySettled) {
			s.logger.Error("verified payment not settled",
				zap.Error(err),
				zap.Int64("userID", userID),
				zap.String("gatewayOrderID", req.GatewayOrderID),
				zap.String("paymentID", req.PaymentID),
			)
		}
		return nil, err
	}

	s.logger.Info("gateway order settled",
		zap.Int64("userID", userID),
		zap.String("vendor", vendor),
		zap.String("token", res.Token),
		zap.String("paymentID", res.PaymentID),
	)
	return res, nil
}

// checkIntent сверяет сохранённое намерение с плательщиком, запросом клиента и платежом шлюза.
// Чужое намерение неотличимо от несуществующего.
func checkIntent(in *model.PaymentIntent, userID int64, req VerifyRequest, p *payment.Payment) error {
	if in.UserID != userID {
		return repository.ErrNotFound
	}
	if in.SettledAt != nil {
		return repository.ErrPaymentAlreadySettled
	}
	if req.VendorID != 0 && req.VendorID != in.VendorID {
		return fmt.Errorf("%w: payment was created for vendor %d", ErrValidation, in.VendorID)
	}
	if len(req.Items) > 0 && !sameLines(req.Items, in.Items) {
		return fmt.Errorf("%w: items differ from the paid sub-order", ErrValidation)
	}
	if req.Amount != nil && !req.Amount.Equal(in.Total) {
		return fmt.Errorf("%w: client %s, paid sub-order %s", ErrAmountMismatch, req.Amount.StringFixed(2), in.Total.StringFixed(2))
	}
	if p.Amount != in.AmountMinor || (p.Currency != "" && !strings.EqualFold(p.Currency, in.Currency)) {
		return fmt.Errorf("%w: paid %d %s, expected %d %s", ErrAmountMismatch, p.Amount, p.Currency, in.AmountMinor, in.Currency)
	}
	return nil
}

// sameLines сравнивает количества по позициям меню без учёта порядка строк.
func sameLines(lines []model.CartLine, items []model.OrderItem) bool {
	qty := make(map[int64]int, len(items))
	for _, it := range items {
		qty[it.MenuItemID] += it.Qty
	}
	for _, l := range lines {
		qty[l.MenuItemID] -= l.Qty
	}
	for _, n := range qty {
		if n != 0 {
			return false
		}
	}
	return true
}

// vendorGroup переоценивает корзину и требует, чтобы все позиции принадлежали одной точке.
// vendorID == 0 принимает любую единственную точку.
func vendorGroup(lines []model.CartLine, items map[int64]model.MenuItem, vendorID int64) (*model.VendorOrder, error) {
	groups, err := cart.Segregate(lines, items)
	if err != nil {
		return nil, err
	}
	if len(groups) != 1 {
		return nil, fmt.Errorf("%w: sub-order must contain items of exactly one vendor", ErrValidation)
	}
	if vendorID != 0 && groups[0].VendorID != vendorID {
		return nil, fmt.Errorf("%w: items do not belong to vendor %d", ErrValidation, vendorID)
	}
	return &groups[0], nil
}

// checkTotal проверяет границы суммы и совпадение с суммой клиента, если она передана.
func (s *Service) checkTotal(total decimal.Decimal, expected *decimal.Decimal) error {
	if !total.IsPositive() || total.GreaterThan(s.opts.MaxOrderTotal) {
		return fmt.Errorf("%w: order total %s is out of range", ErrValidation, total.StringFixed(2))
	}
	if expected != nil && !expected.Equal(total) {
		return fmt.Errorf("%w: client %s, server %s", ErrAmountMismatch, expected.StringFixed(2), total.StringFixed(2))
	}
	return nil
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
