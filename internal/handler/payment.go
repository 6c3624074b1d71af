package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/service"
)

type createPaymentRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	VendorID    int64            `json:"vendor_id"`
	VendorName  string           `json:"vendor_name"`
	VendorUPIID string           `json:"vendor_upi_id"`
	Items       []model.CartLine `json:"items"`
	Receipt     string           `json:"receipt"`
}

type verifyPaymentRequest struct {
	GatewayOrderID   string           `json:"gateway_order_id"`
	GatewayPaymentID string           `json:"gateway_payment_id"`
	GatewaySignature string           `json:"gateway_signature"`
	VendorID         int64            `json:"vendor_id"`
	Items            []model.CartLine `json:"items"`
	Amount           *decimal.Decimal `json:"amount"`
}

type verifyPaymentResponse struct {
	Success   bool            `json:"success"`
	OrderID   int64           `json:"order_id"`
	Token     string          `json:"token"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// CreatePaymentOrder создаёт платёжное намерение в шлюзе для подзаказа одной точки.
func (h *Handler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "no items provided")
		return
	}

	intent, err := h.service.CreatePaymentIntent(r.Context(), userID, service.IntentRequest{
		VendorID:   req.VendorID,
		VendorName: req.VendorName,
		VendorUPI:  req.VendorUPIID,
		Items:      req.Items,
		Amount:     req.Amount,
		Receipt:    req.Receipt,
	})
	if err != nil {
		h.fail(w, "CreatePaymentOrder", err, zap.Int64("userID", userID))
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// VerifyPayment проверяет оплату через шлюз и проводит подзаказ.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req verifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.service.VerifyPayment(r.Context(), userID, service.VerifyRequest{
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.GatewayPaymentID,
		Signature:      req.GatewaySignature,
		VendorID:       req.VendorID,
		Items:          req.Items,
		Amount:         req.Amount,
	})
	if err != nil {
		h.fail(w, "VerifyPayment", err,
			zap.Int64("userID", userID),
			zap.String("gatewayOrderID", req.GatewayOrderID),
			zap.String("paymentID", req.GatewayPaymentID),
		)
		return
	}

	writeJSON(w, http.StatusOK, verifyPaymentResponse{
		Success:   true,
		OrderID:   res.OrderID,
		Token:     res.Token,
		PaymentID: res.PaymentID,
		Amount:    res.Total,
	})
}
