package handler

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/repository"
	"github.com/mmeshcher/campus-canteen/internal/service"
	"github.com/mmeshcher/campus-canteen/internal/validation"
)

type placeOrderRequest struct {
	Items []model.CartLine `json:"items"`
	Total *decimal.Decimal `json:"total"`
}

type placeOrderResponse struct {
	Success bool            `json:"success"`
	OrderID int64           `json:"order_id"`
	Token   string          `json:"token"`
	Total   decimal.Decimal `json:"total"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// PlaceOrder проводит заказ с оплатой из кошелька.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "no items provided")
		return
	}

	res, err := h.service.PlaceWalletOrder(r.Context(), userID, service.PlaceOrderRequest{
		Items:         req.Items,
		ExpectedTotal: req.Total,
	})
	if err != nil {
		h.fail(w, "PlaceOrder", err, zap.Int64("userID", userID))
		return
	}

	writeJSON(w, http.StatusOK, placeOrderResponse{
		Success: true,
		OrderID: res.OrderID,
		Token:   res.Token,
		Total:   res.Total,
	})
}

// GetOrders возвращает заказы текущего пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.service.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		h.fail(w, "GetOrders", err, zap.Int64("userID", userID))
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetVendorOrders возвращает заказы точки текущего управляющего.
func (h *Handler) GetVendorOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.service.GetVendorOrders(r.Context(), userID)
	if err != nil && !errors.Is(err, repository.ErrVendorNotFound) {
		h.fail(w, "GetVendorOrders", err, zap.Int64("userID", userID))
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// SetOrderStatus меняет статус заказа и уведомляет покупателя.
func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, ok := validation.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	order, err := h.service.SetOrderStatus(r.Context(), userID, orderID, status)
	if err != nil {
		if errors.Is(err, repository.ErrVendorNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.fail(w, "SetOrderStatus", err, zap.Int64("userID", userID), zap.Int64("orderID", orderID))
		return
	}
	writeJSON(w, http.StatusOK, order)
}
