package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/model"
)

type topUpRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type topUpResponse struct {
	Success    bool            `json:"success"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// GetWallet возвращает баланс и последние проводки пользователя.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	wallet, err := h.service.GetWallet(r.Context(), userID)
	if err != nil {
		h.fail(w, "GetWallet", err, zap.Int64("userID", userID))
		return
	}
	if wallet.Transactions == nil {
		wallet.Transactions = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, wallet)
}

// TopUpWallet пополняет кошелёк пользователя.
func (h *Handler) TopUpWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req topUpRequest
	if err := decodeJSON(r, &req); err != nil || req.Amount == nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	balance, err := h.service.TopUpWallet(r.Context(), userID, *req.Amount)
	if err != nil {
		h.fail(w, "TopUpWallet", err, zap.Int64("userID", userID))
		return
	}
	writeJSON(w, http.StatusOK, topUpResponse{Success: true, NewBalance: balance})
}
