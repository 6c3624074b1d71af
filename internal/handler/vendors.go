package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/repository"
)

type vendorUPIResponse struct {
	VendorID   int64   `json:"vendor_id"`
	OutletName string  `json:"outlet_name"`
	UPIID      *string `json:"upi_id"`
	IsOnline   bool    `json:"is_online"`
}

type vendorStatusRequest struct {
	IsOnline *bool `json:"is_online"`
}

type vendorUPIRequest struct {
	UPIID *string `json:"upi_id"`
}

// ListVendors возвращает активные точки.
func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.service.GetVendors(r.Context())
	if err != nil {
		h.fail(w, "ListVendors", err)
		return
	}
	if vendors == nil {
		vendors = []model.Vendor{}
	}
	writeJSON(w, http.StatusOK, vendors)
}

// GetVendorUPI возвращает платёжные реквизиты точки для оплаты через шлюз.
func (h *Handler) GetVendorUPI(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid vendor id")
		return
	}

	v, err := h.service.GetVendor(r.Context(), vendorID)
	if err != nil {
		if errors.Is(err, repository.ErrVendorNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.fail(w, "GetVendorUPI", err, zap.Int64("vendorID", vendorID))
		return
	}

	writeJSON(w, http.StatusOK, vendorUPIResponse{
		VendorID:   v.ID,
		OutletName: v.OutletName,
		UPIID:      v.UPIID,
		IsOnline:   v.IsOnline,
	})
}

// GetVendorWallet возвращает баланс и последние проводки точки управляющего.
func (h *Handler) GetVendorWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	wallet, err := h.service.GetVendorWallet(r.Context(), userID)
	if err != nil {
		h.fail(w, "GetVendorWallet", err, zap.Int64("userID", userID))
		return
	}
	if wallet.Transactions == nil {
		wallet.Transactions = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, wallet)
}

// SetVendorOnline переключает приём онлайн-заказов.
func (h *Handler) SetVendorOnline(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req vendorStatusRequest
	if err := decodeJSON(r, &req); err != nil || req.IsOnline == nil {
		writeError(w, http.StatusBadRequest, "is_online must be a boolean")
		return
	}

	v, err := h.service.SetVendorOnline(r.Context(), userID, *req.IsOnline)
	if err != nil {
		h.fail(w, "SetVendorOnline", err, zap.Int64("userID", userID))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetVendorUPI сохраняет UPI-идентификатор точки. Пустая строка удаляет его.
func (h *Handler) SetVendorUPI(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req vendorUPIRequest
	if err := decodeJSON(r, &req); err != nil || req.UPIID == nil {
		writeError(w, http.StatusBadRequest, "upi_id is required")
		return
	}

	v, err := h.service.SetVendorUPI(r.Context(), userID, *req.UPIID)
	if err != nil {
		h.fail(w, "SetVendorUPI", err, zap.Int64("userID", userID))
		return
	}
	writeJSON(w, http.StatusOK, v)
}
