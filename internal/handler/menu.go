package handler

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/repository"
)

type menuItemRequest struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
}

type availabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

type menuItemResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Item    *model.MenuItem `json:"item"`
}

type deleteResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	SoftDelete bool   `json:"soft_delete"`
}

// GetMenu возвращает доступные позиции всех активных точек.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.GetMenu(r.Context())
	if err != nil {
		h.fail(w, "GetMenu", err)
		return
	}
	if items == nil {
		items = []model.MenuItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetVendorMenu возвращает всё меню точки текущего управляющего.
func (h *Handler) GetVendorMenu(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.service.GetVendorMenu(r.Context(), userID)
	if err != nil && !errors.Is(err, repository.ErrVendorNotFound) {
		h.fail(w, "GetVendorMenu", err, zap.Int64("userID", userID))
		return
	}
	if items == nil {
		items = []model.MenuItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// AddMenuItem добавляет позицию в меню точки.
func (h *Handler) AddMenuItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req menuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == nil || req.Price == nil {
		writeError(w, http.StatusBadRequest, "name and price are required")
		return
	}
	if !req.Price.IsPositive() {
		writeError(w, http.StatusBadRequest, "price must be greater than 0")
		return
	}

	item, err := h.service.AddMenuItem(r.Context(), userID, model.MenuItem{
		Name:        *req.Name,
		Price:       *req.Price,
		Description: req.Description,
		Category:    req.Category,
		IsAvailable: true,
	})
	if err != nil {
		h.fail(w, "AddMenuItem", err, zap.Int64("userID", userID))
		return
	}

	writeJSON(w, http.StatusCreated, menuItemResponse{
		Success: true,
		Message: "Menu item added successfully",
		Item:    item,
	})
}

// UpdateMenuItem частично обновляет позицию меню.
func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}

	var req menuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Price != nil && !req.Price.IsPositive() {
		writeError(w, http.StatusBadRequest, "price must be greater than 0")
		return
	}

	item, err := h.service.UpdateMenuItem(r.Context(), userID, itemID, model.MenuItemUpdate{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		h.fail(w, "UpdateMenuItem", err, zap.Int64("userID", userID), zap.Int64("itemID", itemID))
		return
	}

	writeJSON(w, http.StatusOK, menuItemResponse{
		Success: true,
		Message: "Menu item updated successfully",
		Item:    item,
	})
}

// SetAvailability включает или снимает позицию с продажи.
func (h *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}

	var req availabilityRequest
	if err := decodeJSON(r, &req); err != nil || req.IsAvailable == nil {
		writeError(w, http.StatusBadRequest, "is_available must be a boolean")
		return
	}

	item, err := h.service.SetMenuItemAvailability(r.Context(), userID, itemID, *req.IsAvailable)
	if err != nil {
		h.fail(w, "SetAvailability", err, zap.Int64("userID", userID), zap.Int64("itemID", itemID))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteMenuItem удаляет позицию. Позиция из прошлых заказов только снимается с продажи.
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}

	soft, err := h.service.DeleteMenuItem(r.Context(), userID, itemID)
	if err != nil {
		h.fail(w, "DeleteMenuItem", err, zap.Int64("userID", userID), zap.Int64("itemID", itemID))
		return
	}

	resp := deleteResponse{Success: true, Message: "Menu item deleted successfully", SoftDelete: soft}
	if soft {
		resp.Message = "Item has been marked as unavailable (it cannot be deleted because it exists in past orders)"
	}
	writeJSON(w, http.StatusOK, resp)
}
