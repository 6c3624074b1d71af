package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmeshcher/campus-canteen/internal/model"
)

// GetMenu возвращает публичное меню.
func (s *Service) GetMenu(ctx context.Context) ([]model.MenuItem, error) {
	return s.repo.GetMenu(ctx)
}

// GetVendorMenu возвращает полное меню точки управляющего.
func (s *Service) GetVendorMenu(ctx context.Context, managerID int64) ([]model.MenuItem, error) {
	vendorID, err := s.repo.ManagedVendorID(ctx, managerID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetVendorMenu(ctx, vendorID)
}

// AddMenuItem добавляет позицию в меню точки управляющего.
func (s *Service) AddMenuItem(ctx context.Context, managerID int64, mi model.MenuItem) (*model.MenuItem, error) {
	mi.Name = strings.TrimSpace(mi.Name)
	if mi.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if mi.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	vendorID, err := s.repo.ManagedVendorID(ctx, managerID)
	if err != nil {
		return nil, err
	}
	mi.VendorID = vendorID
	if mi.Description != nil {
		d := strings.TrimSpace(*mi.Description)
		mi.Description = &d
		if d == "" {
			mi.Description = nil
		}
	}
	return s.repo.AddMenuItem(ctx, mi)
}

// UpdateMenuItem частично обновляет позицию меню.
func (s *Service) UpdateMenuItem(ctx context.Context, managerID, itemID int64, upd model.MenuItemUpdate) (*model.MenuItem, error) {
	if upd.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	if upd.Name != nil {
		n := strings.TrimSpace(*upd.Name)
		if n == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		upd.Name = &n
	}
	if upd.Price != nil && upd.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	vendorID, err := s.repo.ManagedVendorID(ctx, managerID)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateMenuItem(ctx, vendorID, itemID, upd)
}

// SetMenuItemAvailability включает или выключает позицию меню.
func (s *Service) SetMenuItemAvailability(ctx context.Context, managerID, itemID int64, available bool) (*model.MenuItem, error) {
	vendorID, err := s.repo.ManagedVendorID(ctx, managerID)
	if err != nil {
		return nil, err
	}
	return s.repo.SetMenuItemAvailability(ctx, vendorID, itemID, available)
}

// DeleteMenuItem удаляет позицию меню или снимает её с продажи, если она есть в заказах.
func (s *Service) DeleteMenuItem(ctx context.Context, managerID, itemID int64) (bool, error) {
	vendorID, err := s.repo.ManagedVendorID(ctx, managerID)
	if err != nil {
		return false, err
	}
	return s.repo.DeleteMenuItem(ctx, vendorID, itemID)
}

// GetVendors возвращает активные точки.
func (s *Service) GetVendors(ctx context.Context) ([]model.Vendor, error) {
	return s.repo.GetVendors(ctx)
}

// GetVendor возвращает точку по идентификатору.
func (s *Service) GetVendor(ctx context.Context, vendorID int64) (*model.Vendor, error) {
	return s.repo.GetVendor(ctx, vendorID)
}

// SetVendorOnline переключает приём онлайн-заказов точкой управляющего.
func (s *Service) SetVendorOnline(ctx context.Context, managerID int64, online bool) (*model.Vendor, error) {
	vendorID, err := s.repo.ManagedVendorID(ctx, managerID)
	if err != nil {
		return nil, err
	}
	return s.repo.SetVendorOnline(ctx, vendorID, online)
}

// SetVendorUPI сохраняет UPI-идентификатор точки управляющего.
func (s *Service) SetVendorUPI(ctx context.Context, managerID int64, upiID string) (*model.Vendor, error) {
	vendorID, err := s.repo.ManagedVendorID(ctx, managerID)
	if err != nil {
		return nil, err
	}
	return s.repo.SetVendorUPI(ctx, vendorID, upiID)
}

// GetVendorWallet возвращает кошелёк точки управляющего.
func (s *Service) GetVendorWallet(ctx context.Context, managerID int64) (*model.Wallet, error) {
	vendorID, err := s.repo.ManagedVendorID(ctx, managerID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetVendorWallet(ctx, vendorID)
}
