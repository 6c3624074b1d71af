package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/repository"
	"github.com/mmeshcher/campus-canteen/internal/validation"
)

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, name, email, password, role string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = model.RoleCustomer
	}

	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	case !validation.IsValidEmail(email):
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	case !validation.IsValidPassword(password):
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, validation.MinPasswordLen)
	case !validation.IsValidRole(role):
		return nil, fmt.Errorf("%w: invalid role", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := model.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	id, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		return nil, err
	}
	u.ID = id
	return &u, nil
}

// AuthenticateUser проверяет email и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetUser возвращает профиль пользователя.
func (s *Service) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}
