package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/service"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Email         string           `json:"email"`
	Role          string           `json:"role"`
	WalletBalance *decimal.Decimal `json:"wallet_balance,omitempty"`
}

type authResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    userResponse `json:"user"`
}

// Signup обрабатывает регистрацию пользователя и сразу выдаёт токен.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "all fields are required")
		return
	}

	u, err := h.service.RegisterUser(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		h.fail(w, "Signup", err, zap.String("email", req.Email))
		return
	}

	token, err := h.authMiddleware.SetAuthCookie(w, u.ID, u.Role)
	if err != nil {
		h.fail(w, "Signup", err, zap.Int64("userID", u.ID))
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Message: "User created successfully",
		Token:   token,
		User:    userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
	})
}

// Login обрабатывает вход пользователя с ограничением числа попыток на email.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if h.loginLimiter != nil {
		ok, retry, err := h.loginLimiter.Allow(r.Context(), req.Email)
		if err != nil {
			h.logger.Warn("login limiter unavailable", zap.Error(err))
		} else if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
			return
		}
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.fail(w, "Login", err, zap.String("email", req.Email))
		return
	}

	if h.loginLimiter != nil {
		if err := h.loginLimiter.Reset(r.Context(), req.Email); err != nil {
			h.logger.Warn("login limiter reset failed", zap.Error(err))
		}
	}

	token, err := h.authMiddleware.SetAuthCookie(w, u.ID, u.Role)
	if err != nil {
		h.fail(w, "Login", err, zap.Int64("userID", u.ID))
		return
	}

	balance := u.WalletBalance
	writeJSON(w, http.StatusOK, authResponse{
		Message: "Login successful",
		Token:   token,
		User: userResponse{
			ID:            u.ID,
			Name:          u.Name,
			Email:         u.Email,
			Role:          u.Role,
			WalletBalance: &balance,
		},
	})
}
