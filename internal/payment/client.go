// Package payment предоставляет клиент внешнего платёжного шлюза (API, совместимый с Razorpay)
// и проверку подписи подтверждения оплаты.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrInvalidSignature возвращается, если подпись платежа не совпала с ожидаемой.
var ErrInvalidSignature = errors.New("invalid payment signature")

// Статусы платежа, при которых заказ можно проводить.
const (
	StatusCaptured   = "captured"
	StatusAuthorized = "authorized"
)

// Client инкапсулирует HTTP-взаимодействие с платёжным шлюзом.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *retryablehttp.Client
}

// OrderRequest описывает запрос на создание платёжного намерения.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order описывает платёжное намерение на стороне шлюза.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Payment описывает платёж на стороне шлюза.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
}

// NewClient создаёт клиент шлюза с указанными адресом и ключами.
func NewClient(baseURL, keyID, keySecret string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: rc,
	}
}

// KeyID возвращает публичный ключ, который передаётся клиентскому виджету оплаты.
func (c *Client) KeyID() string {
	return c.keyID
}

// VerifySignature проверяет подпись подтверждения оплаты этим клиентом.
func (c *Client) VerifySignature(orderID, paymentID, signature string) error {
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}

// CreateOrder создаёт платёжное намерение на указанную сумму в минимальных единицах валюты.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchPayment запрашивает актуальное состояние платежа.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is empty")
	}

	var p Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("payment client not configured")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Sign вычисляет подпись HMAC-SHA256 над строкой "orderID|paymentID".
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature сравнивает подпись за постоянное время.
func VerifySignature(secret, orderID, paymentID, signature string) error {
	expected := Sign(secret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// IsSuccessful сообщает, позволяет ли статус платежа провести заказ.
func IsSuccessful(status string) bool {
	return status == StatusCaptured || status == StatusAuthorized
}
