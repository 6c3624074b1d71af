package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetUserIDFromContext(r.Context())
		if !ok {
			t.Fatalf("user id not in context")
		}
		if id != 42 {
			t.Fatalf("user id from context = %d, want 42", id)
		}
		if role, _ := GetRoleFromContext(r.Context()); role != "vendor" {
			t.Fatalf("role from context = %q, want vendor", role)
		}
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	if _, err := m.SetAuthCookie(w, 42, "vendor"); err != nil {
		t.Fatalf("SetAuthCookie: %v", err)
	}
	res := w.Result()
	resCookies := res.Cookies()
	if len(resCookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	r.AddCookie(resCookies[0])

	handler := m.Middleware(next)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_WithBearerHeader(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	token, _, err := m.IssueToken(7, "customer")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	var got int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetUserIDFromContext(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if got != 7 {
		t.Fatalf("user id = %d, want 7", got)
	}
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	m := NewAuthMiddleware("test-secret")
	other := NewAuthMiddleware("other-secret")

	foreign, _, err := other.IssueToken(1, "customer")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	expiredClaims := &Claims{
		UserID: 1,
		Role:   "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{name: "no token"},
		{name: "garbage", header: "Bearer not-a-jwt"},
		{name: "foreign secret", header: "Bearer " + foreign},
		{name: "expired", header: "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			m.Middleware(next).ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireRole("vendor")(next)

	tests := []struct {
		role string
		want int
	}{
		{role: "vendor", want: http.StatusNoContent},
		{role: "customer", want: http.StatusForbidden},
		{role: "", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/vendor", nil)
			r = r.WithContext(WithUser(r.Context(), 1, tt.role))
			w := httptest.NewRecorder()

			h.ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
