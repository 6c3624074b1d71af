package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

// echoCart отвечает телом запроса в заданном Content-Type и статусе из заголовка X-Status.
func echoCart(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	if ct := r.Header.Get("X-Reply-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	status := http.StatusOK
	if s := r.Header.Get("X-Status"); s != "" {
		status, _ = strconv.Atoi(s)
	}
	w.WriteHeader(status)
	if status != http.StatusNoContent {
		_, _ = w.Write(body)
	}
}

func gzipBytes(t *testing.T, s string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(s)); err != nil {
		t.Fatalf("write gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	const cart = `{"items":[{"menu_item_id":11,"qty":2}]}`

	tests := []struct {
		name           string
		compressedBody bool
		headers        map[string]string
		wantStatus     int
		wantEncoding   string
		wantBody       string
	}{
		{
			name:         "json reply compressed",
			headers:      map[string]string{"Accept-Encoding": "gzip", "X-Reply-Type": "application/json"},
			wantStatus:   http.StatusOK,
			wantEncoding: "gzip",
			wantBody:     cart,
		},
		{
			name:         "client without gzip",
			headers:      map[string]string{"X-Reply-Type": "application/json"},
			wantStatus:   http.StatusOK,
			wantEncoding: "",
			wantBody:     cart,
		},
		{
			name:           "compressed cart is unpacked",
			compressedBody: true,
			headers: map[string]string{
				"Content-Encoding": "gzip",
				"Accept-Encoding":  "gzip",
				"X-Reply-Type":     "application/json; charset=utf-8",
			},
			wantStatus:   http.StatusOK,
			wantEncoding: "gzip",
			wantBody:     cart,
		},
		{
			name:         "binary reply left as is",
			headers:      map[string]string{"Accept-Encoding": "gzip", "X-Reply-Type": "image/png"},
			wantStatus:   http.StatusOK,
			wantEncoding: "",
			wantBody:     cart,
		},
		{
			name:         "no content is never compressed",
			headers:      map[string]string{"Accept-Encoding": "gzip", "X-Reply-Type": "application/json", "X-Status": "204"},
			wantStatus:   http.StatusNoContent,
			wantEncoding: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(cart)
			if tt.compressedBody {
				body = gzipBytes(t, cart)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/orders", body)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()

			GzipMiddleware(http.HandlerFunc(echoCart)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status: got %d want %d", res.StatusCode, tt.wantStatus)
			}
			if ce := res.Header.Get("Content-Encoding"); ce != tt.wantEncoding {
				t.Fatalf("content-encoding: got %q want %q", ce, tt.wantEncoding)
			}

			var reader io.Reader = res.Body
			if tt.wantEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				if err != nil {
					t.Fatalf("new gzip reader: %v", err)
				}
				defer gr.Close()
				reader = gr
			}
			got, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(got) != tt.wantBody {
				t.Fatalf("body: got %q want %q", got, tt.wantBody)
			}
		})
	}
}

func TestGzipMiddleware_BrokenBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()

	called := false
	GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(w, req)

	if called {
		t.Fatalf("handler called for malformed gzip body")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want %d", w.Code, http.StatusBadRequest)
	}
}
