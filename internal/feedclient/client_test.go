package feedclient

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/catalog-feed/internal/auth"
	"github.com/rickgao/catalog-feed/internal/model"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://feed.example.com")

		if c.baseURL != "https://feed.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://feed.example.com")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.retryBackoff != time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, time.Second)
		}
		if c.creds != nil {
			t.Error("creds should be nil by default")
		}
	})

	t.Run("with multiple options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		creds := &auth.Credentials{KeyID: "k"}
		c := NewClient("https://feed.example.com",
			WithTimeout(15*time.Second),
			WithRetries(10, 500*time.Millisecond),
			WithLogger(logger),
			WithCredentials(creds),
		)
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 10 || c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retries = (%d, %v)", c.maxRetries, c.retryBackoff)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
		if c.creds != creds {
			t.Error("creds not set correctly")
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("https://feed.example.com", WithHTTPClient(customClient))
		if c.httpClient != customClient {
			t.Error("custom HTTP client not set")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	t.Run("message from JSON body", func(t *testing.T) {
		err := newAPIError(406, []byte(`{"error":"cursor_ahead","details":"since_id 9"}`))
		if err.Error() != "feed api error 406: cursor_ahead: since_id 9" {
			t.Errorf("Error() = %q", err.Error())
		}
		if !err.IsCursorAhead() {
			t.Error("expected IsCursorAhead")
		}
	})

	t.Run("message from status text", func(t *testing.T) {
		err := newAPIError(502, []byte(`bad gateway`))
		if err.Message != "Bad Gateway" {
			t.Errorf("Message = %q, want %q", err.Message, "Bad Gateway")
		}
	})

	t.Run("IsRetryable", func(t *testing.T) {
		tests := []struct {
			code     int
			expected bool
		}{
			{500, true},
			{503, true},
			{429, true},
			{400, false},
			{401, false},
			{406, false},
			{404, false},
		}

		for _, tt := range tests {
			err := &APIError{StatusCode: tt.code}
			if got := err.IsRetryable(); got != tt.expected {
				t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
			}
		}
	})
}

// TestDoWithRetry tests the retry logic.
func TestDoWithRetry(t *testing.T) {
	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&attempts, 1)
			if n < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(3, 10*time.Millisecond))
		body, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"ok": true}` {
			t.Errorf("body = %q", string(body))
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("does not retry on 4xx", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusNotAcceptable)
			w.Write([]byte(`{"error":"cursor_ahead"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(3, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil, nil)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsCursorAhead() {
			t.Fatalf("expected cursor ahead APIError, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(2, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
			t.Fatalf("expected max retries error, got %v", err)
		}
		// 1 initial + 2 retries = 3 attempts
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("context cancellation during retry", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(5, 50*time.Millisecond))
		ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
		defer cancel()

		_, err := c.doWithRetry(ctx, http.MethodGet, "/test", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "context") {
			t.Errorf("error should be context-related, got %v", err)
		}
	})
}

func TestGetProductDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DeltasPath {
			t.Errorf("path = %q, want %q", r.URL.Path, DeltasPath)
		}
		q := r.URL.Query()
		want := map[string]string{"page": "2", "page_size": "10", "store_id": "1,2", "since_id": "5", "max_id": "40"}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("%s = %q, want %q", k, q.Get(k), v)
			}
		}
		w.Write([]byte(`{
			"current_page": 2, "last_page": 3, "page_size": 10, "total_count": 25, "max_id": 40,
			"products": [{"entity_id": 7, "sku": "A-7", "store_data": [{"store_id": 1, "price": 9.5, "currency": "EUR"}]}]
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL)
	maxID := int64(40)
	page, err := c.GetProductDeltas(context.Background(), DeltaQuery{
		Page: 2, PageSize: 10, StoreIDs: []int64{1, 2}, SinceID: 5, MaxID: &maxID,
	})
	if err != nil {
		t.Fatalf("GetProductDeltas failed: %v", err)
	}
	if page.LastPage != 3 || page.TotalCount != 25 || page.MaxID != 40 {
		t.Errorf("unexpected page header: %+v", page)
	}
	if len(page.Items) != 1 || page.Items[0].ItemID != 7 {
		t.Fatalf("items = %+v", page.Items)
	}
	sd := page.Items[0].PerStore[0]
	if sd.StoreID != 1 || sd.Price != 9.5 || sd.CurrencyCode != "EUR" {
		t.Errorf("store data = %+v", sd)
	}
}

func TestDeltaQueryValues(t *testing.T) {
	v := DeltaQuery{}.values()
	if v.Get("since_id") != "0" {
		t.Errorf("since_id = %q, want 0", v.Get("since_id"))
	}
	for _, k := range []string{"page", "page_size", "store_id", "max_id"} {
		if v.Has(k) {
			t.Errorf("%s should be omitted", k)
		}
	}
}

func TestPostItemChanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		raw, _ := io.ReadAll(r.Body)
		var body struct {
			ItemIDs []int64 `json:"item_ids"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if !reflect.DeepEqual(body.ItemIDs, []int64{4, 5}) {
			t.Errorf("item_ids = %v", body.ItemIDs)
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"accepted","accepted":2,"pending":2}`))
	}))
	defer server.Close()

	ack, err := NewClient(server.URL).PostItemChanges(context.Background(), []int64{4, 5})
	if err != nil {
		t.Fatalf("PostItemChanges failed: %v", err)
	}
	if ack.Status != "accepted" || ack.Accepted != 2 {
		t.Errorf("ack = %+v", ack)
	}
}

func TestSignedRequests(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	verifier := auth.NewVerifier(&key.PublicKey, 0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := verifier.Verify(r); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(model.FeedPage{Items: []model.FeedItem{}})
	}))
	defer server.Close()

	c := NewClient(server.URL, WithCredentials(&auth.Credentials{KeyID: "consumer", PrivateKey: key}))
	if _, err := c.GetProductDeltas(context.Background(), DeltaQuery{Page: 1}); err != nil {
		t.Fatalf("signed request rejected: %v", err)
	}

	_, err = NewClient(server.URL).GetProductDeltas(context.Background(), DeltaQuery{Page: 1})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("unsigned request err = %v, want 401", err)
	}
}
