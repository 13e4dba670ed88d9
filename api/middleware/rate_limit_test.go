package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/motogo-vn/motogo-payments/pkg/config"
)

type fakeWindowStore struct {
	counts map[string]int64
	err    error
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{counts: map[string]int64{}}
}

func (f *fakeWindowStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	count := f.counts[scope]
	return count <= limit, count, nil
}

func TestPublicRateLimitBlocksAfterLimit(t *testing.T) {
	store := newFakeWindowStore()
	cfg := config.AuthRateLimitConfig{PublicWindow: time.Minute, PublicIPLimit: 2}
	var calls int
	handler := PublicRateLimit(cfg, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/public/payments/intents", nil)
		req.RemoteAddr = "203.0.113.7:54321"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i+1, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/public/payments/intents", nil)
	req.RemoteAddr = "203.0.113.7:54321"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	if calls != 2 {
		t.Fatalf("expected 2 handled requests got %d", calls)
	}
}

func TestPublicRateLimitSeparatesClients(t *testing.T) {
	store := newFakeWindowStore()
	cfg := config.AuthRateLimitConfig{PublicWindow: time.Minute, PublicIPLimit: 1}
	handler := PublicRateLimit(cfg, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodPost, "/api/public/payments/intents", nil)
	first.Header.Set("X-Forwarded-For", "198.51.100.1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, first)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/public/payments/intents", nil)
	second.Header.Set("X-Forwarded-For", "198.51.100.2")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, second)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected second client allowed got %d", resp.Code)
	}
}

func TestPublicRateLimitDisabledWithoutStore(t *testing.T) {
	cfg := config.AuthRateLimitConfig{PublicWindow: time.Minute, PublicIPLimit: 1}
	var calls int
	handler := PublicRateLimit(cfg, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/public/payments/intents", nil))
	}
	if calls != 3 {
		t.Fatalf("expected all requests through got %d", calls)
	}
}
