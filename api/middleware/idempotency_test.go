package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"create intent", http.MethodPost, "/api/v1/payments/intents", defaultIdempotencyTTL, true},
		{"pos collect", http.MethodPost, "/api/v1/pos/collect", defaultIdempotencyTTL, true},
		{"public intent", http.MethodPost, "/api/public/payments/intents", defaultIdempotencyTTL, true},
		{"deposit hold", http.MethodPost, "/api/v1/deposits/hold", defaultIdempotencyTTL, true},
		{"refund", http.MethodPost, "/api/v1/payments/123/refund", criticalIdempotencyTTL, true},
		{"pos confirm", http.MethodPost, "/api/v1/pos/123/confirm", criticalIdempotencyTTL, true},
		{"public confirm", http.MethodPost, "/api/public/payments/123/confirm", criticalIdempotencyTTL, true},
		{"deposit forfeit", http.MethodPost, "/api/v1/deposits/abc/forfeit", criticalIdempotencyTTL, true},
		{"read endpoint", http.MethodGet, "/api/v1/payments", 0, false},
		{"gateway return", http.MethodGet, "/api/public/gateway/vnpay/return", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.pattern)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/payments/intents", "/api/v1/payments/intents", strings.NewReader(`{"bookingId":"b-1"}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/payments/intents", "/api/v1/payments/intents", strings.NewReader(`{"bookingId":"b-1"}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	replay := requestWithPattern(http.MethodPost, "/api/v1/payments/intents", "/api/v1/payments/intents", strings.NewReader(`{"bookingId":"b-1"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	replayResp := httptest.NewRecorder()
	mw(handler).ServeHTTP(replayResp, replay)

	if calls != 1 {
		t.Fatalf("expected handler to run once got %d", calls)
	}
	if replayResp.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", replayResp.Code)
	}
	if replayResp.Body.String() != `{"ok":true}` {
		t.Fatalf("unexpected replayed body %q", replayResp.Body.String())
	}
	if replayResp.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content type replay got %q", replayResp.Header().Get("Content-Type"))
	}
}

func TestIdempotencyMiddlewareRejectsMismatchedBody(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	first := requestWithPattern(http.MethodPost, "/api/v1/payments/intents", "/api/v1/payments/intents", strings.NewReader(`{"amountCents":100}`))
	first.Header.Set("Idempotency-Key", "abc")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	second := requestWithPattern(http.MethodPost, "/api/v1/payments/intents", "/api/v1/payments/intents", strings.NewReader(`{"amountCents":999}`))
	second.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, second)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestIdempotencyMiddlewareSkipsUnguardedRoutes(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodGet, "/api/v1/payments/123", "/api/v1/payments/{paymentId}", nil)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	mw(handler).ServeHTTP(httptest.NewRecorder(), requestWithPattern(http.MethodGet, "/api/v1/payments/123", "/api/v1/payments/{paymentId}", nil))

	if calls != 2 {
		t.Fatalf("expected handler on every call got %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected no stored records got %d", len(store.data))
	}
}
