package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/pkg/config"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	"github.com/motogo-vn/motogo-payments/pkg/identity"
)

type stubSessions struct {
	principal *identity.Principal
	err       error
	calls     int
}

func (s *stubSessions) Whoami(_ context.Context, _ string) (*identity.Principal, error) {
	s.calls++
	return s.principal, s.err
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, role enums.ActorRole, stationIDs ...uuid.UUID) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	claims := identity.AccessTokenClaims{
		UserID:     userID,
		Role:       role,
		StationIDs: stationIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token, userID
}

func capturePrincipal(captured **identity.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthPassesAnonymousThrough(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "motogo-identity"}
	var captured *identity.Principal
	handler := Auth(cfg, nil, nil)(capturePrincipal(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured != nil {
		t.Fatal("expected no principal for anonymous request")
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "motogo-identity"}
	handler := Auth(cfg, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthResolvesBearerToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "motogo-identity"}
	stationID := uuid.New()
	token, userID := mintTestToken(t, cfg, enums.RoleStaff, stationID)

	var captured *identity.Principal
	handler := Auth(cfg, nil, nil)(capturePrincipal(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured == nil {
		t.Fatal("expected principal in context")
	}
	if captured.UserID != userID {
		t.Fatalf("expected user %s got %s", userID, captured.UserID)
	}
	if captured.Role != enums.RoleStaff {
		t.Fatalf("expected staff role got %s", captured.Role)
	}
	if len(captured.StationIDs) != 1 || captured.StationIDs[0] != stationID {
		t.Fatalf("expected station scope %s got %v", stationID, captured.StationIDs)
	}
}

func TestAuthResolvesTrustedHeaders(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "motogo-identity"}
	userID := uuid.New()
	stationA := uuid.New()
	stationB := uuid.New()

	var captured *identity.Principal
	handler := Auth(cfg, nil, nil)(capturePrincipal(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", userID.String())
	req.Header.Set("X-User-Role", "STAFF")
	req.Header.Set("X-Station-Ids", stationA.String()+", "+stationB.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured == nil {
		t.Fatal("expected principal in context")
	}
	if captured.UserID != userID {
		t.Fatalf("expected user %s got %s", userID, captured.UserID)
	}
	if len(captured.StationIDs) != 2 {
		t.Fatalf("expected 2 station ids got %d", len(captured.StationIDs))
	}
}

func TestAuthRejectsMalformedHeaders(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "motogo-identity"}
	handler := Auth(cfg, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", "not-a-uuid")
	req.Header.Set("X-User-Role", "STAFF")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthResolvesSessionCookie(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "motogo-identity"}
	userID := uuid.New()
	sessions := &stubSessions{principal: &identity.Principal{UserID: userID, Role: enums.RoleRenter}}

	var captured *identity.Principal
	handler := Auth(cfg, sessions, nil)(capturePrincipal(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-1"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if sessions.calls != 1 {
		t.Fatalf("expected one whoami call got %d", sessions.calls)
	}
	if captured == nil || captured.UserID != userID {
		t.Fatal("expected session principal in context")
	}
}

func TestAuthRejectsUnknownSession(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "motogo-identity"}
	sessions := &stubSessions{}

	handler := Auth(cfg, sessions, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-2"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireAuthBlocksAnonymous(t *testing.T) {
	handler := RequireAuth(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireStaffBlocksRenter(t *testing.T) {
	handler := RequireStaff(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithPrincipal(req.Context(), &identity.Principal{UserID: uuid.New(), Role: enums.RoleRenter})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(ctx))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRequireStaffAllowsAdmin(t *testing.T) {
	handler := RequireStaff(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithPrincipal(req.Context(), &identity.Principal{UserID: uuid.New(), Role: enums.RoleAdmin})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(ctx))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
