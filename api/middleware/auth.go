package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/api/responses"
	"github.com/motogo-vn/motogo-payments/pkg/config"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/identity"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
)

const (
	headerUserID     = "X-User-Id"
	headerUserRole   = "X-User-Role"
	headerStationIDs = "X-Station-Ids"
	sessionCookie    = "session_id"
)

// SessionResolver resolves a session cookie to a principal. A nil principal
// with a nil error means the session is unknown or expired.
type SessionResolver interface {
	Whoami(ctx context.Context, sessionID string) (*identity.Principal, error)
}

// Auth resolves the caller from a bearer JWT, trusted identity headers, or a
// session cookie, in that order, and seeds the request context. Requests with
// no credentials pass through anonymous; enforcement is left to RequireAuth
// and RequireStaff.
func Auth(cfg config.JWTConfig, sessions SessionResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := resolvePrincipal(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    principal.UserID.String(),
					"actor_role": string(principal.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFromContext(r.Context()) == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff rejects callers that are neither staff nor admin.
func RequireStaff(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if !principal.Role.IsStaff() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolvePrincipal(r *http.Request, cfg config.JWTConfig, sessions SessionResolver) (*identity.Principal, error) {
	if token := bearerToken(r); token != "" {
		claims, err := identity.ParseAccessToken(cfg, token)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
		}
		return &identity.Principal{
			UserID:     claims.UserID,
			Role:       claims.Role,
			StationIDs: claims.StationIDs,
		}, nil
	}

	if r.Header.Get(headerUserID) != "" {
		return principalFromHeaders(r)
	}

	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		if sessions == nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session auth unavailable")
		}
		principal, err := sessions.Whoami(r.Context(), cookie.Value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve session")
		}
		if principal == nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
		return principal, nil
	}

	return nil, nil
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

func principalFromHeaders(r *http.Request) (*identity.Principal, error) {
	userID, err := uuid.Parse(strings.TrimSpace(r.Header.Get(headerUserID)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid identity headers")
	}

	role, err := enums.ParseActorRole(strings.TrimSpace(r.Header.Get(headerUserRole)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid identity headers")
	}

	principal := &identity.Principal{UserID: userID, Role: role}
	if raw := strings.TrimSpace(r.Header.Get(headerStationIDs)); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			stationID, err := uuid.Parse(part)
			if err != nil {
				return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid identity headers")
			}
			principal.StationIDs = append(principal.StationIDs, stationID)
		}
	}
	return principal, nil
}
