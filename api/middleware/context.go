package middleware

import (
	"context"

	"github.com/motogo-vn/motogo-payments/pkg/identity"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalFromContext returns the authenticated caller, or nil when the
// request is anonymous.
func PrincipalFromContext(ctx context.Context) *identity.Principal {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxPrincipal).(*identity.Principal); ok {
		return v
	}
	return nil
}

// WithPrincipal injects the resolved caller into the context for downstream
// handlers.
func WithPrincipal(ctx context.Context, principal *identity.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, principal)
}
