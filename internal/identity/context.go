package identity

import "context"

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID string
	Role   Role
}

type contextKey string

const principalKey contextKey = "identity.principal"

// WithPrincipal attaches the authenticated caller to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
