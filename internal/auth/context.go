package auth

import "context"

type contextKey struct{}

// NewContext returns a copy of ctx carrying the caller's claims. Stores
// authorize privileged operations from these claims.
func NewContext(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// FromContext returns the claims carried by ctx, or nil.
func FromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(contextKey{}).(*Claims)
	return claims
}
