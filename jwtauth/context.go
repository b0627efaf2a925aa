package jwtauth

import "context"

// contextKey is an unexported type for context keys to prevent collisions
type contextKey string

const (
	identityContextKey  contextKey = "github.com/Wang-tianhao/edge-auth-go/jwtauth:identity"
	claimsContextKey    contextKey = "github.com/Wang-tianhao/edge-auth-go/jwtauth:claims"
	requestIDContextKey contextKey = "github.com/Wang-tianhao/edge-auth-go/jwtauth:request_id"
)

// WithIdentity stores the verified identity in the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// GetIdentity retrieves the verified identity from the request context.
// Returns false on public paths and for requests that never passed the filter.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// MustGetIdentity retrieves the identity and panics if not present.
// Use only behind the filter on protected routes.
func MustGetIdentity(ctx context.Context) Identity {
	id, ok := GetIdentity(ctx)
	if !ok {
		panic("jwtauth: identity not found in context")
	}
	return id
}

// WithClaims stores validated JWT claims in the request context.
// Claims are immutable and should not be modified by downstream handlers.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// GetClaims retrieves validated JWT claims from the request context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// WithRequestID stores a request ID in context for correlation
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok
}
