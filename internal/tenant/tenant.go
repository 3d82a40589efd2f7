// Package tenant threads the identity zone identifier through the
// authentication core. Every store query is scoped to exactly one zone;
// there is no default zone to fall back to, so a request whose zone
// cannot be resolved must fail instead of reading another tenant's data.
package tenant

import (
	"context"
	"errors"
	"strings"
)

// ErrMissing indicates the request carries no resolvable identity zone.
var ErrMissing = errors.New("tenant: identity zone not resolved")

type zoneContextKey struct{}

// WithID attaches the identity zone identifier to the context.
func WithID(ctx context.Context, zoneID string) context.Context {
	zoneID = strings.TrimSpace(zoneID)
	if zoneID == "" {
		return ctx
	}
	return context.WithValue(ctx, zoneContextKey{}, zoneID)
}

// FromContext extracts the identity zone identifier if present.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(zoneContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Require returns the identity zone from the context or ErrMissing.
// Callers are expected to fail their request on error.
func Require(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", ErrMissing
	}
	return id, nil
}
