// Package identity carries the authenticated caller's owner id through a
// request context. Hosted storage scopes every row to this value.
package identity

import "context"

type ownerKey struct{}

// WithOwner returns a copy of ctx that carries ownerID.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFrom returns the owner id stored in ctx, or "" when the request is
// anonymous (auth disabled).
func OwnerFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}
