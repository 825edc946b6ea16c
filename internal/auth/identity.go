// Package auth is the identity gate: it issues and verifies bearer tokens
// and resolves inbound requests to an Identity{ID, Role}. Nothing outside
// this package parses tokens.
package auth

import "context"

// Roles a user can carry.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Identity is the caller resolved from a request credential.
type Identity struct {
	ID   int64
	Role string
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type contextKey struct{}

// ContextWithIdentity returns a child context carrying the identity.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext extracts the identity placed by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
