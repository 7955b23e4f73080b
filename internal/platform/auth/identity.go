package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role is a user's authorization role.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess reports whether the caller may see a record owned by ownerID.
func (i Identity) CanAccess(ownerID uuid.UUID) bool {
	return i.IsAdmin() || i.UserID == ownerID
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity stored by the JWT middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// UserIDFromContext returns the caller's id, or uuid.Nil for an
// unauthenticated request.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := IdentityFromContext(ctx)
	return id.UserID
}

// RoleFromContext returns the caller's role, or "" when there is none.
func RoleFromContext(ctx context.Context) Role {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}
