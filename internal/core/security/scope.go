// Package security provides authorization and access control.
package security

import (
	"context"
	"fmt"

	"bottleworks/internal/core/apperror"
	appctx "bottleworks/internal/core/context"
)

// Permission defines available permissions in the system.
type Permission string

const (
	// CRUD permissions
	PermissionRead   Permission = "read"
	PermissionCreate Permission = "create"
	PermissionUpdate Permission = "update"
	PermissionDelete Permission = "delete"

	// Order-specific permissions
	PermissionChangeStatus  Permission = "change_status"
	PermissionOverrideAddon Permission = "override_addon"

	// Admin permissions
	PermissionAdmin Permission = "admin"
	PermissionAudit Permission = "audit"
)

// Role defines a set of permissions.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleOps        Role = "ops"
	RoleAccounting Role = "accounting"
	RoleViewer     Role = "viewer"
)

// AccessScope defines the boundaries of data visibility for current request.
// Used for authorization decisions (e.g. admin add-on override) and for
// consistent logging/audit context.
type AccessScope struct {
	// UserID is the authenticated user
	UserID string

	// Email of the authenticated user
	Email string

	// Roles assigned to the user
	Roles []Role

	// BrandIDs the user may operate on (empty for admins = all)
	BrandIDs []string
}

// HasRole checks whether the scope carries the given role.
func (s *AccessScope) HasRole(role Role) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the scope carries the admin role.
func (s *AccessScope) IsAdmin() bool {
	return s.HasRole(RoleAdmin)
}

type scopeKey struct{}

// WithScope adds AccessScope to context.
func WithScope(ctx context.Context, scope *AccessScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// GetScope returns AccessScope from context, or nil if absent.
func GetScope(ctx context.Context) *AccessScope {
	if v, ok := ctx.Value(scopeKey{}).(*AccessScope); ok {
		return v
	}
	return nil
}

// ScopeFromUser builds an AccessScope from the request user context.
func ScopeFromUser(u *appctx.UserContext) *AccessScope {
	if u == nil {
		return nil
	}
	scope := &AccessScope{
		UserID:   u.UserID,
		Email:    u.Email,
		BrandIDs: u.BrandIDs,
	}
	for _, r := range u.Roles {
		scope.Roles = append(scope.Roles, Role(r))
	}
	if u.IsAdmin && !scope.HasRole(RoleAdmin) {
		scope.Roles = append(scope.Roles, RoleAdmin)
	}
	return scope
}

// RequireAdmin returns an error unless the context user is an admin.
func RequireAdmin(ctx context.Context) error {
	scope := GetScope(ctx)
	if scope == nil {
		return apperror.NewUnauthorized("authentication required")
	}
	if !scope.IsAdmin() {
		return apperror.NewForbidden(fmt.Sprintf("user %s lacks admin role", scope.UserID))
	}
	return nil
}
