package auth

import (
	"context"
	"slices"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
)

// Roles understood by the scheduling API. Admin implies every other role.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// WithIdentity returns a copy of ctx carrying the caller's id and roles.
func WithIdentity(ctx context.Context, userID string, roles ...string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRolesKey, roles)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}

// HasRole reports whether the caller holds role, or admin.
func HasRole(ctx context.Context, role string) bool {
	roles := RolesFromContext(ctx)
	return slices.Contains(roles, role) || slices.Contains(roles, RoleAdmin)
}
