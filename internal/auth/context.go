package auth

import "context"

type contextKey string

const (
	contextKeyDriver contextKey = "auth.driver_id"
	contextKeyRole   contextKey = "auth.role"
)

// WithIdentity stores auth identity details in context.
func WithIdentity(ctx context.Context, driverID string, role Role) context.Context {
	ctx = context.WithValue(ctx, contextKeyDriver, driverID)
	ctx = context.WithValue(ctx, contextKeyRole, role)
	return ctx
}

// DriverIDFromContext extracts the caller's driver id from context. Empty
// for manager tokens without one.
func DriverIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if driverID, ok := ctx.Value(contextKeyDriver).(string); ok {
		return driverID
	}
	return ""
}

// RoleFromContext extracts the caller's role from context.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeyRole)
	if role, ok := value.(Role); ok {
		return role
	}
	if role, ok := value.(string); ok {
		if normalized, valid := NormalizeRole(role); valid {
			return normalized
		}
	}
	return ""
}
