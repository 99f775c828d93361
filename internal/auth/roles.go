package auth

// Role represents a caller role.
type Role string

const (
	RoleDriver  Role = "driver"
	RoleManager Role = "manager"
)

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleDriver, RoleManager:
		return Role(value), true
	default:
		return "", false
	}
}

// RoleAtLeast returns true when role satisfies required role.
func RoleAtLeast(role Role, required Role) bool {
	return roleRank(role) >= roleRank(required)
}

func roleRank(role Role) int {
	switch role {
	case RoleDriver:
		return 1
	case RoleManager:
		return 2
	default:
		return 0
	}
}
