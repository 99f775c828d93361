package auth

import (
	"net/http"
	"strings"
)

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a policy with the given exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves the required role for the request. Drivers are
// further restricted to their own records inside the handlers.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/records" || path == "/api/records/import":
		return RoleDriver, true
	case strings.HasPrefix(path, "/api/records/"):
		return RoleDriver, true
	case path == "/api/summary" || path == "/api/feed/today":
		return RoleDriver, true
	case path == "/api/statements":
		if method == http.MethodPost {
			return RoleDriver, true
		}
		return RoleManager, true
	case strings.HasPrefix(path, "/api/statements/"):
		return RoleDriver, true
	case path == "/api/drivers" || strings.HasPrefix(path, "/api/drivers/"):
		return RoleManager, true
	}

	if strings.HasPrefix(path, "/api/") {
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return RoleDriver, true
		}
		return RoleManager, true
	}
	return "", false
}
