package auth

import (
	"net/http"
	"strings"
)

// Policy decides which requests need a token and which role.
type Policy struct {
	ExemptPaths map[string]struct{}
}

// NewDefaultPolicy builds the dashboard policy with extra exempt paths.
func NewDefaultPolicy(exemptPaths []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set}
}

// IsExempt reports whether the request skips auth entirely.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if r.Method == http.MethodOptions {
		return true
	}
	_, ok := p.ExemptPaths[r.URL.Path]
	return ok
}

// RequiredRole resolves the role a request needs. Reads are public.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	switch {
	case path == "/upload-piechart-csv":
		return RoleAdmin, true
	case strings.HasPrefix(path, "/api/upload/"):
		return RoleAdmin, true
	}
	return "", false
}
