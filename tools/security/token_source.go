package security

import (
	"net/http"
	"strings"
)

// TokenFromRequest extracts the bearer token from the ?token query
// parameter or the Authorization header. The query parameter wins when
// both are present. Returns "" when neither carries a token.
func TokenFromRequest(r *http.Request) string {
	if tok := strings.TrimSpace(r.URL.Query().Get("token")); tok != "" {
		return tok
	}
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return authz
}
