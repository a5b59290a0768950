// Package auth holds the shared-token gate for the read endpoint.
package auth

import (
	"crypto/subtle"
	"net/http"
)

// ConstantTimeEqual compares two tokens without leaking the position of the
// first differing byte. Empty strings never match.
func ConstantTimeEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// QueryToken extracts the shared token from the request query string.
func QueryToken(r *http.Request) string {
	return r.URL.Query().Get("token")
}

// Allowed reports whether the request passes the token gate. An empty
// configured token disables the gate entirely.
func Allowed(r *http.Request, configured string) bool {
	if configured == "" {
		return true
	}
	return ConstantTimeEqual(QueryToken(r), configured)
}
