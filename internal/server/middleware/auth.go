package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth returns middleware that requires the API key as a Bearer token or an
// X-API-Key header. An empty apiKey disables the check, and paths listed in
// public are always let through.
func Auth(apiKey string, public ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}
	want := []byte(apiKey)

	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			switch token := credential(r); {
			case token == "":
				reject(w, http.StatusUnauthorized, "unauthorized", "missing authentication token")
			case subtle.ConstantTimeCompare([]byte(token), want) != 1:
				reject(w, http.StatusUnauthorized, "unauthorized", "invalid authentication token")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// credential returns the Bearer token, else the X-API-Key header.
func credential(r *http.Request) string {
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
