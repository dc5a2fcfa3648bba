package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the shared secret on inbound calls.
const APIKeyHeader = "X-API-Key"

// compareKeys performs a timing-safe comparison, hashing both inputs with
// SHA-256 first so lengths don't leak.
func compareKeys(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}

// auth requires X-API-Key when a key is configured. /health stays public.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		if !compareKeys(r.Header.Get(APIKeyHeader), s.cfg.APIKey) {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// securityHeaders adds standard hardening headers to every response.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
