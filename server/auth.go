// ABOUTME: Bearer token authentication middleware for the workflow and session APIs.
// ABOUTME: Health checks pass through; everything else needs Authorization: Bearer <token>.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// AuthMiddleware rejects requests without the expected bearer token. Only
// /health is exempt.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	expected := "Bearer " + token
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if subtle.ConstantTimeCompare([]byte(auth), []byte(expected)) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
		})
	}
}
