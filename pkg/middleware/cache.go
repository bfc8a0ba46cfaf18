package middleware

import "net/http"

// NoStore marks responses as private and uncacheable. Session responses carry
// per-shopper state and must never be served from a shared cache.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, private")
		w.Header().Add("Vary", "Authorization")
		next.ServeHTTP(w, r)
	})
}
