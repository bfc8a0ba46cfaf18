package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/logger"
)

// RequestLogger stores a logger enriched with the request's correlation ID
// and trace/span IDs in the context. Handlers that resolve a storefront
// session enrich it further with session_id and user_id.
//
// Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
