package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/service"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/httputil"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/logger"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const sessionKey contextKey = "session"

// SessionResolver loads the session named by the {sid} path parameter and
// stores it in the request context. Unknown or evicted sessions get a 404.
// An expired identity is signed out before the handler runs.
// The request logger is enriched with session_id and, when signed in, user_id.
func SessionResolver(registry *service.Registry, fallback *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := chi.URLParam(r, "sid")
			s, err := registry.Get(sid)
			if err != nil {
				httputil.WriteError(w, r, err, fallback)
				return
			}
			// A token that lapsed since the last sweep is dropped before the
			// request sees any per-user state.
			if s.Identity.Expire(r.Context()) {
				fallback.DebugContext(r.Context(), "session identity expired", slog.String("session_id", s.ID))
			}

			ctx := logger.WithSessionID(r.Context(), s.ID)
			attrs := []any{slog.String("session_id", s.ID)}
			if uid := s.Identity.UserID(); uid != "" {
				ctx = logger.WithUserID(ctx, uid)
				attrs = append(attrs, slog.String("user_id", uid))
			}
			ctx = logger.NewContext(ctx, logger.FromContext(r.Context()).With(attrs...))
			ctx = context.WithValue(ctx, sessionKey, s)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFromContext returns the session stored by SessionResolver.
func sessionFromContext(ctx context.Context) *service.Session {
	s, _ := ctx.Value(sessionKey).(*service.Session)
	return s
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
