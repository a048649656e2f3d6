package middleware

import (
	"context"
	"net/http"
	"strings"

	"spinlog/internal/auth"
)

type contextKey string

const tokenNameKey contextKey = "tokenName"

// Auth returns middleware that requires a valid bearer token. While no
// tokens have been issued the API runs open, so a fresh install can reach
// the token endpoints to bootstrap itself.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasTokens, err := authService.HasTokens(r.Context())
			if err != nil {
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}
			if !hasTokens {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			name, err := authService.Validate(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), tokenNameKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenNameFromContext returns the name of the token that authenticated the
// request, or "" for open-mode requests.
func TokenNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tokenNameKey).(string); ok {
		return v
	}
	return ""
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
