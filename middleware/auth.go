package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go-pharmacy/apperrors"
	"go-pharmacy/utils"
)

// Key type for context
type contextKey string

const ClaimsContextKey = contextKey("claims")

// Auth verifies the Bearer session token and attaches its claims to the
// request context.
func Auth(tokens *utils.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w)
				return
			}

			claims, err := tokens.Parse(parts[1])
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the session claims attached by Auth.
func ClaimsFromContext(ctx context.Context) (*utils.Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*utils.Claims)
	return claims, ok
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]*apperrors.AppError{
		"error": apperrors.ErrUnauthorized,
	})
}
