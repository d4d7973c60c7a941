package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dinepos/api/internal/auth"
	"github.com/dinepos/api/internal/logging"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate rejects requests without a valid bearer token. Accepted
// requests log with the caller's user and restaurant ids.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			ctx := WithClaims(r.Context(), claims)
			l := logging.FromContext(ctx).With("user_id", claims.UserID, "restaurant_id", claims.RestaurantID)
			next.ServeHTTP(w, r.WithContext(logging.IntoContext(ctx, l)))
		})
	}
}

// RequireRestaurant rejects tokens that are not bound to a restaurant.
func RequireRestaurant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		if claims.RestaurantID == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "no restaurant for this account"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// RestaurantID returns the restaurant the request is scoped to, or "".
func RestaurantID(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.RestaurantID
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
