package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rideon/rideon/internal/auth"
)

// contextKey is a custom type used for keys in context.Context. Using a custom
// type prevents collisions between context keys defined in different packages.
type contextKey string

// userContextKey is the specific key used to store the authenticated rider's
// account ID in the request context after successful authentication.
const userContextKey = contextKey("userID")

// authMiddleware protects routes that require authentication. It checks for a
// valid JWT from either the 'Authorization' header or a 'token' URL query
// parameter, and injects the account ID into the request's context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""

		// 1. The standard "Authorization: Bearer <token>" header covers
		// normal REST calls.
		authHeader := r.Header.Get("Authorization")
		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) == 2 && strings.ToLower(headerParts[0]) == "bearer" {
			tokenString = headerParts[1]
		}

		// 2. Fall back to the URL query for connections like Server-Sent
		// Events, where setting custom headers is not straightforward.
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}

		if tokenString == "" {
			s.errorJSON(w, errors.New("authorization token is required"), http.StatusUnauthorized)
			return
		}

		claims, err := auth.ValidateJWT(tokenString, s.config.JwtSecret)
		if err != nil {
			s.errorJSON(w, errors.New("invalid or expired token"), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims.UserID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getUserIDFromContext safely retrieves the authenticated rider's account ID
// from the request context. It should only be called by handlers protected by
// the authMiddleware.
func (s *Server) getUserIDFromContext(r *http.Request) (string, error) {
	userID, ok := r.Context().Value(userContextKey).(string)
	if !ok {
		// Indicates a server-side wiring error, not a client mistake.
		return "", errors.New("could not retrieve user ID from context")
	}

	return userID, nil
}
