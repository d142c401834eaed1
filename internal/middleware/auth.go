// Package middleware provides HTTP middleware for the catalog service.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nine-apps/catalog_service/internal/app/auth"
	"github.com/nine-apps/catalog_service/pkg/logger"
)

type contextKey string

const claimsKey contextKey = "auth-claims"

// TokenValidator checks an access token and returns its claims.
type TokenValidator interface {
	ValidateAccess(token string) (*auth.Claims, error)
}

// AuthMiddleware validates Bearer access tokens and puts their claims on the
// request context. Paths in skipPaths pass through unauthenticated; every
// other request without a valid token gets 401.
type AuthMiddleware struct {
	validator TokenValidator
	log       *logger.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates the middleware. skipPaths are matched exactly
// against the request path.
func NewAuthMiddleware(validator TokenValidator, log *logger.Logger, skipPaths []string) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("middleware")
	}
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &AuthMiddleware{validator: validator, log: log, skipPaths: skip}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.unauthorized(w, "missing Authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.unauthorized(w, "invalid Authorization header format")
			return
		}

		claims, err := m.validator.ValidateAccess(parts[1])
		if err != nil {
			m.log.WithError(err).WithField("path", r.URL.Path).Warn("Token validation failed")
			m.unauthorized(w, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// OptionalHandler validates a Bearer token when one is presented but lets
// anonymous requests through. Handlers that need an identity check the
// context themselves. A presented-but-invalid token is still rejected, so a
// client never silently degrades to anonymous.
func (m *AuthMiddleware) OptionalHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.unauthorized(w, "invalid Authorization header format")
			return
		}
		claims, err := m.validator.ValidateAccess(parts[1])
		if err != nil {
			m.log.WithError(err).WithField("path", r.URL.Path).Warn("Token validation failed")
			m.unauthorized(w, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func (m *AuthMiddleware) unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": "unauthorized"})
}

// WithClaims returns a context carrying the token claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext extracts the token claims placed by the middleware.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// UserID returns the authenticated user's ID, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.UserID
	}
	return ""
}
