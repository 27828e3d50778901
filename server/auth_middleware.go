package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"schooltone/core/auth"
	"schooltone/logger"
)

// claimsContextKey 上下文键类型，避免与其他包的字符串键冲突
type claimsContextKey struct{}

// AuthMiddleware is a middleware function that checks for a valid JWT token
// and puts the caller's claims into the request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(h.cfg.JWTSecret, parts[1])
		if err != nil {
			logger.Warn("令牌校验失败", logger.ErrorField(err))
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequireRole wraps a handler so only the given roles reach it.
func (h *APIHandler) RequireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		claims, err := GetClaimsFromContext(r.Context())
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

// GetClaimsFromContext extracts the caller claims from the request context.
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, error) {
	claims, ok := ctx.Value(claimsContextKey{}).(*auth.Claims)
	if !ok {
		return nil, fmt.Errorf("claims not found in context")
	}
	return claims, nil
}
