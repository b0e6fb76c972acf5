// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication for the REST API. The
// websocket handshake performs its own verification in the ws package; both
// paths share the same services.AuthService.VerifyToken entry point.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ordersync/go-order-backend/internal/services"
)

const (
	// userIDKey is the Gin context key carrying the authenticated user id.
	userIDKey = "userID"
	// identityKey is the Gin context key carrying the full resolved identity.
	identityKey = "identity"
)

// Verifier resolves a bearer credential to an identity.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (services.Identity, error)
}

// RequireAuth authenticates the request via the Authorization bearer header
// and stores the resolved identity in the context. Failures are terminal:
// 401 with the one opaque message, no detail about why the token failed.
func RequireAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := v.VerifyToken(c.Request.Context(), headerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "authentication failed",
			})
			return
		}
		c.Set(userIDKey, id.ID)
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireAdmin rejects authenticated non-admin callers with 403. Must be
// mounted after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok || !id.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "forbidden",
				"message":    "admin role required",
			})
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity stored by RequireAuth.
func IdentityFrom(c *gin.Context) (services.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return services.Identity{}, false
	}
	id, ok := v.(services.Identity)
	return id, ok
}

// headerToken extracts the bearer credential from the Authorization header.
func headerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[len("bearer "):])
	}
	return ""
}
