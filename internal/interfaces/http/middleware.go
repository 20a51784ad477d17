package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserIDKey = "auth_user_id"
	ctxRolesKey  = "auth_roles"
)

// authMiddleware verifies the bearer token and stores the caller's identity
// in the request context
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "bearer token required",
			})
			return
		}

		claims, err := s.tokens.Verify(token)
		if err != nil {
			s.logger.Error("Token verification failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid token",
			})
			return
		}

		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxRolesKey, claims.Roles)
		c.Next()
	}
}

// requireRole rejects callers whose token does not carry the given role.
// This is a fast pre-check on token claims; the coordinator re-checks role
// membership against the user store before signaling.
func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, _ := c.Get(ctxRolesKey)
		if roleList, ok := roles.([]string); ok {
			for _, r := range roleList {
				if r == role {
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, Response{
			Success: false,
			Error:   "missing required role: " + role,
		})
	}
}

// currentUserID returns the authenticated caller's user id
func currentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
