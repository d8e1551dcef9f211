// internal/middleware/auth.go
// Authentication middleware validates JWT tokens and sets user context

package middleware

import (
	"net/http"
	"strings"

	"tournament-planner/internal/services"

	"github.com/gin-gonic/gin"
)

// RequireAuth validates that a request has a valid JWT token
func RequireAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			c.Abort()
			return
		}

		userID, role, err := authService.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("user_role", role)
		c.Set("authenticated", true)

		c.Next()
	}
}

// RequireRole ensures the caller has a specific role (organizer/admin).
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("user_role")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			c.Abort()
			return
		}

		if role.(string) != requiredRole {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireTournamentExists ensures the tournament named by the :id
// param is under live engine management before a handler touches it.
func RequireTournamentExists(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, ok := engineSvc.Get(id); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "tournament not found"})
			c.Abort()
			return
		}
		c.Next()
	}
}
