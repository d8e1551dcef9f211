// internal/api/auth_handlers.go
// Authentication-related HTTP handlers for the TO/operator account surface

package api

import (
	"net/http"

	"tournament-planner/internal/models"
	"tournament-planner/internal/services"

	"github.com/gin-gonic/gin"
)

// HandleRegister handles operator account registration
func HandleRegister(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		user, tokens, err := authService.Register(c.Request.Context(), req)
		if err != nil {
			if err == services.ErrEmailAlreadyExists {
				c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register account"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"user": user,
			"auth": tokens,
		})
	}
}

// HandleLogin handles operator login
func HandleLogin(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		user, tokens, err := authService.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if err == services.ErrInvalidCredentials {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to login"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user": user,
			"auth": tokens,
		})
	}
}

// HandleRefreshToken handles access token refresh
func HandleRefreshToken(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		tokens, err := authService.RefreshToken(c.Request.Context(), req.RefreshToken)
		if err != nil {
			if err == services.ErrInvalidToken {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to refresh token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"auth": tokens})
	}
}
