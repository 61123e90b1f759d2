package handlers

import (
	"errors"
	"net/http"
	"strings"

	"referrals/internal/services"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// AuthRequired accepts "Authorization: Bearer <jwt>" and stores the caller's
// id under user_id.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			unauthorized(c, "Not authenticated")
			return
		}

		claims, err := h.tokenService.Verify(strings.TrimSpace(token))
		if errors.Is(err, services.ErrTokenExpired) {
			unauthorized(c, "Token has expired")
			return
		}
		if err != nil {
			unauthorized(c, "Invalid token")
			return
		}

		user, err := h.userService.GetUserByEmail(c.Request.Context(), claims.Subject)
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found", "code": "not_found"})
			return
		}
		if err != nil {
			h.logger.Error("Failed to load authenticated user", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "internal"})
			return
		}

		c.Set(userIDKey, user.ID)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "unauthorized"})
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint(userIDKey)
}

func (h *Handler) RateLimitMiddleware(limiter *services.IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
