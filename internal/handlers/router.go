package handlers

import (
	"net/http"

	"referrals/internal/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) SetupRouter(rateLimiter *services.IPRateLimiter) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "cache": h.referralService.CacheName()})
	})

	// Public Routes
	public := r.Group("/api")
	if rateLimiter != nil {
		public.Use(h.RateLimitMiddleware(rateLimiter))
	}
	{
		public.POST("/register", h.RegisterUser)
		public.POST("/register/referral", h.RegisterByReferralCode)
		public.POST("/login", h.LoginUser)
	}

	// Protected Routes
	authorized := r.Group("/api/v1")
	authorized.Use(h.AuthRequired())
	{
		authorized.GET("/me", h.Me)
		authorized.GET("/users/:id/referrals", h.ListReferrals)

		codes := authorized.Group("/referral-codes")
		codes.GET("", h.ListReferralCodes)
		codes.POST("", h.CreateReferralCode)
		codes.GET("/lookup", h.LookupReferralCode)
		codes.POST("/:code/activate", h.ActivateReferralCode)
		codes.POST("/:code/deactivate", h.DeactivateReferralCode)
		codes.DELETE("/:code", h.DeleteReferralCode)
		codes.GET("/:code/qr", h.ReferralCodeQR)
	}

	return r
}
