package handlers

import (
	"errors"
	"net/http"

	"referrals/internal/services"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterByCodeRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Code     string `json:"code" binding:"required"`
}

// LoginRequest accepts either a JSON body or an OAuth2 password form, where
// the email travels as "username".
type LoginRequest struct {
	Email    string `json:"email" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.audit(c, &user.ID, services.ActionRegister, user.Email, nil)
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) RegisterByReferralCode(c *gin.Context) {
	var req RegisterByCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
		return
	}

	user, err := h.userService.CreateUserByRefCode(c.Request.Context(), req.Email, req.Password, req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.audit(c, &user.ID, services.ActionRegisterByCode, req.Code, gin.H{"invited_by_id": user.InvitedByID})
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) LoginUser(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.audit(c, nil, services.ActionLoginFailed, req.Email, nil)
			c.Header("WWW-Authenticate", "Bearer")
		}
		h.respondError(c, err)
		return
	}

	token, _, err := h.tokenService.Issue(*user)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.audit(c, &user.ID, services.ActionLogin, user.Email, nil)
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   h.tokenService.ExpiresIn(),
	})
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.NewUserResponse(*user))
}

func (h *Handler) audit(c *gin.Context, userID *uint, action, entityID string, details interface{}) {
	if h.auditService == nil {
		return
	}
	h.auditService.LogAction(services.AuditEntry{
		UserID:    userID,
		Action:    action,
		EntityID:  entityID,
		Details:   details,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
}
