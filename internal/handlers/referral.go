package handlers

import (
	"net/http"
	"strconv"
	"time"

	"referrals/internal/services"

	"github.com/gin-gonic/gin"
)

type CreateReferralCodeRequest struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at" binding:"required"`
	Active    bool      `json:"active"`
}

func (h *Handler) ListReferralCodes(c *gin.Context) {
	codes, err := h.referralService.GetUserReferralCodes(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, codes)
}

func (h *Handler) CreateReferralCode(c *gin.Context) {
	var req CreateReferralCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
		return
	}

	userID := currentUserID(c)
	code, err := h.referralService.CreateReferralCode(c.Request.Context(), userID, services.CreateReferralCodeDTO{
		Code:      req.Code,
		ExpiresAt: req.ExpiresAt,
		Active:    req.Active,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.audit(c, &userID, services.ActionCreateCode, code.Code, gin.H{"active": code.Active, "expires_at": code.ExpiresAt})
	c.JSON(http.StatusCreated, code)
}

func (h *Handler) ActivateReferralCode(c *gin.Context) {
	userID := currentUserID(c)
	code, err := h.referralService.ActivateReferralCode(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.audit(c, &userID, services.ActionActivateCode, code.Code, nil)
	c.JSON(http.StatusOK, code)
}

func (h *Handler) DeactivateReferralCode(c *gin.Context) {
	userID := currentUserID(c)
	code, err := h.referralService.DeactivateReferralCode(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.audit(c, &userID, services.ActionDeactivateCode, code.Code, nil)
	c.JSON(http.StatusOK, code)
}

func (h *Handler) DeleteReferralCode(c *gin.Context) {
	userID := currentUserID(c)
	code := c.Param("code")
	if err := h.referralService.DeleteReferralCode(c.Request.Context(), userID, code); err != nil {
		h.respondError(c, err)
		return
	}

	h.audit(c, &userID, services.ActionDeleteCode, code, nil)
	c.Status(http.StatusNoContent)
}

// ReferralCodeQR renders the share link of one of the caller's codes as PNG,
// or SVG with ?format=svg.
func (h *Handler) ReferralCodeQR(c *gin.Context) {
	code, err := h.referralService.GetOwnedReferralCode(c.Request.Context(), currentUserID(c), c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if c.Query("format") == "svg" {
		svg, err := h.qrService.SVG(code.Code)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "image/svg+xml", []byte(svg))
		return
	}

	size := services.DefaultQRSize
	if raw := c.Query("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be an integer", "code": "validation"})
			return
		}
	}

	png, err := h.qrService.PNG(code.Code, size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) LookupReferralCode(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required", "code": "validation"})
		return
	}

	code, err := h.referralService.GetReferralCodeByEmail(c.Request.Context(), email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, code)
}

// ListReferrals shows who registered with the caller's codes. Other users'
// referrals are reported as not found.
func (h *Handler) ListReferrals(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id", "code": "validation"})
		return
	}
	if uint(id) != currentUserID(c) {
		h.respondError(c, services.ErrNotFound)
		return
	}

	referrals, err := h.userService.GetReferrals(c.Request.Context(), uint(id))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, referrals)
}
