package handlers

import (
	"errors"
	"net/http"
	"strings"

	"referrals/internal/services"

	"github.com/gin-gonic/gin"
)

// conflictCodes gives each conflict a stable machine-readable code.
var conflictCodes = []struct {
	err  error
	code string
}{
	{services.ErrAlreadyActive, "already_active"},
	{services.ErrConflictingActiveCode, "conflicting_active_code"},
	{services.ErrCodeTaken, "code_taken"},
	{services.ErrNotActive, "not_active"},
	{services.ErrEmailTaken, "email_taken"},
}

// respondError writes the JSON error for a service error.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, code, msg := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": msg, "code": code})
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found", "Not found"
	case errors.Is(err, services.ErrConflict):
		for _, cc := range conflictCodes {
			if errors.Is(err, cc.err) {
				return http.StatusConflict, cc.code, conflictMessage(cc.err)
			}
		}
		return http.StatusConflict, "conflict", "Conflict"
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "validation", err.Error()
	case errors.Is(err, services.ErrNoActiveCode):
		return http.StatusBadRequest, "no_active_code", "No such active referral code"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "Incorrect email or password"
	case errors.Is(err, services.ErrStoreUnavailable):
		return http.StatusInternalServerError, "store_unavailable", "Internal server error"
	default:
		return http.StatusInternalServerError, "internal", "Internal server error"
	}
}

// conflictMessage drops the "conflict: " prefix added by wrapping.
func conflictMessage(err error) string {
	return strings.TrimPrefix(err.Error(), services.ErrConflict.Error()+": ")
}
