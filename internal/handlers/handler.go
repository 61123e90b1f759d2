package handlers

import (
	"log/slog"

	"referrals/internal/config"
	"referrals/internal/services"
)

type Handler struct {
	cfg             config.Config
	logger          *slog.Logger
	userService     *services.UserService
	referralService *services.ReferralService
	tokenService    *services.TokenService
	auditService    *services.AuditService
	qrService       *services.QRService
}

func NewHandler(
	cfg config.Config,
	logger *slog.Logger,
	userService *services.UserService,
	referralService *services.ReferralService,
	tokenService *services.TokenService,
	auditService *services.AuditService,
	qrService *services.QRService,
) *Handler {
	return &Handler{
		cfg:             cfg,
		logger:          logger,
		userService:     userService,
		referralService: referralService,
		tokenService:    tokenService,
		auditService:    auditService,
		qrService:       qrService,
	}
}
