package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"referrals/internal/models"

	"github.com/mssola/user_agent"
	"gorm.io/gorm"
)

const (
	ActionRegister       = "REGISTER"
	ActionRegisterByCode = "REGISTER_BY_CODE"
	ActionLogin          = "LOGIN"
	ActionLoginFailed    = "LOGIN_FAILED"
	ActionCreateCode     = "CREATE_CODE"
	ActionActivateCode   = "ACTIVATE_CODE"
	ActionDeactivateCode = "DEACTIVATE_CODE"
	ActionDeleteCode     = "DELETE_CODE"
)

const auditBufferSize = 100

// AuditEntry describes one user action as seen by the HTTP layer.
type AuditEntry struct {
	UserID    *uint
	Action    string
	EntityID  string
	Details   interface{}
	IPAddress string
	UserAgent string
}

// AuditService persists audit rows off the request path. Entries are dropped
// when the buffer is full.
type AuditService struct {
	db      *gorm.DB
	logger  *slog.Logger
	entries chan models.AuditLog
}

func NewAuditService(db *gorm.DB, logger *slog.Logger) *AuditService {
	return &AuditService{
		db:      db,
		logger:  logger,
		entries: make(chan models.AuditLog, auditBufferSize),
	}
}

func (s *AuditService) Start(ctx context.Context) {
	s.logger.Info("Audit worker starting")
	for {
		select {
		case entry := <-s.entries:
			s.write(entry)
		case <-ctx.Done():
			s.drain()
			s.logger.Info("Audit worker stopping")
			return
		}
	}
}

func (s *AuditService) drain() {
	for {
		select {
		case entry := <-s.entries:
			s.write(entry)
		default:
			return
		}
	}
}

func (s *AuditService) write(entry models.AuditLog) {
	if err := s.db.Create(&entry).Error; err != nil {
		s.logger.Error("Failed to write audit log", "action", entry.Action, "error", err)
	}
}

func (s *AuditService) LogAction(e AuditEntry) {
	var details string
	if e.Details != nil {
		if b, err := json.Marshal(e.Details); err == nil {
			details = string(b)
		}
	}

	entry := models.AuditLog{
		UserID:    e.UserID,
		Action:    e.Action,
		EntityID:  e.EntityID,
		Details:   details,
		IPAddress: e.IPAddress,
		UserAgent: summarizeUserAgent(e.UserAgent),
		Timestamp: time.Now(),
	}

	select {
	case s.entries <- entry:
	default:
		s.logger.Warn("Audit channel full, dropping entry", "action", e.Action)
	}
}

// summarizeUserAgent reduces a raw User-Agent to "Browser Version / OS".
func summarizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := user_agent.New(raw)
	if ua.Bot() {
		name, _ := ua.Browser()
		return "Bot " + name
	}
	name, version := ua.Browser()
	summary := strings.TrimSpace(name + " " + version)
	if os := ua.OS(); os != "" {
		summary += " / " + os
	}
	if len(summary) > 120 {
		summary = summary[:120]
	}
	return summary
}
