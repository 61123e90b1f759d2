package models

import (
	"time"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id"`           // Nullable for failed logins
	Action    string    `gorm:"size:50;not null" json:"action"` // e.g., "REGISTER", "CREATE_CODE", "ACTIVATE_CODE"
	EntityID  string    `gorm:"size:255" json:"entity_id"`      // Referral code text or user email
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:120" json:"user_agent"` // Parsed browser / OS summary
	Timestamp time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"timestamp"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// All lists every model managed by AutoMigrate in tests and sqlite mode.
func All() []interface{} {
	return []interface{}{&User{}, &ReferralCode{}, &AuditLog{}}
}
