package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"unique;not null;size:120;index" json:"email"`
	PasswordHash string    `gorm:"not null;size:255" json:"-"`
	InvitedByID  *uint     `gorm:"index" json:"invited_by_id"` // Nullable, set once at registration
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	InvitedUsers  []User         `gorm:"foreignKey:InvitedByID" json:"invited_users,omitempty"`
	ReferralCodes []ReferralCode `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"referral_codes,omitempty"`
}

func (User) TableName() string {
	return "users"
}
