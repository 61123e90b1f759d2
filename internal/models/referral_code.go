package models

import (
	"time"
)

// ReferralCode belongs to exactly one owner. At most one code per owner may be
// active; the partial unique index enforces it in the store.
type ReferralCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"unique;not null;size:32" json:"code"`
	Active    bool      `gorm:"not null;default:false;uniqueIndex:uniq_active_code_per_owner,where:active = true" json:"active"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	OwnerID   uint      `gorm:"not null;index;uniqueIndex:uniq_active_code_per_owner,where:active = true" json:"owner_id"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ReferralCode) TableName() string {
	return "referral_codes"
}

// Expired reports whether the code is past its expiry at the given instant.
func (r ReferralCode) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Usable is true for codes that may be redeemed at registration.
func (r ReferralCode) Usable(now time.Time) bool {
	return r.Active && !r.Expired(now)
}
