package services

import (
	"time"

	"referrals/internal/models"
)

// ReferralCodeResponse is both the API shape and the cached representation.
type ReferralCodeResponse struct {
	ID        uint      `json:"id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	OwnerID   uint      `json:"owner_id"`
}

func NewReferralCodeResponse(code models.ReferralCode) ReferralCodeResponse {
	return ReferralCodeResponse{
		ID:        code.ID,
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt.UTC(),
		Active:    code.Active,
		OwnerID:   code.OwnerID,
	}
}

type CreateReferralCodeDTO struct {
	Code      string
	ExpiresAt time.Time
	Active    bool
}

type UserResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	InvitedByID *uint  `json:"invited_by_id"`
}

func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		InvitedByID: user.InvitedByID,
	}
}

type ReferralsResponse struct {
	User         UserResponse   `json:"user"`
	InvitedUsers []UserResponse `json:"invited_users"`
}
