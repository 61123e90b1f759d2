package utils

import (
	"math/rand"
	"regexp"

	"github.com/google/uuid"
)

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ReferralCodeLength is the length of server-generated referral codes.
const ReferralCodeLength = 8

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,32}$`)

// GenerateReferralCode generates a random uppercase alphanumeric code.
func GenerateReferralCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}

// ValidReferralCode reports whether a user-chosen code is acceptable.
func ValidReferralCode(code string) bool {
	return codePattern.MatchString(code)
}

// NewTokenID returns a unique identifier for the jti claim.
func NewTokenID() string {
	return uuid.NewString()
}
