package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrCodeTaken             = fmt.Errorf("%w: referral code already exists", ErrConflict)
	ErrAlreadyActive         = fmt.Errorf("%w: referral code is already active", ErrConflict)
	ErrConflictingActiveCode = fmt.Errorf("%w: user already has an active referral code", ErrConflict)
	ErrNotActive             = fmt.Errorf("%w: referral code is not active", ErrConflict)
	ErrEmailTaken            = fmt.Errorf("%w: email already registered", ErrConflict)

	ErrNoActiveCode       = errors.New("no such active referral code")
	ErrInvalidCredentials = errors.New("incorrect email or password")
)

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
