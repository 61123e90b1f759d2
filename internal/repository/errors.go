package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
	// ErrActiveCodeExists is a duplicate on the one-active-code-per-owner index.
	ErrActiveCodeExists = fmt.Errorf("%w: owner already has an active referral code", ErrDuplicate)
)

const (
	uniqueViolation       = "23505"
	activePerOwnerIndex   = "uniq_active_code_per_owner"
	sqliteActiveIndexHint = "referral_codes.owner_id"
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isActiveIndexViolation(err):
		return fmt.Errorf("%w (%v)", ErrActiveCodeExists, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isActiveIndexViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation && pgErr.ConstraintName == activePerOwnerIndex
	}
	msg := err.Error()
	return strings.Contains(msg, activePerOwnerIndex) ||
		(strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, sqliteActiveIndexHint))
}
