package repository

import (
	"context"
	"time"

	"referrals/internal/models"

	"gorm.io/gorm"
)

type ReferralCodeRepository struct {
	db *gorm.DB
}

func NewReferralCodeRepository(db *gorm.DB) *ReferralCodeRepository {
	return &ReferralCodeRepository{db: db}
}

func (r *ReferralCodeRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.ReferralCode, error) {
	codes := []models.ReferralCode{}
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&codes).Error; err != nil {
		return nil, translate(err)
	}
	return codes, nil
}

func (r *ReferralCodeRepository) GetByCode(ctx context.Context, code string) (*models.ReferralCode, error) {
	var refCode models.ReferralCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&refCode).Error; err != nil {
		return nil, translate(err)
	}
	return &refCode, nil
}

func (r *ReferralCodeRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ReferralCode{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

// GetActiveByOwnerEmail returns the usable code of the user with that email.
func (r *ReferralCodeRepository) GetActiveByOwnerEmail(ctx context.Context, email string, now time.Time) (*models.ReferralCode, error) {
	var refCode models.ReferralCode
	err := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = referral_codes.owner_id").
		Where("users.email = ? AND referral_codes.active = ? AND referral_codes.expires_at > ?", email, true, now).
		First(&refCode).Error
	if err != nil {
		return nil, translate(err)
	}
	return &refCode, nil
}

// Create inserts code. Duplicate code text yields ErrDuplicate; an active code
// for an owner that already has one yields ErrActiveCodeExists.
func (r *ReferralCodeRepository) Create(ctx context.Context, code *models.ReferralCode) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ReferralCode{}).Where("code = ?", code.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}

		if code.Active {
			if err := tx.Model(&models.ReferralCode{}).
				Where("owner_id = ? AND active = ?", code.OwnerID, true).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrActiveCodeExists
			}
		}

		return tx.Create(code).Error
	})
	return translate(err)
}

// Activate flips the code to active in one conditional statement: it only
// matches when the code is inactive and its owner has no other active code.
// Zero rows affected means one of those conditions failed.
func (r *ReferralCodeRepository) Activate(ctx context.Context, id, ownerID uint) (int64, error) {
	db := r.db.WithContext(ctx)
	otherActive := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.ReferralCode{}).
		Select("1").
		Where("owner_id = ? AND active = ?", ownerID, true)

	result := db.Model(&models.ReferralCode{}).
		Where("id = ? AND owner_id = ? AND active = ?", id, ownerID, false).
		Where("NOT EXISTS (?)", otherActive).
		Update("active", true)
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *ReferralCodeRepository) Deactivate(ctx context.Context, id, ownerID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.ReferralCode{}).
		Where("id = ? AND owner_id = ? AND active = ?", id, ownerID, true).
		Update("active", false)
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *ReferralCodeRepository) DeleteOwned(ctx context.Context, code string, ownerID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("code = ? AND owner_id = ?", code, ownerID).
		Delete(&models.ReferralCode{})
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}
