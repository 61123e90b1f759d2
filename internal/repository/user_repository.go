package repository

import (
	"context"
	"time"

	"referrals/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// CreateInvited creates user as an invitee of the owner of code. The code must
// be active and unexpired at now; otherwise ErrNotFound is returned and nothing
// is written. The returned value is the inviter's id.
func (r *UserRepository) CreateInvited(ctx context.Context, user *models.User, code string, now time.Time) (uint, error) {
	var inviterID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refCode models.ReferralCode
		if err := tx.Where("code = ? AND active = ? AND expires_at > ?", code, true, now).
			First(&refCode).Error; err != nil {
			return err
		}

		var owner models.User
		if err := tx.First(&owner, refCode.OwnerID).Error; err != nil {
			return err
		}

		user.InvitedByID = &owner.ID
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		if err := tx.Model(&owner).Association("InvitedUsers").Append(user); err != nil {
			return err
		}

		inviterID = owner.ID
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}
	return inviterID, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetWithInvited loads the user together with everyone it invited.
func (r *UserRepository) GetWithInvited(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("InvitedUsers", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&user, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}
