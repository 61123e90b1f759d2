package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"referrals/internal/cache"
	"referrals/internal/models"
	"referrals/internal/repository"
	"referrals/pkg/utils"
)

// ReferralCodesTTL bounds how stale a cached code list may be.
const ReferralCodesTTL = 600 * time.Second

const maxGenerateAttempts = 10

type ReferralCodeStore interface {
	ListByOwner(ctx context.Context, ownerID uint) ([]models.ReferralCode, error)
	GetByCode(ctx context.Context, code string) (*models.ReferralCode, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	GetActiveByOwnerEmail(ctx context.Context, email string, now time.Time) (*models.ReferralCode, error)
	Create(ctx context.Context, code *models.ReferralCode) error
	Activate(ctx context.Context, id, ownerID uint) (int64, error)
	Deactivate(ctx context.Context, id, ownerID uint) (int64, error)
	DeleteOwned(ctx context.Context, code string, ownerID uint) (int64, error)
}

type ReferralService struct {
	store         ReferralCodeStore
	cache         cache.Cache
	logger        *slog.Logger
	now           func() time.Time
	codeGenerator func(int) string
}

func NewReferralService(store ReferralCodeStore, c cache.Cache, logger *slog.Logger) *ReferralService {
	if c == nil {
		c = cache.Nop{}
	}
	return &ReferralService{
		store:         store,
		cache:         c,
		logger:        logger,
		now:           time.Now,
		codeGenerator: utils.GenerateReferralCode,
	}
}

func ReferralCodesKey(ownerID uint) string {
	return fmt.Sprintf("user:%d:refcodes", ownerID)
}

// GetUserReferralCodes is a cache-aside read of the owner's codes. Cache
// problems fall through to the store; store problems are returned.
func (s *ReferralService) GetUserReferralCodes(ctx context.Context, ownerID uint) ([]ReferralCodeResponse, error) {
	key := ReferralCodesKey(ownerID)

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var cached []ReferralCodeResponse
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		s.logger.Warn("Discarding undecodable cache entry", "key", key)
	case !errors.Is(err, cache.ErrMiss):
		s.logger.Warn("Cache read failed, falling back to store", "key", key, "error", err)
	}

	codes, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeError("list referral codes", err)
	}

	result := make([]ReferralCodeResponse, 0, len(codes))
	for _, code := range codes {
		result = append(result, NewReferralCodeResponse(code))
	}

	if data, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, data, ReferralCodesTTL); err != nil {
			s.logger.Warn("Cache write failed", "key", key, "error", err)
		}
	}

	return result, nil
}

// invalidate must run after the store write has committed.
func (s *ReferralService) invalidate(ctx context.Context, ownerID uint) {
	key := ReferralCodesKey(ownerID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("Cache invalidation failed", "key", key, "error", err)
	}
}

func (s *ReferralService) CreateReferralCode(ctx context.Context, ownerID uint, dto CreateReferralCodeDTO) (*ReferralCodeResponse, error) {
	if !dto.ExpiresAt.After(s.now()) {
		return nil, validationError("expires_at must be in the future")
	}

	code := dto.Code
	if code == "" {
		generated, err := s.generateCode(ctx)
		if err != nil {
			return nil, err
		}
		code = generated
	} else if !utils.ValidReferralCode(code) {
		return nil, validationError("code must be 4-32 characters of letters, digits, '-' or '_'")
	}

	refCode := models.ReferralCode{
		Code:      code,
		Active:    dto.Active,
		ExpiresAt: dto.ExpiresAt,
		OwnerID:   ownerID,
	}

	if err := s.store.Create(ctx, &refCode); err != nil {
		switch {
		case errors.Is(err, repository.ErrActiveCodeExists):
			return nil, ErrConflictingActiveCode
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrCodeTaken
		}
		return nil, storeError("create referral code", err)
	}

	s.invalidate(ctx, ownerID)

	s.logger.Info("Referral code created", "owner_id", ownerID, "code", refCode.Code, "active", refCode.Active)
	resp := NewReferralCodeResponse(refCode)
	return &resp, nil
}

func (s *ReferralService) generateCode(ctx context.Context) (string, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		code := s.codeGenerator(utils.ReferralCodeLength)
		exists, err := s.store.CodeExists(ctx, code)
		if err != nil {
			return "", storeError("check referral code", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeTaken
}

// ownedCode loads code from the store and hides codes owned by someone else.
func (s *ReferralService) ownedCode(ctx context.Context, ownerID uint, code string) (*models.ReferralCode, error) {
	refCode, err := s.store.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError("get referral code", err)
	}
	if refCode.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return refCode, nil
}

// ActivateReferralCode makes code the owner's single active code. The
// one-active-code rule is checked by the store in the same statement that
// flips the flag; the cache is never consulted.
func (s *ReferralService) ActivateReferralCode(ctx context.Context, ownerID uint, code string) (*ReferralCodeResponse, error) {
	refCode, err := s.ownedCode(ctx, ownerID, code)
	if err != nil {
		return nil, err
	}
	if refCode.Active {
		return nil, ErrAlreadyActive
	}

	affected, err := s.store.Activate(ctx, refCode.ID, ownerID)
	if errors.Is(err, repository.ErrActiveCodeExists) {
		return nil, ErrConflictingActiveCode
	}
	if err != nil {
		return nil, storeError("activate referral code", err)
	}
	if affected == 0 {
		return nil, s.classifyFailedActivation(ctx, ownerID, code)
	}

	s.invalidate(ctx, ownerID)

	refCode.Active = true
	s.logger.Info("Referral code activated", "owner_id", ownerID, "code", code)
	resp := NewReferralCodeResponse(*refCode)
	return &resp, nil
}

// classifyFailedActivation re-reads the store to explain why the conditional
// update matched nothing.
func (s *ReferralService) classifyFailedActivation(ctx context.Context, ownerID uint, code string) error {
	current, err := s.ownedCode(ctx, ownerID, code)
	if err != nil {
		return err
	}
	if current.Active {
		return ErrAlreadyActive
	}
	return ErrConflictingActiveCode
}

func (s *ReferralService) DeactivateReferralCode(ctx context.Context, ownerID uint, code string) (*ReferralCodeResponse, error) {
	refCode, err := s.ownedCode(ctx, ownerID, code)
	if err != nil {
		return nil, err
	}
	if !refCode.Active {
		return nil, ErrNotActive
	}

	affected, err := s.store.Deactivate(ctx, refCode.ID, ownerID)
	if err != nil {
		return nil, storeError("deactivate referral code", err)
	}
	if affected == 0 {
		return nil, ErrNotActive
	}

	s.invalidate(ctx, ownerID)

	refCode.Active = false
	s.logger.Info("Referral code deactivated", "owner_id", ownerID, "code", code)
	resp := NewReferralCodeResponse(*refCode)
	return &resp, nil
}

// DeleteReferralCode removes a code owned by ownerID. Missing and foreign
// codes both report ErrNotFound and leave the cache untouched.
func (s *ReferralService) DeleteReferralCode(ctx context.Context, ownerID uint, code string) error {
	affected, err := s.store.DeleteOwned(ctx, code, ownerID)
	if err != nil {
		return storeError("delete referral code", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.invalidate(ctx, ownerID)

	s.logger.Info("Referral code deleted", "owner_id", ownerID, "code", code)
	return nil
}

// GetReferralCodeByEmail returns the usable code of the user with that email.
func (s *ReferralService) GetReferralCodeByEmail(ctx context.Context, email string) (*ReferralCodeResponse, error) {
	refCode, err := s.store.GetActiveByOwnerEmail(ctx, email, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError("get referral code by email", err)
	}
	resp := NewReferralCodeResponse(*refCode)
	return &resp, nil
}

// GetOwnedReferralCode returns a single code if ownerID owns it.
func (s *ReferralService) GetOwnedReferralCode(ctx context.Context, ownerID uint, code string) (*ReferralCodeResponse, error) {
	refCode, err := s.ownedCode(ctx, ownerID, code)
	if err != nil {
		return nil, err
	}
	resp := NewReferralCodeResponse(*refCode)
	return &resp, nil
}

// CacheName reports which cache backend is in use.
func (s *ReferralService) CacheName() string {
	return s.cache.Name()
}
