package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"referrals/internal/models"
	"referrals/internal/repository"
	"referrals/pkg/utils"
)

const minPasswordLength = 6

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	CreateInvited(ctx context.Context, user *models.User, code string, now time.Time) (uint, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetWithInvited(ctx context.Context, id uint) (*models.User, error)
}

type UserService struct {
	store  UserStore
	logger *slog.Logger
	now    func() time.Time
	hasher func(string) (string, error)
}

func NewUserService(store UserStore, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger,
		now:    time.Now,
		hasher: utils.HashPassword,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) newUser(email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, validationError("invalid email")
	}
	if len(password) < minPasswordLength {
		return nil, validationError("password is too short")
	}

	hash, err := s.hasher(password)
	if err != nil {
		return nil, validationError("password cannot be hashed")
	}
	return &models.User{Email: email, PasswordHash: hash}, nil
}

func (s *UserService) CreateUser(ctx context.Context, email, password string) (*UserResponse, error) {
	user, err := s.newUser(email, password)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, storeError("create user", err)
	}

	s.logger.Info("User registered", "user_id", user.ID)
	resp := NewUserResponse(*user)
	return &resp, nil
}

// CreateUserByRefCode registers a user invited through code. The code must be
// active and not past its expiry. The code owner's cached list is unaffected,
// so nothing is invalidated.
func (s *UserService) CreateUserByRefCode(ctx context.Context, email, password, code string) (*UserResponse, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrNoActiveCode
	}

	user, err := s.newUser(email, password)
	if err != nil {
		return nil, err
	}

	inviterID, err := s.store.CreateInvited(ctx, user, code, s.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrNoActiveCode
	case errors.Is(err, repository.ErrDuplicate):
		return nil, ErrEmailTaken
	case err != nil:
		return nil, storeError("create invited user", err)
	}

	s.logger.Info("User registered by referral code", "user_id", user.ID, "invited_by_id", inviterID)
	resp := NewUserResponse(*user)
	return &resp, nil
}

// Authenticate returns the user for valid credentials. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeError("get user", err)
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError("get user", err)
	}
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError("get user", err)
	}
	return user, nil
}

// GetReferrals lists the users that registered with one of userID's codes.
func (s *UserService) GetReferrals(ctx context.Context, userID uint) (*ReferralsResponse, error) {
	user, err := s.store.GetWithInvited(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError("get referrals", err)
	}

	resp := &ReferralsResponse{
		User:         NewUserResponse(*user),
		InvitedUsers: make([]UserResponse, 0, len(user.InvitedUsers)),
	}
	for _, invited := range user.InvitedUsers {
		resp.InvitedUsers = append(resp.InvitedUsers, NewUserResponse(invited))
	}
	return resp, nil
}
