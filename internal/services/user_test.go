package services

import (
	"context"
	"testing"
	"time"

	"referrals/internal/cache"
	"referrals/internal/models"
	"referrals/internal/repository"
	"referrals/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	service := NewUserService(repository.NewUserRepository(db), testutil.NewLogger())

	t.Run("Success", func(t *testing.T) {
		user, err := service.CreateUser(ctx, "  Alice@Example.com ", "password123")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Nil(t, user.InvitedByID)

		stored, err := service.GetUserByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, "password123", stored.PasswordHash)
	})

	t.Run("Duplicate Email", func(t *testing.T) {
		_, err := service.CreateUser(ctx, "alice@example.com", "password123")
		assert.ErrorIs(t, err, ErrEmailTaken)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := service.CreateUser(ctx, "not-an-email", "password123")
		assert.ErrorIs(t, err, ErrValidation)

		_, err = service.CreateUser(ctx, "bob@example.com", "short")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Store Unavailable", func(t *testing.T) {
		broken := testutil.NewDB(t)
		require.NoError(t, broken.Migrator().DropTable(&models.User{}))
		svc := NewUserService(repository.NewUserRepository(broken), testutil.NewLogger())

		_, err := svc.CreateUser(ctx, "carol@example.com", "password123")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}

func TestCreateUserByRefCode(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	users := NewUserService(repository.NewUserRepository(db), testutil.NewLogger())
	owner := testutil.CreateUser(t, db, "owner@example.com", "password123")

	t.Run("Active Code", func(t *testing.T) {
		testutil.CreateCode(t, db, owner.ID, "ACTIVE1", true, time.Hour)

		invited, err := users.CreateUserByRefCode(ctx, "invitee@example.com", "password123", "ACTIVE1")
		require.NoError(t, err)
		require.NotNil(t, invited.InvitedByID)
		assert.Equal(t, owner.ID, *invited.InvitedByID)

		referrals, err := users.GetReferrals(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, referrals.InvitedUsers, 1)
		assert.Equal(t, "invitee@example.com", referrals.InvitedUsers[0].Email)
	})

	t.Run("Inactive Code", func(t *testing.T) {
		testutil.CreateCode(t, db, owner.ID, "SLEEPY1", false, time.Hour)

		_, err := users.CreateUserByRefCode(ctx, "nobody@example.com", "password123", "SLEEPY1")
		assert.ErrorIs(t, err, ErrNoActiveCode)

		_, err = users.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Unknown Code", func(t *testing.T) {
		_, err := users.CreateUserByRefCode(ctx, "nobody@example.com", "password123", "MISSING")
		assert.ErrorIs(t, err, ErrNoActiveCode)

		_, err = users.CreateUserByRefCode(ctx, "nobody@example.com", "password123", "  ")
		assert.ErrorIs(t, err, ErrNoActiveCode)
	})

	t.Run("Expired Code", func(t *testing.T) {
		other := testutil.CreateUser(t, db, "expiring@example.com", "password123")
		testutil.CreateCode(t, db, other.ID, "OLDONE1", true, time.Hour)
		users.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { users.now = time.Now }()

		_, err := users.CreateUserByRefCode(ctx, "late@example.com", "password123", "OLDONE1")
		assert.ErrorIs(t, err, ErrNoActiveCode)
	})

	t.Run("Email Taken", func(t *testing.T) {
		_, err := users.CreateUserByRefCode(ctx, "invitee@example.com", "password123", "ACTIVE1")
		assert.ErrorIs(t, err, ErrEmailTaken)

		referrals, err := users.GetReferrals(ctx, owner.ID)
		require.NoError(t, err)
		assert.Len(t, referrals.InvitedUsers, 1)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	service := NewUserService(repository.NewUserRepository(db), testutil.NewLogger())
	testutil.CreateUser(t, db, "alice@example.com", "password123")

	user, err := service.Authenticate(ctx, "Alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	_, err = service.Authenticate(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Authenticate(ctx, "ghost@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetReferrals_NotFound(t *testing.T) {
	db := testutil.NewDB(t)
	service := NewUserService(repository.NewUserRepository(db), testutil.NewLogger())

	_, err := service.GetReferrals(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = service.GetUserByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestReferralFlow walks the full invite path: A creates and activates a
// code, B registers with it, and both sides of the relation are visible.
func TestReferralFlow(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	logger := testutil.NewLogger()

	users := NewUserService(repository.NewUserRepository(db), logger)
	referrals := NewReferralService(repository.NewReferralCodeRepository(db), cache.New(rdb), logger)

	a, err := users.CreateUser(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	_, err = referrals.CreateReferralCode(ctx, a.ID, CreateReferralCodeDTO{
		Code:      "ABC123",
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)

	_, err = users.CreateUserByRefCode(ctx, "b@example.com", "password123", "ABC123")
	assert.ErrorIs(t, err, ErrNoActiveCode)

	_, err = referrals.ActivateReferralCode(ctx, a.ID, "ABC123")
	require.NoError(t, err)

	codes, err := referrals.GetUserReferralCodes(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.True(t, codes[0].Active)
	assert.True(t, mr.Exists(ReferralCodesKey(a.ID)))

	b, err := users.CreateUserByRefCode(ctx, "b@example.com", "password123", "ABC123")
	require.NoError(t, err)
	require.NotNil(t, b.InvitedByID)
	assert.Equal(t, a.ID, *b.InvitedByID)

	got, err := users.GetReferrals(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got.InvitedUsers, 1)
	assert.Equal(t, b.ID, got.InvitedUsers[0].ID)

	lookup, err := referrals.GetReferralCodeByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", lookup.Code)

	// Registration does not touch the owner's code list.
	assert.True(t, mr.Exists(ReferralCodesKey(a.ID)))
}
