package identity_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	identity "github.com/elimuconnect/go-identity"
	"github.com/elimuconnect/go-identity/repository"
)

type authFixture struct {
	accounts *repository.Accounts
	hasher   *identity.PasswordHasher
	tokens   *identity.TokenService
	auth     *identity.Authenticator
	clock    *fakeClock
	sink     *activityCapture
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db, err := repository.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	f := &authFixture{
		accounts: repository.NewAccounts(db),
		hasher:   identity.NewPasswordHasher(cfg),
		tokens:   identity.NewTokenService(cfg, nil),
		clock:    newFakeClock(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)),
		sink:     &activityCapture{},
	}
	f.auth = identity.NewAuthenticator(f.accounts, f.hasher, f.tokens, cfg,
		identity.WithClock(f.clock.Now),
		identity.WithActivitySink(f.sink),
	)
	return f
}

func (f *authFixture) seed(t *testing.T, email, password string, role identity.Role, active bool) *identity.Account {
	t.Helper()
	hash, err := f.hasher.HashPassword(password)
	require.NoError(t, err)

	acc, err := f.accounts.Create(context.Background(), &identity.Account{
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		Role:         role,
		Active:       active,
	})
	require.NoError(t, err)
	return acc
}

func (f *authFixture) reload(t *testing.T, id uuid.UUID) *identity.Account {
	t.Helper()
	acc, err := f.accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return acc
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.seed(t, "admin@school.ac.ke", "correct-horse", identity.RoleAdmin, true)

	ctx := identity.WithClientIP(context.Background(), "196.201.214.10")
	token, err := f.auth.Login(ctx, " ADMIN@school.ac.ke", "correct-horse")
	require.NoError(t, err)

	assert.Equal(t, acc.ID, token.AccountID)
	assert.Equal(t, identity.RoleAdmin, token.Role)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), token.ExpiresAt)

	p, err := f.tokens.Verify(token.Token, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, acc.ID, p.AccountID)

	stored := f.reload(t, acc.ID)
	require.NotNil(t, stored.LastLoginAt)
	assert.True(t, stored.LastLoginAt.Equal(f.clock.Now()))
	assert.Equal(t, "196.201.214.10", stored.LastLoginIP)
	assert.Equal(t, 0, stored.FailedLoginCount)

	assert.Equal(t, []identity.ActivityEventType{identity.ActivityEventLoginSuccess}, f.sink.types())
}

func TestLogin_UnknownEmailLooksLikeWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.seed(t, "known@school.ac.ke", "correct-horse", identity.RoleTeacher, true)

	_, unknownErr := f.auth.Login(context.Background(), "nobody@school.ac.ke", "whatever1")
	_, wrongErr := f.auth.Login(context.Background(), "known@school.ac.ke", "whatever1")

	assert.ErrorIs(t, unknownErr, identity.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, identity.ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	assert.Equal(t, http.StatusUnauthorized, identity.HTTPStatus(unknownErr))
}

func TestLogin_LockoutAfterFiveFailures(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.seed(t, "student@school.ac.ke", "correct-horse", identity.RoleStudent, true)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := f.auth.Login(ctx, acc.Email, "wrong-password")
		require.ErrorIs(t, err, identity.ErrInvalidCredentials, "attempt %d", i)
	}

	stored := f.reload(t, acc.ID)
	assert.Equal(t, 5, stored.FailedLoginCount)
	require.NotNil(t, stored.LockedUntil)
	assert.True(t, stored.LockedUntil.Equal(f.clock.Now().Add(time.Hour)))

	_, err := f.auth.Login(ctx, acc.Email, "correct-horse")
	assert.ErrorIs(t, err, identity.ErrAccountLocked)
	assert.Equal(t, http.StatusLocked, identity.HTTPStatus(err))

	f.clock.Advance(59 * time.Minute)
	_, err = f.auth.Login(ctx, acc.Email, "correct-horse")
	assert.ErrorIs(t, err, identity.ErrAccountLocked)

	f.clock.Advance(time.Minute)
	token, err := f.auth.Login(ctx, acc.Email, "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)

	stored = f.reload(t, acc.ID)
	assert.Equal(t, 0, stored.FailedLoginCount)
	assert.Nil(t, stored.LockedUntil)

	assert.Contains(t, f.sink.types(), identity.ActivityEventAccountLocked)
	assert.Contains(t, f.sink.types(), identity.ActivityEventLoginRefused)
}

func TestLogin_LockedAccountIgnoresCorrectPasswordWithoutCounting(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.seed(t, "teacher@school.ac.ke", "correct-horse", identity.RoleTeacher, true)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = f.auth.Login(ctx, acc.Email, "nope-nope")
	}
	for i := 0; i < 3; i++ {
		_, err := f.auth.Login(ctx, acc.Email, "nope-nope")
		assert.ErrorIs(t, err, identity.ErrAccountLocked)
	}
	assert.Equal(t, 5, f.reload(t, acc.ID).FailedLoginCount)
}

func TestLogin_FailureAfterLockExpiryRelocks(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.seed(t, "parent@example.com", "correct-horse", identity.RoleParent, true)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = f.auth.Login(ctx, acc.Email, "nope-nope")
	}
	f.clock.Advance(time.Hour)

	_, err := f.auth.Login(ctx, acc.Email, "nope-nope")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, acc.Email, "correct-horse")
	assert.ErrorIs(t, err, identity.ErrAccountLocked)
}

func TestLogin_SuccessResetsCounter(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.seed(t, "teacher@school.ac.ke", "correct-horse", identity.RoleTeacher, true)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = f.auth.Login(ctx, acc.Email, "nope-nope")
	}
	assert.Equal(t, 4, f.reload(t, acc.ID).FailedLoginCount)

	_, err := f.auth.Login(ctx, acc.Email, "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, 0, f.reload(t, acc.ID).FailedLoginCount)

	_, err = f.auth.Login(ctx, acc.Email, "nope-nope")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	assert.Equal(t, 1, f.reload(t, acc.ID).FailedLoginCount)
}

func TestLogin_PendingAccountIsNotActiveAndNotCounted(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.seed(t, "pending@school.ac.ke", "correct-horse", identity.RoleTeacher, false)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := f.auth.Login(ctx, acc.Email, "wrong-password")
		assert.ErrorIs(t, err, identity.ErrAccountNotActive)
	}

	_, err := f.auth.Login(ctx, acc.Email, "correct-horse")
	assert.ErrorIs(t, err, identity.ErrAccountNotActive)
	assert.Equal(t, http.StatusForbidden, identity.HTTPStatus(err))

	stored := f.reload(t, acc.ID)
	assert.Equal(t, 0, stored.FailedLoginCount)
	assert.Nil(t, stored.LockedUntil)
}

func TestLogin_ArgonDigestStillVerifies(t *testing.T) {
	f := newAuthFixture(t)

	hash, err := identity.NewArgon2Hasher(identity.Argon2Params{Memory: 8 * 1024, Time: 1}).HashPassword("correct-horse")
	require.NoError(t, err)
	_, err = f.accounts.Create(context.Background(), &identity.Account{
		Email:        "legacy@school.ac.ke",
		Name:         "Legacy",
		PasswordHash: hash,
		Role:         identity.RoleTeacher,
		Active:       true,
	})
	require.NoError(t, err)

	_, err = f.auth.Login(context.Background(), "legacy@school.ac.ke", "correct-horse")
	assert.NoError(t, err)
}

func TestLogin_CheckOrderWithMocks(t *testing.T) {
	cfg := testConfig()
	hasher := identity.NewPasswordHasher(cfg)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	locked := now.Add(30 * time.Minute)

	hash, err := hasher.HashPassword("correct-horse")
	require.NoError(t, err)

	t.Run("inactive wins over locked", func(t *testing.T) {
		accounts := new(MockAccounts)
		acc := &identity.Account{ID: uuid.New(), Email: "a@b.co", Role: identity.RoleStudent, PasswordHash: hash, LockedUntil: &locked}
		accounts.On("GetByEmail", mock.Anything, "a@b.co").Return(acc, nil)

		auth := identity.NewAuthenticator(accounts, hasher, identity.NewTokenService(cfg, nil), cfg,
			identity.WithClock(func() time.Time { return now }))
		_, err := auth.Login(context.Background(), "a@b.co", "correct-horse")
		assert.ErrorIs(t, err, identity.ErrAccountNotActive)
		accounts.AssertNotCalled(t, "RecordLoginFailure", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store lookup failure is internal", func(t *testing.T) {
		accounts := new(MockAccounts)
		accounts.On("GetByEmail", mock.Anything, "a@b.co").Return(nil, errors.New("db down"))

		auth := identity.NewAuthenticator(accounts, hasher, identity.NewTokenService(cfg, nil), cfg)
		_, err := auth.Login(context.Background(), "a@b.co", "correct-horse")
		assert.Equal(t, http.StatusInternalServerError, identity.HTTPStatus(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		accounts := new(MockAccounts)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		auth := identity.NewAuthenticator(accounts, hasher, identity.NewTokenService(cfg, nil), cfg)
		_, err := auth.Login(ctx, "a@b.co", "correct-horse")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
