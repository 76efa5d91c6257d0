package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// Authenticator verifies credentials, enforces the lockout policy and issues
// session tokens.
type Authenticator struct {
	accounts Accounts
	hasher   *PasswordHasher
	tokens   TokenIssuer
	policy   LockoutPolicy
	logger   Logger
	clock    func() time.Time
	activity activityRecorder
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(accounts Accounts, hasher *PasswordHasher, tokens TokenIssuer, cfg Config, opts ...Option) *Authenticator {
	o := buildOptions(opts)
	return &Authenticator{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		policy:   cfg.lockPolicy(),
		logger:   o.logger,
		clock:    o.clock,
		activity: o.recorder(),
	}
}

// Login checks, in order: the account exists, it is active, it is not
// locked, and the password matches. Unknown emails and wrong passwords both
// fail with ErrInvalidCredentials.
func (s *Authenticator) Login(ctx context.Context, email, password string) (IssuedToken, error) {
	select {
	case <-ctx.Done():
		return IssuedToken{}, errors.Wrap(ctx.Err(), errors.CategoryOperation, "context cancelled during login")
	default:
	}

	now := s.clock().UTC()
	email = NormalizeEmail(email)

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("login lookup failed: %v", err)
			return IssuedToken{}, internalError(err, "failed to load account")
		}
		// keep the timing of an unknown email close to a wrong password
		_ = s.hasher.ComparePasswordAndHash(password, s.hasher.DummyHash())
		s.activity.record(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"reason": "unknown_email"},
		})
		return IssuedToken{}, newError(ErrInvalidCredentials, nil)
	}

	if !account.Active {
		s.refused(ctx, account, "not_active")
		return IssuedToken{}, newError(ErrAccountNotActive, map[string]any{"account_id": account.ID.String()})
	}

	if account.IsLocked(now) {
		s.refused(ctx, account, "locked")
		return IssuedToken{}, newError(ErrAccountLocked, map[string]any{
			"account_id":   account.ID.String(),
			"locked_until": account.LockedUntil.UTC(),
		})
	}

	if err := s.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			s.logger.Error("password compare failed for %s: %v", account.ID, err)
			return IssuedToken{}, internalError(err, "failed to verify password")
		}
		return IssuedToken{}, s.failed(ctx, account, now)
	}

	updated, err := s.accounts.RecordLoginSuccess(ctx, account.ID, now, ClientIPFromContext(ctx))
	if err != nil {
		s.logger.Error("failed to record login for %s: %v", account.ID, err)
		return IssuedToken{}, internalError(err, "failed to record login")
	}

	token, err := s.tokens.Issue(updated.ID, updated.Role, now)
	if err != nil {
		s.logger.Error("failed to issue token for %s: %v", updated.ID, err)
		return IssuedToken{}, internalError(err, "failed to issue token")
	}

	s.activity.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: updated.ID, Role: updated.Role},
		AccountID: updated.ID,
		Role:      updated.Role,
		Metadata:  map[string]any{"expires_at": token.ExpiresAt},
	})

	return token, nil
}

func (s *Authenticator) failed(ctx context.Context, account *Account, now time.Time) error {
	updated, err := s.accounts.RecordLoginFailure(ctx, account.ID, s.policy.Threshold, s.policy.LockUntil(now))
	if err != nil {
		s.logger.Error("failed to record login failure for %s: %v", account.ID, err)
		return internalError(err, "failed to record login failure")
	}

	s.activity.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{ID: account.ID, Role: account.Role},
		AccountID: account.ID,
		Role:      account.Role,
		Metadata: map[string]any{
			"reason":             "wrong_password",
			"failed_login_count": updated.FailedLoginCount,
		},
	})

	if s.policy.Reached(updated.FailedLoginCount) && updated.IsLocked(now) {
		s.logger.Warn("account %s locked until %s", account.ID, updated.LockedUntil.Format(time.RFC3339))
		s.activity.record(ctx, ActivityEvent{
			EventType: ActivityEventAccountLocked,
			Actor:     ActorRef{ID: account.ID, Role: account.Role},
			AccountID: account.ID,
			Role:      account.Role,
			Metadata:  map[string]any{"locked_until": updated.LockedUntil.UTC()},
		})
	}

	return newError(ErrInvalidCredentials, nil)
}

func (s *Authenticator) refused(ctx context.Context, account *Account, reason string) {
	s.activity.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginRefused,
		Actor:     ActorRef{ID: account.ID, Role: account.Role},
		AccountID: account.ID,
		Role:      account.Role,
		Metadata:  map[string]any{"reason": reason},
	})
}
