package identity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Registrar creates accounts from role specific registration requests
type Registrar struct {
	accounts  Accounts
	hasher    PasswordAuthenticator
	notifier  Notifier
	adminCode string
	logger    Logger
	clock     func() time.Time
	activity  activityRecorder
}

// NewRegistrar wires the registration workflow. The admin registration code
// comes from cfg; an empty code refuses every admin registration.
func NewRegistrar(accounts Accounts, hasher PasswordAuthenticator, notifier Notifier, cfg Config, opts ...Option) *Registrar {
	o := buildOptions(opts)
	return &Registrar{
		accounts:  accounts,
		hasher:    hasher,
		notifier:  normalizeNotifier(notifier),
		adminCode: cfg.AdminRegistrationCode,
		logger:    o.logger,
		clock:     o.clock,
		activity:  o.recorder(),
	}
}

func (r *Registrar) RegisterAdmin(ctx context.Context, req AdminRegistration) (*Account, error) {
	return r.Register(ctx, &req)
}

func (r *Registrar) RegisterTeacher(ctx context.Context, req TeacherRegistration) (*Account, error) {
	return r.Register(ctx, &req)
}

func (r *Registrar) RegisterStudent(ctx context.Context, req StudentRegistration) (*Account, error) {
	return r.Register(ctx, &req)
}

func (r *Registrar) RegisterParent(ctx context.Context, req ParentRegistration) (*Account, error) {
	return r.Register(ctx, &req)
}

// Register validates req, checks uniqueness and persists a new account.
// Admin accounts are created active and verified, all others pending.
func (r *Registrar) Register(ctx context.Context, req RegistrationRequest) (*Account, error) {
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.CategoryOperation, "context cancelled during registration")
	default:
		return r.register(ctx, req)
	}
}

func (r *Registrar) register(ctx context.Context, req RegistrationRequest) (*Account, error) {
	if req == nil {
		return nil, fieldError("role", "registration request is required")
	}

	now := r.clock().UTC()

	req.normalize()
	if err := req.validate(now); err != nil {
		return nil, validationError(err)
	}

	if admin, ok := req.(*AdminRegistration); ok && !r.adminCodeMatches(admin.AdminCode) {
		return nil, newError(ErrInvalidAdminCode, nil)
	}

	name, email, password := req.credentials()

	if err := r.ensureUnique(ctx, req, email); err != nil {
		return nil, err
	}

	hash, err := r.hasher.HashPassword(password)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	account := req.toAccount()
	account.ID = uuid.New()
	account.Email = email
	account.Name = name
	account.PasswordHash = hash
	account.Role = req.Role()
	account.CreatedAt = now
	account.UpdatedAt = now
	if account.Role == RoleAdmin {
		account.Active = true
		account.EmailVerified = true
	}

	created, err := r.accounts.Create(ctx, account)
	if err != nil {
		return nil, internalError(err, "could not create account")
	}

	r.logger.Info("registered %s account %s", created.Role, created.ID)

	r.activity.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		AccountID: created.ID,
		Role:      created.Role,
		Metadata:  map[string]any{"status": created.Status()},
	})

	if err := r.notifier.NotifyRegistration(ctx, created); err != nil {
		r.logger.Error("registration notification for %s failed: %v", created.ID, err)
	}

	return created, nil
}

func (r *Registrar) ensureUnique(ctx context.Context, req RegistrationRequest, email string) error {
	exists, err := r.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return internalError(err, "failed to check email")
	}
	if exists {
		return newError(ErrDuplicateAccount, map[string]any{"field": "email"})
	}

	switch v := req.(type) {
	case *TeacherRegistration:
		exists, err = r.accounts.ExistsByTSCNumber(ctx, v.TSCNumber)
		if err != nil {
			return internalError(err, "failed to check TSC number")
		}
		if exists {
			return newError(ErrDuplicateAccount, map[string]any{"field": "tsc_number"})
		}
	case *StudentRegistration:
		exists, err = r.accounts.ExistsByAdmissionNumber(ctx, v.AdmissionNumber)
		if err != nil {
			return internalError(err, "failed to check admission number")
		}
		if exists {
			return newError(ErrDuplicateAccount, map[string]any{"field": "admission_number"})
		}
	case *AdminRegistration, *ParentRegistration:
	}

	return nil
}

func (r *Registrar) adminCodeMatches(code string) bool {
	if r.adminCode == "" || code == "" {
		return false
	}
	want := sha256.Sum256([]byte(r.adminCode))
	got := sha256.Sum256([]byte(code))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}
