package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Accounts is the credential store consumed by the workflows.
type Accounts interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByTSCNumber(ctx context.Context, tscNumber string) (bool, error)
	ExistsByAdmissionNumber(ctx context.Context, admissionNumber string) (bool, error)
	ListPending(ctx context.Context, page Page) ([]*Account, int, error)
	Activate(ctx context.Context, id uuid.UUID) (*Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// RecordLoginFailure increments the failure counter in a single statement,
	// capping it at threshold and setting locked_until to lockUntil once the
	// threshold is reached.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (*Account, error)
	RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time, ip string) (*Account, error)
}

// Notifier delivers account lifecycle messages. Implementations must not block
// the caller on delivery.
type Notifier interface {
	NotifyRegistration(ctx context.Context, account *Account) error
	NotifyApproval(ctx context.Context, account *Account) error
	NotifyRejection(ctx context.Context, account *Account, reason string) error
}

// PasswordAuthenticator hashes and compares passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(accountID uuid.UUID, role Role, now time.Time) (IssuedToken, error)
}

// TokenVerifier checks session tokens
type TokenVerifier interface {
	Verify(token string, now time.Time) (Principal, error)
}

// IssuedToken is the result of a successful login
type IssuedToken struct {
	Token     string    `json:"token"`
	AccountID uuid.UUID `json:"account_id"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Page selects a slice of a listing
type Page struct {
	Number int `json:"page" query:"page"`
	Size   int `json:"size" query:"size"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the page into the supported range
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(format string) string {
	if len(format) == 0 || format[len(format)-1] != '\n' {
		return format + "\n"
	}
	return format
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
