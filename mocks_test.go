package identity_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	identity "github.com/elimuconnect/go-identity"
)

// MockAccounts implements identity.Accounts
type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) Create(ctx context.Context, account *identity.Account) (*identity.Account, error) {
	args := m.Called(ctx, account)
	if fn, ok := args.Get(0).(func(context.Context, *identity.Account) *identity.Account); ok {
		return fn(ctx, account), args.Error(1)
	}
	acc, _ := args.Get(0).(*identity.Account)
	return acc, args.Error(1)
}

func (m *MockAccounts) GetByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	args := m.Called(ctx, id)
	acc, _ := args.Get(0).(*identity.Account)
	return acc, args.Error(1)
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*identity.Account, error) {
	args := m.Called(ctx, email)
	acc, _ := args.Get(0).(*identity.Account)
	return acc, args.Error(1)
}

func (m *MockAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) ExistsByTSCNumber(ctx context.Context, tscNumber string) (bool, error) {
	args := m.Called(ctx, tscNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) ExistsByAdmissionNumber(ctx context.Context, admissionNumber string) (bool, error) {
	args := m.Called(ctx, admissionNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) ListPending(ctx context.Context, page identity.Page) ([]*identity.Account, int, error) {
	args := m.Called(ctx, page)
	items, _ := args.Get(0).([]*identity.Account)
	return items, args.Int(1), args.Error(2)
}

func (m *MockAccounts) Activate(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	args := m.Called(ctx, id)
	acc, _ := args.Get(0).(*identity.Account)
	return acc, args.Error(1)
}

func (m *MockAccounts) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccounts) RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (*identity.Account, error) {
	args := m.Called(ctx, id, threshold, lockUntil)
	acc, _ := args.Get(0).(*identity.Account)
	return acc, args.Error(1)
}

func (m *MockAccounts) RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time, ip string) (*identity.Account, error) {
	args := m.Called(ctx, id, at, ip)
	acc, _ := args.Get(0).(*identity.Account)
	return acc, args.Error(1)
}

// MockNotifier implements identity.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyRegistration(ctx context.Context, account *identity.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockNotifier) NotifyApproval(ctx context.Context, account *identity.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockNotifier) NotifyRejection(ctx context.Context, account *identity.Account, reason string) error {
	return m.Called(ctx, account, reason).Error(0)
}

// recordingNotifier keeps every call, for end to end tests
type recordingNotifier struct {
	mu            sync.Mutex
	registrations []*identity.Account
	approvals     []*identity.Account
	rejections    map[uuid.UUID]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{rejections: map[uuid.UUID]string{}}
}

func (n *recordingNotifier) NotifyRegistration(_ context.Context, account *identity.Account) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registrations = append(n.registrations, account)
	return nil
}

func (n *recordingNotifier) NotifyApproval(_ context.Context, account *identity.Account) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approvals = append(n.approvals, account)
	return nil
}

func (n *recordingNotifier) NotifyRejection(_ context.Context, account *identity.Account, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejections[account.ID] = reason
	return nil
}

// activityCapture collects activity events
type activityCapture struct {
	mu     sync.Mutex
	events []identity.ActivityEvent
}

func (c *activityCapture) Record(_ context.Context, event identity.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *activityCapture) types() []identity.ActivityEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]identity.ActivityEventType, len(c.events))
	for i, e := range c.events {
		out[i] = e.EventType
	}
	return out
}

type logCall struct {
	level  string
	format string
	args   []any
}

type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *captureLogger) record(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, format: format, args: args})
}

func (l *captureLogger) Debug(format string, args ...any) { l.record("debug", format, args...) }
func (l *captureLogger) Info(format string, args ...any)  { l.record("info", format, args...) }
func (l *captureLogger) Warn(format string, args ...any)  { l.record("warn", format, args...) }
func (l *captureLogger) Error(format string, args ...any) { l.record("error", format, args...) }

func (l *captureLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c.level == level {
			n++
		}
	}
	return n
}

// fakeClock is a settable clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const testSigningKey = "0123456789abcdef0123456789abcdef-test"

func testConfig() identity.Config {
	cfg := identity.DefaultConfig()
	cfg.SigningKey = testSigningKey
	cfg.BcryptCost = 4
	cfg.AdminRegistrationCode = "letmein-admin"
	return cfg
}
