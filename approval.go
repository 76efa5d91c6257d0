package identity

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// PendingPage is one page of accounts waiting for approval
type PendingPage struct {
	Items []*Account `json:"items"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
}

// Approvals moves pending accounts to active or removes them.
// Callers are expected to have passed the gate with AdminOnly.
type Approvals struct {
	accounts Accounts
	notifier Notifier
	logger   Logger
	clock    func() time.Time
	activity activityRecorder
}

func NewApprovals(accounts Accounts, notifier Notifier, opts ...Option) *Approvals {
	o := buildOptions(opts)
	return &Approvals{
		accounts: accounts,
		notifier: normalizeNotifier(notifier),
		logger:   o.logger,
		clock:    o.clock,
		activity: o.recorder(),
	}
}

// ListPending returns inactive accounts, oldest first
func (a *Approvals) ListPending(ctx context.Context, page Page) (PendingPage, error) {
	page = page.Normalize()
	items, total, err := a.accounts.ListPending(ctx, page)
	if err != nil {
		return PendingPage{}, internalError(err, "failed to list pending accounts")
	}
	if items == nil {
		items = []*Account{}
	}
	return PendingPage{Items: items, Total: total, Page: page.Number, Size: page.Size}, nil
}

// Approve activates and verifies the account. Approving an account that is
// already active returns it unchanged and sends no notification.
func (a *Approvals) Approve(ctx context.Context, id uuid.UUID) (*Account, error) {
	account, err := a.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if account.Active {
		return account, nil
	}

	account, err = a.accounts.Activate(ctx, id)
	if err != nil {
		return nil, a.storeError(err, id, "failed to activate account")
	}

	a.logger.Info("approved %s account %s", account.Role, account.ID)

	a.activity.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountApproved,
		AccountID: account.ID,
		Role:      account.Role,
		Metadata: map[string]any{
			"from_status": AccountStatusPending,
			"to_status":   AccountStatusActive,
		},
	})

	if err := a.notifier.NotifyApproval(ctx, account); err != nil {
		a.logger.Error("approval notification for %s failed: %v", account.ID, err)
	}

	return account, nil
}

// Reject deletes the account and sends the rejection notice with reason.
// A rejected account can not be resolved again.
func (a *Approvals) Reject(ctx context.Context, id uuid.UUID, reason string) error {
	account, err := a.find(ctx, id)
	if err != nil {
		return err
	}

	reason = strings.TrimSpace(reason)

	if err := a.accounts.Delete(ctx, id); err != nil {
		return a.storeError(err, id, "failed to delete account")
	}

	a.logger.Info("rejected %s account %s", account.Role, account.ID)

	a.activity.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountRejected,
		AccountID: account.ID,
		Role:      account.Role,
		Metadata:  map[string]any{"reason": reason},
	})

	if err := a.notifier.NotifyRejection(ctx, account, reason); err != nil {
		a.logger.Error("rejection notification for %s failed: %v", account.ID, err)
	}

	return nil
}

func (a *Approvals) find(ctx context.Context, id uuid.UUID) (*Account, error) {
	if id == uuid.Nil {
		return nil, newError(ErrNotFound, map[string]any{"account_id": id.String()})
	}
	account, err := a.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, a.storeError(err, id, "failed to load account")
	}
	return account, nil
}

func (a *Approvals) storeError(err error, id uuid.UUID, message string) error {
	if errors.Is(err, ErrNotFound) {
		return newError(ErrNotFound, map[string]any{"account_id": id.String()})
	}
	return internalError(err, message)
}
