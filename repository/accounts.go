package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	identity "github.com/elimuconnect/go-identity"
	goerrors "github.com/goliatone/go-errors"
	repo "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

const pgUniqueViolation = "23505"

const recordLoginFailureSQL = `
UPDATE "accounts"
SET
	"failed_login_count" = CASE WHEN "failed_login_count" + 1 >= ? THEN ? ELSE "failed_login_count" + 1 END,
	"locked_until" = CASE WHEN "failed_login_count" + 1 >= ? THEN ? ELSE "locked_until" END,
	"updated_at" = ?
WHERE "id" = ?
RETURNING *`

const recordLoginSuccessSQL = `
UPDATE "accounts"
SET
	"failed_login_count" = 0,
	"locked_until" = NULL,
	"last_login_at" = ?,
	"last_login_ip" = ?,
	"updated_at" = ?
WHERE "id" = ?
RETURNING *`

// Accounts implements identity.Accounts using Bun.
type Accounts struct {
	db      *bun.DB
	records repo.Repository[*identity.Account]
}

var _ identity.Accounts = (*Accounts)(nil)

// NewAccounts creates a new credential store.
func NewAccounts(db *bun.DB) *Accounts {
	return &Accounts{
		db:      db,
		records: NewAccountRecords(db),
	}
}

// NewAccountRecords returns the generic repository for the accounts table.
// Identifier lookups resolve against the email column.
func NewAccountRecords(db *bun.DB) repo.Repository[*identity.Account] {
	return repo.NewRepository[*identity.Account](db, repo.ModelHandlers[*identity.Account]{
		NewRecord: func() *identity.Account {
			return &identity.Account{}
		},
		GetID: func(record *identity.Account) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *identity.Account, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})
}

// Create inserts the account. Unique constraint violations surface as
// identity.ErrDuplicateAccount.
func (r *Accounts) Create(ctx context.Context, account *identity.Account) (*identity.Account, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}

	created, err := r.records.Create(ctx, account)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, duplicate(err)
		}
		return nil, err
	}
	return created, nil
}

// GetByID implements identity.Accounts.
func (r *Accounts) GetByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	record, err := r.records.GetByID(ctx, id.String())
	if err != nil {
		return nil, notFound(err, "id", id.String())
	}
	return record, nil
}

// GetByEmail implements identity.Accounts.
func (r *Accounts) GetByEmail(ctx context.Context, email string) (*identity.Account, error) {
	record, err := r.records.GetByIdentifier(ctx, identity.NormalizeEmail(email))
	if err != nil {
		return nil, notFound(err, "email", "")
	}
	return record, nil
}

// ExistsByEmail implements identity.Accounts.
func (r *Accounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", identity.NormalizeEmail(email))
}

// ExistsByTSCNumber implements identity.Accounts.
func (r *Accounts) ExistsByTSCNumber(ctx context.Context, tscNumber string) (bool, error) {
	return r.exists(ctx, "tsc_number", tscNumber)
}

// ExistsByAdmissionNumber implements identity.Accounts.
func (r *Accounts) ExistsByAdmissionNumber(ctx context.Context, admissionNumber string) (bool, error) {
	return r.exists(ctx, "admission_number", admissionNumber)
}

func (r *Accounts) exists(ctx context.Context, column, value string) (bool, error) {
	if strings.TrimSpace(value) == "" {
		return false, nil
	}
	return r.db.NewSelect().
		Model((*identity.Account)(nil)).
		Where("? = ?", bun.Ident(column), value).
		Exists(ctx)
}

// ListPending returns inactive accounts, oldest first, and their total count.
func (r *Accounts) ListPending(ctx context.Context, page identity.Page) ([]*identity.Account, int, error) {
	page = page.Normalize()
	records, total, err := r.records.List(ctx,
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("active = ?", false)
		},
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("created_at ASC", "id ASC")
		},
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Limit(page.Size).Offset(page.Offset())
		},
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) && !repo.IsRecordNotFound(err) {
		return nil, 0, err
	}
	if records == nil {
		records = []*identity.Account{}
	}
	return records, total, nil
}

// Activate sets active and email_verified.
func (r *Accounts) Activate(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	var out *identity.Account
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*identity.Account)(nil)).
			Set("active = ?", true).
			Set("email_verified = ?", true).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := ensureAffected(res, id); err != nil {
			return err
		}
		out, err = r.records.GetByIDTx(ctx, tx, id.String())
		return notFound(err, "id", id.String())
	})
	return out, err
}

// Delete removes the account permanently.
func (r *Accounts) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := r.records.GetByIDTx(ctx, tx, id.String())
		if err != nil {
			return notFound(err, "id", id.String())
		}
		return r.records.DeleteTx(ctx, tx, record)
	})
}

// RecordLoginFailure increments failed_login_count in one statement. Once the
// count reaches threshold it stays there and locked_until is set.
func (r *Accounts) RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (*identity.Account, error) {
	return r.updateReturning(ctx, id, recordLoginFailureSQL,
		threshold, threshold, threshold, lockUntil.UTC(), time.Now().UTC(), id)
}

// RecordLoginSuccess clears the counter and lock and stamps the login audit fields.
func (r *Accounts) RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time, ip string) (*identity.Account, error) {
	return r.updateReturning(ctx, id, recordLoginSuccessSQL, at.UTC(), ip, at.UTC(), id)
}

func (r *Accounts) updateReturning(ctx context.Context, id uuid.UUID, query string, args ...any) (*identity.Account, error) {
	res, err := r.records.RawTx(ctx, r.db, query, args...)
	if err != nil {
		return nil, notFound(err, "id", id.String())
	}
	if len(res) == 0 {
		return nil, notFound(sql.ErrNoRows, "id", id.String())
	}
	return res[0], nil
}

func ensureAffected(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(sql.ErrNoRows, "id", id.String())
	}
	return nil
}

func notFound(err error, field, value string) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) && !repo.IsRecordNotFound(err) {
		return err
	}
	nerr := identity.ErrNotFound.Clone()
	nerr.Source = identity.ErrNotFound
	meta := map[string]any{"lookup": field}
	if value != "" {
		meta["value"] = value
	}
	return nerr.WithMetadata(meta)
}

func duplicate(err error) error {
	derr := identity.ErrDuplicateAccount.Clone()
	derr.Source = identity.ErrDuplicateAccount
	return derr.WithMetadata(map[string]any{"constraint": err.Error()})
}

// isUniqueViolation checks every error in the chain since the generic
// repository wraps driver errors.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	for ; err != nil; err = errors.Unwrap(err) {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique constraint failed") ||
			strings.Contains(msg, "duplicate key value") {
			return true
		}
	}
	return false
}
