package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	repo "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Manager owns the database handle and the stores built on it.
type Manager struct {
	db       *bun.DB
	accounts *Accounts
}

var (
	_ repo.Validator          = (*Manager)(nil)
	_ repo.TransactionManager = (*Manager)(nil)
)

func NewManager(db *bun.DB) *Manager {
	return &Manager{
		db:       db,
		accounts: NewAccounts(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository database should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *Manager) Accounts() *Accounts {
	return m.accounts
}

func (m *Manager) Close() error {
	return m.db.Close()
}
