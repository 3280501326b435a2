package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/domain"
)

// AccountRepository persists accounts. Balance is written only at insert
// time and through ApplyDelta; UpdateMetadata never touches it.
type AccountRepository interface {
	// Insert stores a new account, including its initial balance.
	Insert(ctx context.Context, acc *domain.Account) error

	// Get returns the account with the given ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Account, error)

	// List returns all accounts.
	List(ctx context.Context) ([]*domain.Account, error)

	// UpdateMetadata updates name, kind, and class. The stored balance is
	// left untouched regardless of what acc.Balance holds.
	UpdateMetadata(ctx context.Context, acc *domain.Account) error

	// ApplyDelta atomically adds delta to the account's balance. It is the
	// only balance mutation after insert. Returns domain.ErrNotFound for
	// unknown accounts.
	ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) error

	// Delete removes the account. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	// AccountID restricts results to transactions linked to this account.
	AccountID string

	// Category restricts results to this category label.
	Category string
}

// TransactionRepository persists ledger transactions.
type TransactionRepository interface {
	// Insert stores a new transaction.
	Insert(ctx context.Context, tx *domain.Transaction) error

	// Get returns the transaction with the given ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Transaction, error)

	// List returns transactions matching the filter, newest date first.
	List(ctx context.Context, filter TransactionFilter) ([]*domain.Transaction, error)

	// Update overwrites the stored transaction fields.
	Update(ctx context.Context, tx *domain.Transaction) error

	// Delete removes the transaction. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}

// PocketRepository persists pockets.
type PocketRepository interface {
	// Insert stores a new pocket.
	Insert(ctx context.Context, p *domain.Pocket) error

	// Get returns the pocket with the given ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Pocket, error)

	// ListByAccount returns all pockets of the given account.
	ListByAccount(ctx context.Context, accountID string) ([]*domain.Pocket, error)

	// Update overwrites the stored pocket fields.
	Update(ctx context.Context, p *domain.Pocket) error

	// Delete removes the pocket. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// DeleteByAccount removes all pockets of the given account. Used when
	// the account itself is deleted.
	DeleteByAccount(ctx context.Context, accountID string) error
}

// Tx is the repository view inside an atomic unit of work.
type Tx interface {
	Accounts() AccountRepository
	Transactions() TransactionRepository
	Pockets() PocketRepository
}

// Store is the persistence boundary of the ledger core. Direct repository
// access is fine for reads and single-entity writes; every multi-step
// balance-affecting sequence must run inside WithinTx.
type Store interface {
	Tx

	// WithinTx runs fn as a single atomic unit: either every write fn
	// performs is committed, or none are. The unit is serialized against
	// other mutations touching any of the given account IDs; mutations on
	// disjoint accounts proceed in parallel. An empty ID stands for rows
	// not linked to any account and serializes with other unlinked-row
	// mutations.
	WithinTx(ctx context.Context, accountIDs []string, fn func(Tx) error) error
}
