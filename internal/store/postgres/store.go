// Package postgres implements the ledger store on PostgreSQL via pgx.
// Atomicity for multi-step units comes from real database transactions;
// per-account serialization comes from SELECT ... FOR UPDATE row locks
// taken in sorted ID order.
package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/store"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same repository code serves both direct access and units of work.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL-backed ledger store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects a store to the database behind connString.
func NewStore(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to postgres: %v", domain.ErrPersistence, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pinging postgres: %v", domain.ErrPersistence, err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Accounts implements store.Tx.
func (s *Store) Accounts() store.AccountRepository {
	return &accountRepo{q: s.pool}
}

// Transactions implements store.Tx.
func (s *Store) Transactions() store.TransactionRepository {
	return &transactionRepo{q: s.pool}
}

// Pockets implements store.Tx.
func (s *Store) Pockets() store.PocketRepository {
	return &pocketRepo{q: s.pool}
}

// WithinTx implements store.Store. The account rows named in accountIDs are
// locked FOR UPDATE in sorted order before fn runs, so two units touching
// the same accounts serialize and opposite orderings cannot deadlock.
func (s *Store) WithinTx(ctx context.Context, accountIDs []string, fn func(store.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	for _, id := range ids {
		// Locking a missing row is a no-op; fn surfaces NotFound itself.
		if _, err := tx.Exec(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, id); err != nil {
			return fmt.Errorf("%w: locking account %s: %v", domain.ErrPersistence, id, err)
		}
	}

	view := &txView{q: tx}
	if err := fn(view); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", domain.ErrPersistence, err)
	}
	return nil
}

// txView exposes transaction-scoped repositories to the unit of work.
type txView struct {
	q querier
}

func (v *txView) Accounts() store.AccountRepository         { return &accountRepo{q: v.q} }
func (v *txView) Transactions() store.TransactionRepository { return &transactionRepo{q: v.q} }
func (v *txView) Pockets() store.PocketRepository           { return &pocketRepo{q: v.q} }

var _ store.Store = (*Store)(nil)
