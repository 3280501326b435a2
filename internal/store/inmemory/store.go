// Package inmemory provides the canonical in-memory implementation of the
// ledger store. It is safe for concurrent use and is the default backend
// for tests and single-instance deployments; data is lost on restart.
package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/store"
)

// Store keeps all ledger state in maps guarded by a single RWMutex.
// Multi-step units of work run through WithinTx, which stages writes and
// serializes on per-account locks so that concurrent mutations of the same
// account never interleave while disjoint accounts proceed in parallel.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	transactions map[string]*domain.Transaction
	pockets      map[string]*domain.Pocket

	lockMu       sync.Mutex
	accountLocks map[string]*accountLock
}

// accountLock is a reference-counted per-account mutex. Entries live in
// the lock map only while a unit of work holds or waits for them, so the
// map does not grow with the number of accounts ever seen.
type accountLock struct {
	id   string
	mu   sync.Mutex
	refs int
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string]*domain.Transaction),
		pockets:      make(map[string]*domain.Pocket),
		accountLocks: make(map[string]*accountLock),
	}
}

// Accounts implements store.Tx.
func (s *Store) Accounts() store.AccountRepository { return &accountRepo{s: s} }

// Transactions implements store.Tx.
func (s *Store) Transactions() store.TransactionRepository { return &transactionRepo{s: s} }

// Pockets implements store.Tx.
func (s *Store) Pockets() store.PocketRepository { return &pocketRepo{s: s} }

// WithinTx implements store.Store. Writes performed by fn are staged and
// applied to the base maps only if fn returns nil, so a failing unit leaves
// the store provably unchanged.
func (s *Store) WithinTx(ctx context.Context, accountIDs []string, fn func(store.Tx) error) error {
	locks := s.acquireAccountLocks(accountIDs)
	defer s.releaseAccountLocks(locks)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	tx := newStagedTx(s)
	if err := fn(tx); err != nil {
		return err
	}

	tx.commit()
	return nil
}

// acquireAccountLocks takes the per-account locks in sorted ID order so two
// units touching the same pair of accounts cannot deadlock. The empty ID is
// a valid key shared by every mutation of rows not linked to any account,
// so those serialize against each other too.
func (s *Store) acquireAccountLocks(accountIDs []string) []*accountLock {
	ids := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	locks := make([]*accountLock, 0, len(ids))
	for _, id := range ids {
		s.lockMu.Lock()
		l, ok := s.accountLocks[id]
		if !ok {
			l = &accountLock{id: id}
			s.accountLocks[id] = l
		}
		l.refs++
		s.lockMu.Unlock()
		l.mu.Lock()
		locks = append(locks, l)
	}
	return locks
}

// releaseAccountLocks unlocks in reverse order and drops map entries no
// unit holds or waits for anymore.
func (s *Store) releaseAccountLocks(locks []*accountLock) {
	for i := len(locks) - 1; i >= 0; i-- {
		l := locks[i]
		l.mu.Unlock()
		s.lockMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.accountLocks, l.id)
		}
		s.lockMu.Unlock()
	}
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func copyTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	return &c
}

func copyPocket(p *domain.Pocket) *domain.Pocket {
	c := *p
	if p.Target != nil {
		t := *p.Target
		c.Target = &t
	}
	return &c
}

// Ensure Store implements the store interface.
var _ store.Store = (*Store)(nil)
