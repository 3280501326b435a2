package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/store"
)

// accountRepo operates directly on the base maps. Repositories always copy
// on read and write so callers cannot mutate stored state from outside.
type accountRepo struct {
	s *Store
}

func (r *accountRepo) Insert(ctx context.Context, acc *domain.Account) error {
	if acc.ID == "" {
		return fmt.Errorf("%w: account ID is required", domain.ErrValidation)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.accounts[acc.ID]; exists {
		return fmt.Errorf("%w: account %s already exists", domain.ErrPersistence, acc.ID)
	}
	r.s.accounts[acc.ID] = copyAccount(acc)
	return nil
}

func (r *accountRepo) Get(ctx context.Context, id string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	acc, ok := r.s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	return copyAccount(acc), nil
}

func (r *accountRepo) List(ctx context.Context) ([]*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.Account, 0, len(r.s.accounts))
	for _, acc := range r.s.accounts {
		result = append(result, copyAccount(acc))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *accountRepo) UpdateMetadata(ctx context.Context, acc *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.accounts[acc.ID]
	if !ok {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, acc.ID)
	}
	current.Name = acc.Name
	current.Kind = acc.Kind
	current.Class = acc.Class
	current.UpdatedAt = acc.UpdatedAt
	return nil
}

func (r *accountRepo) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	acc, ok := r.s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	acc.Balance = acc.Balance.Add(delta)
	return nil
}

func (r *accountRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[id]; !ok {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	delete(r.s.accounts, id)
	return nil
}

type transactionRepo struct {
	s *Store
}

func (r *transactionRepo) Insert(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("%w: transaction ID is required", domain.ErrValidation)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.transactions[tx.ID]; exists {
		return fmt.Errorf("%w: transaction %s already exists", domain.ErrPersistence, tx.ID)
	}
	r.s.transactions[tx.ID] = copyTransaction(tx)
	return nil
}

func (r *transactionRepo) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	return copyTransaction(tx), nil
}

func (r *transactionRepo) List(ctx context.Context, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range r.s.transactions {
		if filter.AccountID != "" && tx.AccountID != filter.AccountID {
			continue
		}
		if filter.Category != "" && tx.Category != filter.Category {
			continue
		}
		result = append(result, copyTransaction(tx))
	}
	sortTransactions(result)
	return result, nil
}

// sortTransactions orders newest date first, ties broken by creation time
// then ID for a stable listing.
func sortTransactions(txs []*domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date.After(txs[j].Date)
		}
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}
		return txs[i].ID < txs[j].ID
	})
}

func (r *transactionRepo) Update(ctx context.Context, tx *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.transactions[tx.ID]; !ok {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, tx.ID)
	}
	r.s.transactions[tx.ID] = copyTransaction(tx)
	return nil
}

func (r *transactionRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.transactions[id]; !ok {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	delete(r.s.transactions, id)
	return nil
}

type pocketRepo struct {
	s *Store
}

func (r *pocketRepo) Insert(ctx context.Context, p *domain.Pocket) error {
	if p.ID == "" {
		return fmt.Errorf("%w: pocket ID is required", domain.ErrValidation)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.pockets[p.ID]; exists {
		return fmt.Errorf("%w: pocket %s already exists", domain.ErrPersistence, p.ID)
	}
	r.s.pockets[p.ID] = copyPocket(p)
	return nil
}

func (r *pocketRepo) Get(ctx context.Context, id string) (*domain.Pocket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.pockets[id]
	if !ok {
		return nil, fmt.Errorf("%w: pocket %s", domain.ErrNotFound, id)
	}
	return copyPocket(p), nil
}

func (r *pocketRepo) ListByAccount(ctx context.Context, accountID string) ([]*domain.Pocket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*domain.Pocket
	for _, p := range r.s.pockets {
		if p.AccountID != accountID {
			continue
		}
		result = append(result, copyPocket(p))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *pocketRepo) Update(ctx context.Context, p *domain.Pocket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.pockets[p.ID]; !ok {
		return fmt.Errorf("%w: pocket %s", domain.ErrNotFound, p.ID)
	}
	r.s.pockets[p.ID] = copyPocket(p)
	return nil
}

func (r *pocketRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.pockets[id]; !ok {
		return fmt.Errorf("%w: pocket %s", domain.ErrNotFound, id)
	}
	delete(r.s.pockets, id)
	return nil
}

func (r *pocketRepo) DeleteByAccount(ctx context.Context, accountID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, p := range r.s.pockets {
		if p.AccountID == accountID {
			delete(r.s.pockets, id)
		}
	}
	return nil
}
