package inmemory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/store"
)

// stagedTx is the transactional view handed to WithinTx callbacks. Reads
// see staged writes first and fall through to the base maps; writes only
// touch the staging area until commit. Discarding the stagedTx on error is
// the rollback.
type stagedTx struct {
	s *Store

	accounts   map[string]*domain.Account
	accountDel map[string]bool

	transactions map[string]*domain.Transaction
	txDel        map[string]bool

	pockets   map[string]*domain.Pocket
	pocketDel map[string]bool
}

func newStagedTx(s *Store) *stagedTx {
	return &stagedTx{
		s:            s,
		accounts:     make(map[string]*domain.Account),
		accountDel:   make(map[string]bool),
		transactions: make(map[string]*domain.Transaction),
		txDel:        make(map[string]bool),
		pockets:      make(map[string]*domain.Pocket),
		pocketDel:    make(map[string]bool),
	}
}

func (t *stagedTx) Accounts() store.AccountRepository         { return &stagedAccountRepo{t} }
func (t *stagedTx) Transactions() store.TransactionRepository { return &stagedTransactionRepo{t} }
func (t *stagedTx) Pockets() store.PocketRepository           { return &stagedPocketRepo{t} }

// commit applies the staging area to the base maps in one critical section.
func (t *stagedTx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id := range t.accountDel {
		delete(t.s.accounts, id)
	}
	for id, acc := range t.accounts {
		t.s.accounts[id] = acc
	}
	for id := range t.txDel {
		delete(t.s.transactions, id)
	}
	for id, tx := range t.transactions {
		t.s.transactions[id] = tx
	}
	for id := range t.pocketDel {
		delete(t.s.pockets, id)
	}
	for id, p := range t.pockets {
		t.s.pockets[id] = p
	}
}

func (t *stagedTx) account(id string) (*domain.Account, bool) {
	if t.accountDel[id] {
		return nil, false
	}
	if acc, ok := t.accounts[id]; ok {
		return copyAccount(acc), true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	acc, ok := t.s.accounts[id]
	if !ok {
		return nil, false
	}
	return copyAccount(acc), true
}

func (t *stagedTx) transaction(id string) (*domain.Transaction, bool) {
	if t.txDel[id] {
		return nil, false
	}
	if tx, ok := t.transactions[id]; ok {
		return copyTransaction(tx), true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	tx, ok := t.s.transactions[id]
	if !ok {
		return nil, false
	}
	return copyTransaction(tx), true
}

func (t *stagedTx) pocket(id string) (*domain.Pocket, bool) {
	if t.pocketDel[id] {
		return nil, false
	}
	if p, ok := t.pockets[id]; ok {
		return copyPocket(p), true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	p, ok := t.s.pockets[id]
	if !ok {
		return nil, false
	}
	return copyPocket(p), true
}

type stagedAccountRepo struct {
	t *stagedTx
}

func (r *stagedAccountRepo) Insert(ctx context.Context, acc *domain.Account) error {
	if acc.ID == "" {
		return fmt.Errorf("%w: account ID is required", domain.ErrValidation)
	}
	if _, exists := r.t.account(acc.ID); exists {
		return fmt.Errorf("%w: account %s already exists", domain.ErrPersistence, acc.ID)
	}
	delete(r.t.accountDel, acc.ID)
	r.t.accounts[acc.ID] = copyAccount(acc)
	return nil
}

func (r *stagedAccountRepo) Get(ctx context.Context, id string) (*domain.Account, error) {
	acc, ok := r.t.account(id)
	if !ok {
		return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	return acc, nil
}

func (r *stagedAccountRepo) List(ctx context.Context) ([]*domain.Account, error) {
	// Listings inside a unit of work are not needed by the core; read
	// through to the base state for simplicity.
	return (&accountRepo{s: r.t.s}).List(ctx)
}

func (r *stagedAccountRepo) UpdateMetadata(ctx context.Context, acc *domain.Account) error {
	current, ok := r.t.account(acc.ID)
	if !ok {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, acc.ID)
	}
	current.Name = acc.Name
	current.Kind = acc.Kind
	current.Class = acc.Class
	current.UpdatedAt = acc.UpdatedAt
	r.t.accounts[acc.ID] = current
	return nil
}

func (r *stagedAccountRepo) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) error {
	acc, ok := r.t.account(id)
	if !ok {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	acc.Balance = acc.Balance.Add(delta)
	r.t.accounts[id] = acc
	return nil
}

func (r *stagedAccountRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.t.account(id); !ok {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	delete(r.t.accounts, id)
	r.t.accountDel[id] = true
	return nil
}

type stagedTransactionRepo struct {
	t *stagedTx
}

func (r *stagedTransactionRepo) Insert(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("%w: transaction ID is required", domain.ErrValidation)
	}
	if _, exists := r.t.transaction(tx.ID); exists {
		return fmt.Errorf("%w: transaction %s already exists", domain.ErrPersistence, tx.ID)
	}
	delete(r.t.txDel, tx.ID)
	r.t.transactions[tx.ID] = copyTransaction(tx)
	return nil
}

func (r *stagedTransactionRepo) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, ok := r.t.transaction(id)
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	return tx, nil
}

func (r *stagedTransactionRepo) List(ctx context.Context, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	return (&transactionRepo{s: r.t.s}).List(ctx, filter)
}

func (r *stagedTransactionRepo) Update(ctx context.Context, tx *domain.Transaction) error {
	if _, ok := r.t.transaction(tx.ID); !ok {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, tx.ID)
	}
	r.t.transactions[tx.ID] = copyTransaction(tx)
	return nil
}

func (r *stagedTransactionRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.t.transaction(id); !ok {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	delete(r.t.transactions, id)
	r.t.txDel[id] = true
	return nil
}

type stagedPocketRepo struct {
	t *stagedTx
}

func (r *stagedPocketRepo) Insert(ctx context.Context, p *domain.Pocket) error {
	if p.ID == "" {
		return fmt.Errorf("%w: pocket ID is required", domain.ErrValidation)
	}
	if _, exists := r.t.pocket(p.ID); exists {
		return fmt.Errorf("%w: pocket %s already exists", domain.ErrPersistence, p.ID)
	}
	delete(r.t.pocketDel, p.ID)
	r.t.pockets[p.ID] = copyPocket(p)
	return nil
}

func (r *stagedPocketRepo) Get(ctx context.Context, id string) (*domain.Pocket, error) {
	p, ok := r.t.pocket(id)
	if !ok {
		return nil, fmt.Errorf("%w: pocket %s", domain.ErrNotFound, id)
	}
	return p, nil
}

func (r *stagedPocketRepo) ListByAccount(ctx context.Context, accountID string) ([]*domain.Pocket, error) {
	base, err := (&pocketRepo{s: r.t.s}).ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	var result []*domain.Pocket
	for _, p := range base {
		if r.t.pocketDel[p.ID] {
			continue
		}
		if staged, ok := r.t.pockets[p.ID]; ok {
			result = append(result, copyPocket(staged))
			continue
		}
		result = append(result, p)
	}
	for id, p := range r.t.pockets {
		if p.AccountID != accountID {
			continue
		}
		found := false
		for _, existing := range result {
			if existing.ID == id {
				found = true
				break
			}
		}
		if !found {
			result = append(result, copyPocket(p))
		}
	}
	return result, nil
}

func (r *stagedPocketRepo) Update(ctx context.Context, p *domain.Pocket) error {
	if _, ok := r.t.pocket(p.ID); !ok {
		return fmt.Errorf("%w: pocket %s", domain.ErrNotFound, p.ID)
	}
	r.t.pockets[p.ID] = copyPocket(p)
	return nil
}

func (r *stagedPocketRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.t.pocket(id); !ok {
		return fmt.Errorf("%w: pocket %s", domain.ErrNotFound, id)
	}
	delete(r.t.pockets, id)
	r.t.pocketDel[id] = true
	return nil
}

func (r *stagedPocketRepo) DeleteByAccount(ctx context.Context, accountID string) error {
	pockets, err := r.ListByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	for _, p := range pockets {
		delete(r.t.pockets, p.ID)
		r.t.pocketDel[p.ID] = true
	}
	return nil
}
