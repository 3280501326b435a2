// Package pockets partitions an account's balance into named virtual
// sub-allocations for budgeting. Pockets never touch the account balance;
// the unallocated remainder is computed on read and may go negative when
// an account is over-allocated.
package pockets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/invalidation"
	"github.com/omnitrack/ledger/internal/logger"
	"github.com/omnitrack/ledger/internal/store"
)

// Allocator manages pockets.
type Allocator struct {
	store store.Store
	inv   invalidation.Invalidator
}

// NewAllocator creates a pocket allocator over the given store.
func NewAllocator(st store.Store, inv invalidation.Invalidator) *Allocator {
	return &Allocator{store: st, inv: inv}
}

// CreateParams are the fields for creating a pocket.
type CreateParams struct {
	AccountID         string
	Name              string
	InitialAllocation decimal.Decimal
	Target            *decimal.Decimal
	AreaID            string
}

// CreatePocket creates a pocket against an existing account. The
// allocation is not checked against the account balance: over-allocation
// is permitted and surfaced by Unallocated.
func (a *Allocator) CreatePocket(ctx context.Context, p CreateParams) (*domain.Pocket, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: pocket name is required", domain.ErrValidation)
	}
	if p.InitialAllocation.IsNegative() {
		return nil, fmt.Errorf("%w: allocation must not be negative", domain.ErrValidation)
	}

	now := time.Now()
	pocket := &domain.Pocket{
		ID:        uuid.New().String(),
		AccountID: p.AccountID,
		Name:      strings.TrimSpace(p.Name),
		Allocated: p.InitialAllocation,
		Target:    p.Target,
		AreaID:    p.AreaID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := a.store.WithinTx(ctx, []string{p.AccountID}, func(tx store.Tx) error {
		if _, err := tx.Accounts().Get(ctx, p.AccountID); err != nil {
			return err
		}
		return tx.Pockets().Insert(ctx, pocket)
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("pocket_id", pocket.ID).
		Str("account_id", pocket.AccountID).
		Str("allocated", pocket.Allocated.String()).
		Msg("Pocket created")

	a.inv.Invalidate(ctx, invalidation.ViewPockets)
	return pocket, nil
}

// Get returns a pocket by ID.
func (a *Allocator) Get(ctx context.Context, id string) (*domain.Pocket, error) {
	return a.store.Pockets().Get(ctx, id)
}

// ListByAccount returns all pockets of an account.
func (a *Allocator) ListByAccount(ctx context.Context, accountID string) ([]*domain.Pocket, error) {
	return a.store.Pockets().ListByAccount(ctx, accountID)
}

// SetAllocation sets a pocket's allocation to an absolute amount. This is
// a direct set for manual correction, not a delta.
func (a *Allocator) SetAllocation(ctx context.Context, pocketID string, newAmount decimal.Decimal) (*domain.Pocket, error) {
	if newAmount.IsNegative() {
		return nil, fmt.Errorf("%w: allocation must not be negative", domain.ErrValidation)
	}

	pocket, err := a.store.Pockets().Get(ctx, pocketID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Pocket
	err = a.store.WithinTx(ctx, []string{pocket.AccountID}, func(tx store.Tx) error {
		p, err := tx.Pockets().Get(ctx, pocketID)
		if err != nil {
			return err
		}
		p.Allocated = newAmount
		p.UpdatedAt = time.Now()
		if err := tx.Pockets().Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.inv.Invalidate(ctx, invalidation.ViewPockets)
	return updated, nil
}

// Transfer moves amount from one pocket to another atomically. A failed
// transfer leaves both pockets unchanged. The underlying account balances
// are never touched.
func (a *Allocator) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: transfer amount must be positive", domain.ErrValidation)
	}
	if fromID == toID {
		return fmt.Errorf("%w: cannot transfer a pocket into itself", domain.ErrValidation)
	}

	// Unlocked reads to learn the accounts to serialize on; the pockets
	// are re-read authoritatively inside the unit of work.
	from, err := a.store.Pockets().Get(ctx, fromID)
	if err != nil {
		return err
	}
	to, err := a.store.Pockets().Get(ctx, toID)
	if err != nil {
		return err
	}

	err = a.store.WithinTx(ctx, []string{from.AccountID, to.AccountID}, func(tx store.Tx) error {
		from, err := tx.Pockets().Get(ctx, fromID)
		if err != nil {
			return err
		}
		to, err := tx.Pockets().Get(ctx, toID)
		if err != nil {
			return err
		}

		if amount.GreaterThan(from.Allocated) {
			return fmt.Errorf("%w: pocket %s has %s allocated, cannot transfer %s",
				domain.ErrInsufficientFunds, from.Name, from.Allocated, amount)
		}

		now := time.Now()
		from.Allocated = from.Allocated.Sub(amount)
		from.UpdatedAt = now
		to.Allocated = to.Allocated.Add(amount)
		to.UpdatedAt = now

		if err := tx.Pockets().Update(ctx, from); err != nil {
			return err
		}
		return tx.Pockets().Update(ctx, to)
	})
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("from", fromID).
		Str("to", toID).
		Str("amount", amount.String()).
		Msg("Pocket transfer")

	a.inv.Invalidate(ctx, invalidation.ViewPockets)
	return nil
}

// DeletePocket removes a pocket. Its allocation returns to the account's
// unallocated pool implicitly, since unallocated is computed, not stored.
func (a *Allocator) DeletePocket(ctx context.Context, id string) error {
	pocket, err := a.store.Pockets().Get(ctx, id)
	if err != nil {
		return err
	}

	err = a.store.WithinTx(ctx, []string{pocket.AccountID}, func(tx store.Tx) error {
		return tx.Pockets().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	a.inv.Invalidate(ctx, invalidation.ViewPockets)
	return nil
}

// Unallocated returns the account balance minus the sum of its pocket
// allocations. A negative result means the account is over-allocated; the
// value is reported as is, never hidden.
func (a *Allocator) Unallocated(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acc, err := a.store.Accounts().Get(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	pockets, err := a.store.Pockets().ListByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	allocated := decimal.Zero
	for _, p := range pockets {
		allocated = allocated.Add(p.Allocated)
	}
	return acc.Balance.Sub(allocated), nil
}
