// Package accounts owns account records and their balances. The balance is
// a materialized aggregate: it is set once at creation and changed only
// through ApplyDelta, never through a metadata update, so it cannot drift
// from the transaction history that produced it.
package accounts

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

// Service is the sole owner of account balances.
type Service struct {
	store store.Store
	inv   invalidation.Invalidator
}

// NewService creates an account service over the given store.
func NewService(st store.Store, inv invalidation.Invalidator) *Service {
	return &Service{store: st, inv: inv}
}

// CreateParams are the fields for creating an account.
type CreateParams struct {
	Name           string
	Kind           string
	Class          domain.AccountClass
	InitialBalance decimal.Decimal
}

// Create stores a new account with its initial balance.
func (s *Service) Create(ctx context.Context, p CreateParams) (*domain.Account, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: account name is required", domain.ErrValidation)
	}
	if !p.Class.Valid() {
		return nil, fmt.Errorf("%w: unknown account class %q", domain.ErrValidation, p.Class)
	}

	now := time.Now()
	acc := &domain.Account{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(p.Name),
		Kind:      p.Kind,
		Class:     p.Class,
		Balance:   p.InitialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Accounts().Insert(ctx, acc); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("account_id", acc.ID).
		Str("class", string(acc.Class)).
		Str("balance", acc.Balance.String()).
		Msg("Account created")

	s.inv.Invalidate(ctx, invalidation.ViewAccounts)
	return acc, nil
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Account, error) {
	return s.store.Accounts().Get(ctx, id)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]*domain.Account, error) {
	return s.store.Accounts().List(ctx)
}

// UpdateMetadata changes name and kind. There is deliberately no way to
// set the balance here, and the class is immutable after creation: the
// balance was accumulated under the creation class's sign rule, so a
// class change would silently flip the meaning of every future delta.
func (s *Service) UpdateMetadata(ctx context.Context, id, name, kind string, class domain.AccountClass) (*domain.Account, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: account name is required", domain.ErrValidation)
	}
	if !class.Valid() {
		return nil, fmt.Errorf("%w: unknown account class %q", domain.ErrValidation, class)
	}

	var updated *domain.Account
	err := s.store.WithinTx(ctx, []string{id}, func(tx store.Tx) error {
		acc, err := tx.Accounts().Get(ctx, id)
		if err != nil {
			return err
		}
		if class != acc.Class {
			return fmt.Errorf("%w: account class cannot change from %q to %q", domain.ErrValidation, acc.Class, class)
		}
		acc.Name = strings.TrimSpace(name)
		acc.Kind = kind
		acc.UpdatedAt = time.Now()
		if err := tx.Accounts().UpdateMetadata(ctx, acc); err != nil {
			return err
		}
		updated = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.inv.Invalidate(ctx, invalidation.ViewAccounts)
	return updated, nil
}

// ApplyDelta atomically adds delta to the account's balance. No clamping
// and no sign correction: the caller is responsible for the correct sign.
func (s *Service) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) error {
	err := s.store.WithinTx(ctx, []string{id}, func(tx store.Tx) error {
		return tx.Accounts().ApplyDelta(ctx, id, delta)
	})
	if err != nil {
		return err
	}

	s.inv.Invalidate(ctx, invalidation.ViewAccounts)
	return nil
}

// Delete removes the account and its pockets. Historical transactions
// referencing the account are left in place; their balance effect dies
// with the account.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.WithinTx(ctx, []string{id}, func(tx store.Tx) error {
		if err := tx.Accounts().Delete(ctx, id); err != nil {
			return err
		}
		return tx.Pockets().DeleteByAccount(ctx, id)
	})
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().Str("account_id", id).Msg("Account deleted")
	s.inv.Invalidate(ctx, invalidation.ViewAccounts, invalidation.ViewPockets)
	return nil
}
