// Package ledger is the transaction ledger: it creates, edits, and deletes
// transactions, computing balance deltas and applying them to the account
// store. Edit and delete are reversal-symmetric: the original effect is
// fully undone before the new one is applied, so an account balance always
// equals its initial balance plus the fold of live transaction deltas.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/calendar"
	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/invalidation"
	"github.com/omnitrack/ledger/internal/logger"
	"github.com/omnitrack/ledger/internal/projection"
	"github.com/omnitrack/ledger/internal/store"
)

// editRetries bounds how often an edit or delete re-acquires locks when a
// concurrent edit moved the transaction to a different account between the
// unlocked read and the locked re-read.
const editRetries = 3

// Service is the transaction ledger.
type Service struct {
	store      store.Store
	dispatcher projection.Dispatcher
	calendar   calendar.Calendar
	inv        invalidation.Invalidator
}

// NewService creates a ledger over the given store and collaborators.
func NewService(st store.Store, d projection.Dispatcher, cal calendar.Calendar, inv invalidation.Invalidator) *Service {
	return &Service{store: st, dispatcher: d, calendar: cal, inv: inv}
}

// Fields are the caller-editable fields of a transaction, used by both
// Create and Edit.
type Fields struct {
	Description string
	Amount      decimal.Decimal
	Kind        domain.TransactionKind
	AccountID   string
	IsRecurring bool
	Frequency   domain.Frequency
	Category    string
	AreaID      string
	Date        civil.Date
}

func (f *Fields) validate() error {
	if strings.TrimSpace(f.Description) == "" {
		return fmt.Errorf("%w: description is required", domain.ErrValidation)
	}
	if !f.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", domain.ErrValidation, f.Amount)
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("%w: unknown transaction kind %q", domain.ErrValidation, f.Kind)
	}
	if !f.Date.IsValid() {
		return fmt.Errorf("%w: invalid date %v", domain.ErrValidation, f.Date)
	}
	if f.IsRecurring && !f.Frequency.Valid() {
		return fmt.Errorf("%w: recurring transaction needs a frequency", domain.ErrValidation)
	}
	return nil
}

// Create validates and persists a new transaction. If the transaction is
// linked to an account, the balance delta and the transaction row are
// committed as one atomic unit. Recurrence projection is dispatched only
// after the commit succeeds and never fails the create.
func (s *Service) Create(ctx context.Context, f Fields) (*domain.Transaction, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	tx := &domain.Transaction{
		ID:          uuid.New().String(),
		Description: strings.TrimSpace(f.Description),
		Amount:      f.Amount,
		Kind:        f.Kind,
		AccountID:   f.AccountID,
		IsRecurring: f.IsRecurring,
		Frequency:   f.Frequency,
		Category:    f.Category,
		AreaID:      f.AreaID,
		Date:        f.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.WithinTx(ctx, []string{f.AccountID}, func(st store.Tx) error {
		if tx.AccountID != "" {
			acc, err := st.Accounts().Get(ctx, tx.AccountID)
			if err != nil {
				return err
			}
			d := domain.Delta(tx.Kind, acc.Class, tx.Amount)
			if err := st.Accounts().ApplyDelta(ctx, tx.AccountID, d); err != nil {
				return err
			}
		}
		return st.Transactions().Insert(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("transaction_id", tx.ID).
		Str("kind", string(tx.Kind)).
		Str("amount", tx.Amount.String()).
		Bool("recurring", tx.IsRecurring).
		Msg("Transaction created")

	if tx.IsRecurring {
		snapshot := *tx
		s.dispatcher.Dispatch(ctx, &snapshot)
	}

	views := []string{invalidation.ViewTransactions}
	if tx.AccountID != "" {
		views = append(views, invalidation.ViewAccounts)
	}
	if tx.IsRecurring {
		views = append(views, invalidation.ViewCalendar)
	}
	s.inv.Invalidate(ctx, views...)

	return tx, nil
}

// Get returns a transaction by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.store.Transactions().Get(ctx, id)
}

// List returns transactions matching the filter.
func (s *Service) List(ctx context.Context, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	return s.store.Transactions().List(ctx, filter)
}

// Edit replaces a transaction's fields, keeping balances consistent by
// reversal: the original delta is undone on the original account, then the
// new delta is applied on the (possibly different) new account, then the
// row is updated. All three writes are one atomic unit. When the account
// is unchanged the net effect is newDelta - oldDelta against that account.
//
// Projected occurrences are deliberately not regenerated on edit.
func (s *Service) Edit(ctx context.Context, id string, f Fields) (*domain.Transaction, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	var updated *domain.Transaction
	for attempt := 0; ; attempt++ {
		// Unlocked read to learn which accounts to serialize on.
		orig, err := s.store.Transactions().Get(ctx, id)
		if err != nil {
			return nil, err
		}

		lockIDs := []string{orig.AccountID, f.AccountID}
		retry := false
		err = s.store.WithinTx(ctx, lockIDs, func(st store.Tx) error {
			orig, err := st.Transactions().Get(ctx, id)
			if err != nil {
				return err
			}
			// A concurrent edit may have re-linked the transaction
			// after the unlocked read; retry with fresh locks.
			if orig.AccountID != "" && orig.AccountID != lockIDs[0] && orig.AccountID != lockIDs[1] {
				retry = true
				return fmt.Errorf("%w: transaction %s relinked concurrently", domain.ErrPersistence, id)
			}

			if orig.AccountID != "" {
				origAcc, err := st.Accounts().Get(ctx, orig.AccountID)
				if err != nil {
					return err
				}
				reverse := domain.Delta(orig.Kind, origAcc.Class, orig.Amount).Neg()
				if err := st.Accounts().ApplyDelta(ctx, orig.AccountID, reverse); err != nil {
					return err
				}
			}

			if f.AccountID != "" {
				newAcc, err := st.Accounts().Get(ctx, f.AccountID)
				if err != nil {
					return err
				}
				d := domain.Delta(f.Kind, newAcc.Class, f.Amount)
				if err := st.Accounts().ApplyDelta(ctx, f.AccountID, d); err != nil {
					return err
				}
			}

			next := *orig
			next.Description = strings.TrimSpace(f.Description)
			next.Amount = f.Amount
			next.Kind = f.Kind
			next.AccountID = f.AccountID
			next.IsRecurring = f.IsRecurring
			next.Frequency = f.Frequency
			next.Category = f.Category
			next.AreaID = f.AreaID
			next.Date = f.Date
			next.UpdatedAt = time.Now()
			if err := st.Transactions().Update(ctx, &next); err != nil {
				return err
			}
			updated = &next
			return nil
		})
		if err == nil {
			break
		}
		if retry && attempt < editRetries {
			continue
		}
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("transaction_id", id).
		Msg("Transaction edited")

	s.inv.Invalidate(ctx, invalidation.ViewTransactions, invalidation.ViewAccounts)
	return updated, nil
}

// Delete reverses the transaction's balance effect, removes the row, and
// cascade-deletes every projected calendar event originating from it. The
// reversal and the row removal are one atomic unit; the calendar cascade
// runs after the commit and is best-effort: a cascade failure is logged
// and never surfaced as an error, since the deletion already committed
// and a returned error would wrongly suggest the write did not happen.
func (s *Service) Delete(ctx context.Context, id string) error {
	var deleted *domain.Transaction
	for attempt := 0; ; attempt++ {
		orig, err := s.store.Transactions().Get(ctx, id)
		if err != nil {
			return err
		}

		lockID := orig.AccountID
		retry := false
		err = s.store.WithinTx(ctx, []string{lockID}, func(st store.Tx) error {
			tx, err := st.Transactions().Get(ctx, id)
			if err != nil {
				return err
			}
			if tx.AccountID != "" && tx.AccountID != lockID {
				retry = true
				return fmt.Errorf("%w: transaction %s relinked concurrently", domain.ErrPersistence, id)
			}

			if tx.AccountID != "" {
				acc, err := st.Accounts().Get(ctx, tx.AccountID)
				if err != nil {
					return err
				}
				reverse := domain.Delta(tx.Kind, acc.Class, tx.Amount).Neg()
				if err := st.Accounts().ApplyDelta(ctx, tx.AccountID, reverse); err != nil {
					return err
				}
			}

			if err := st.Transactions().Delete(ctx, id); err != nil {
				return err
			}
			deleted = tx
			return nil
		})
		if err == nil {
			break
		}
		if retry && attempt < editRetries {
			continue
		}
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().Str("transaction_id", id).Msg("Transaction deleted")

	views := []string{invalidation.ViewTransactions, invalidation.ViewCalendar}
	if deleted.AccountID != "" {
		views = append(views, invalidation.ViewAccounts)
	}
	s.inv.Invalidate(ctx, views...)

	// Cascade regardless of the recurring flag: an earlier edit may have
	// cleared the flag while its projections are still on the calendar.
	// The row and the balance reversal are already committed, so a cascade
	// failure is logged and swallowed like any other secondary write.
	removed, err := s.calendar.DeleteByOrigin(ctx, domain.OriginTypeTransaction, id)
	if err != nil {
		log.Error().Err(err).
			Str("transaction_id", id).
			Msg("Cascade delete of projected events failed; transaction removal stands")
		return nil
	}
	if removed > 0 {
		log.Debug().Int("events", removed).Str("transaction_id", id).Msg("Projected events removed")
	}

	return nil
}
