package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/store"
)

type transactionRepo struct {
	q querier
}

const transactionColumns = `id, description, amount::text, kind, account_id, is_recurring,
	frequency, category, area_id, date, created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx     domain.Transaction
		amount string
		date   time.Time
	)
	err := row.Scan(&tx.ID, &tx.Description, &amount, &tx.Kind, &tx.AccountID, &tx.IsRecurring,
		&tx.Frequency, &tx.Category, &tx.AreaID, &date, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	tx.Date = civil.DateOf(date)
	return &tx, nil
}

func (r *transactionRepo) Insert(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("%w: transaction ID is required", domain.ErrValidation)
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO transactions (id, description, amount, kind, account_id, is_recurring,
			frequency, category, area_id, date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		tx.ID, tx.Description, tx.Amount.String(), string(tx.Kind), tx.AccountID, tx.IsRecurring,
		string(tx.Frequency), tx.Category, tx.AreaID, tx.Date.String(), tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: inserting transaction: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *transactionRepo) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading transaction: %v", domain.ErrPersistence, err)
	}
	return tx, nil
}

func (r *transactionRepo) List(ctx context.Context, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	var args []any
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		query += fmt.Sprintf(` AND account_id = $%d`, len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	query += ` ORDER BY date DESC, created_at DESC, id`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing transactions: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning transaction: %v", domain.ErrPersistence, err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating transactions: %v", domain.ErrPersistence, err)
	}
	return txs, nil
}

func (r *transactionRepo) Update(ctx context.Context, tx *domain.Transaction) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE transactions
		SET description = $1, amount = $2, kind = $3, account_id = $4, is_recurring = $5,
			frequency = $6, category = $7, area_id = $8, date = $9, updated_at = $10
		WHERE id = $11`,
		tx.Description, tx.Amount.String(), string(tx.Kind), tx.AccountID, tx.IsRecurring,
		string(tx.Frequency), tx.Category, tx.AreaID, tx.Date.String(), tx.UpdatedAt, tx.ID)
	if err != nil {
		return fmt.Errorf("%w: updating transaction: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, tx.ID)
	}
	return nil
}

func (r *transactionRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting transaction: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	return nil
}
