package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/domain"
)

type accountRepo struct {
	q querier
}

const accountColumns = `id, name, kind, class, balance::text, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		acc     domain.Account
		balance string
	)
	err := row.Scan(&acc.ID, &acc.Name, &acc.Kind, &acc.Class, &balance, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	acc.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parsing balance %q: %w", balance, err)
	}
	return &acc, nil
}

func (r *accountRepo) Insert(ctx context.Context, acc *domain.Account) error {
	if acc.ID == "" {
		return fmt.Errorf("%w: account ID is required", domain.ErrValidation)
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO accounts (id, name, kind, class, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		acc.ID, acc.Name, acc.Kind, string(acc.Class), acc.Balance.String(), acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: inserting account: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *accountRepo) Get(ctx context.Context, id string) (*domain.Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading account: %v", domain.ErrPersistence, err)
	}
	return acc, nil
}

func (r *accountRepo) List(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.q.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing accounts: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning account: %v", domain.ErrPersistence, err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating accounts: %v", domain.ErrPersistence, err)
	}
	return accounts, nil
}

func (r *accountRepo) UpdateMetadata(ctx context.Context, acc *domain.Account) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE accounts
		SET name = $1, kind = $2, class = $3, updated_at = $4
		WHERE id = $5`,
		acc.Name, acc.Kind, string(acc.Class), acc.UpdatedAt, acc.ID)
	if err != nil {
		return fmt.Errorf("%w: updating account: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, acc.ID)
	}
	return nil
}

func (r *accountRepo) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE accounts
		SET balance = balance + $1::numeric, updated_at = $2
		WHERE id = $3`,
		delta.String(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("%w: applying delta: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *accountRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting account: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	return nil
}
