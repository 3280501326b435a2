package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/domain"
)

type pocketRepo struct {
	q querier
}

const pocketColumns = `id, account_id, name, allocated::text, target::text, area_id, created_at, updated_at`

func scanPocket(row pgx.Row) (*domain.Pocket, error) {
	var (
		p         domain.Pocket
		allocated string
		target    *string
	)
	err := row.Scan(&p.ID, &p.AccountID, &p.Name, &allocated, &target, &p.AreaID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Allocated, err = decimal.NewFromString(allocated)
	if err != nil {
		return nil, fmt.Errorf("parsing allocated %q: %w", allocated, err)
	}
	if target != nil {
		t, err := decimal.NewFromString(*target)
		if err != nil {
			return nil, fmt.Errorf("parsing target %q: %w", *target, err)
		}
		p.Target = &t
	}
	return &p, nil
}

func (r *pocketRepo) Insert(ctx context.Context, p *domain.Pocket) error {
	if p.ID == "" {
		return fmt.Errorf("%w: pocket ID is required", domain.ErrValidation)
	}

	var target *string
	if p.Target != nil {
		s := p.Target.String()
		target = &s
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO pockets (id, account_id, name, allocated, target, area_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)`,
		p.ID, p.AccountID, p.Name, p.Allocated.String(), target, p.AreaID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: inserting pocket: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *pocketRepo) Get(ctx context.Context, id string) (*domain.Pocket, error) {
	row := r.q.QueryRow(ctx, `SELECT `+pocketColumns+` FROM pockets WHERE id = $1`, id)
	p, err := scanPocket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: pocket %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading pocket: %v", domain.ErrPersistence, err)
	}
	return p, nil
}

func (r *pocketRepo) ListByAccount(ctx context.Context, accountID string) ([]*domain.Pocket, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+pocketColumns+` FROM pockets
		WHERE account_id = $1
		ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing pockets: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var pockets []*domain.Pocket
	for rows.Next() {
		p, err := scanPocket(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning pocket: %v", domain.ErrPersistence, err)
		}
		pockets = append(pockets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating pockets: %v", domain.ErrPersistence, err)
	}
	return pockets, nil
}

func (r *pocketRepo) Update(ctx context.Context, p *domain.Pocket) error {
	var target *string
	if p.Target != nil {
		s := p.Target.String()
		target = &s
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE pockets
		SET name = $1, allocated = $2, target = $3::numeric, area_id = $4, updated_at = $5
		WHERE id = $6`,
		p.Name, p.Allocated.String(), target, p.AreaID, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("%w: updating pocket: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pocket %s", domain.ErrNotFound, p.ID)
	}
	return nil
}

func (r *pocketRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM pockets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting pocket: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pocket %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *pocketRepo) DeleteByAccount(ctx context.Context, accountID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM pockets WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("%w: deleting pockets for account %s: %v", domain.ErrPersistence, accountID, err)
	}
	return nil
}
