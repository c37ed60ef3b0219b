package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores entries in the pricing table.
type PostgresRepository struct {
	pool rowQuerier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("pricing: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithExec(exec rowQuerier) *PostgresRepository {
	return &PostgresRepository{pool: exec}
}

const entryColumns = `id::text, name, type, description, base_price_cents, discounted_price_cents,
	currency, duration_minutes, is_active, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO pricing (id, name, type, description, base_price_cents, discounted_price_cents, currency, duration_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		e.ID, e.Name, e.Type, e.Description, e.BasePriceCents, e.DiscountedPriceCents,
		e.Currency, e.DurationMinutes, e.IsActive,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pricing: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Entry, error) {
	e, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM pricing WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("pricing: select failed: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) List(ctx context.Context, includeInactive bool) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM pricing WHERE is_active OR $1 ORDER BY type, base_price_cents`
	rows, err := r.pool.Query(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("pricing: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("pricing: scan failed: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, e *Entry) error {
	query := `
		UPDATE pricing
		SET name = $2, type = $3, description = $4, base_price_cents = $5, discounted_price_cents = $6,
			currency = $7, duration_minutes = $8, is_active = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		e.ID, e.Name, e.Type, e.Description, e.BasePriceCents, e.DiscountedPriceCents,
		e.Currency, e.DurationMinutes, e.IsActive,
	).Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("pricing: update failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	return r.execOne(ctx, "deactivate", `UPDATE pricing SET is_active = false, updated_at = now() WHERE id = $1`, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "delete", `DELETE FROM pricing WHERE id = $1`, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, action, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("pricing: %s failed: %w", action, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	if err := row.Scan(
		&e.ID, &e.Name, &e.Type, &e.Description, &e.BasePriceCents, &e.DiscountedPriceCents,
		&e.Currency, &e.DurationMinutes, &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
