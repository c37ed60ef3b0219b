package doctors

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

// PostgresRepository stores doctors in the doctors table.
type PostgresRepository struct {
	pool rowQuerier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("doctors: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithExec(exec rowQuerier) *PostgresRepository {
	return &PostgresRepository{pool: exec}
}

const doctorColumns = `id::text, name, email, password_hash, phone, speciality, experience, fees_cents,
	consult_type, license_number, education,
	COALESCE(length(document), 0) > 0, COALESCE(length(image), 0) > 0, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, d *Doctor) error {
	query := `
		INSERT INTO doctors (id, name, email, password_hash, phone, speciality, experience, fees_cents,
			consult_type, license_number, education, document, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		d.ID, d.Name, d.Email, d.PasswordHash, d.Phone, d.Speciality, d.Experience, d.FeesCents,
		d.ConsultType, d.LicenseNumber, d.Education, d.Document, d.Image,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("doctors: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Doctor, error) {
	return r.getOne(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return r.getOne(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE email = $1`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*Doctor, error) {
	d, err := scanDoctor(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("doctors: select failed: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+doctorColumns+` FROM doctors ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("doctors: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("doctors: scan failed: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("doctors: count failed: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("doctors: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Blob(ctx context.Context, id, kind string) ([]byte, error) {
	var column string
	switch kind {
	case BlobDocument:
		column = "document"
	case BlobImage:
		column = "image"
	default:
		return nil, fmt.Errorf("doctors: unknown blob kind %q", kind)
	}
	var data []byte
	if err := r.pool.QueryRow(ctx, `SELECT `+column+` FROM doctors WHERE id = $1`, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("doctors: blob select failed: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoBlob
	}
	return data, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	if err := row.Scan(
		&d.ID, &d.Name, &d.Email, &d.PasswordHash, &d.Phone, &d.Speciality, &d.Experience, &d.FeesCents,
		&d.ConsultType, &d.LicenseNumber, &d.Education,
		&d.HasDocument, &d.HasImage, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

var _ Repository = (*PostgresRepository)(nil)
