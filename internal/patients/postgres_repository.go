package patients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores patients in the patients table.
type PostgresRepository struct {
	pool rowQuerier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithExec(exec rowQuerier) *PostgresRepository {
	return &PostgresRepository{pool: exec}
}

const patientColumns = `id::text, name, email, password_hash, phone, gender, age,
	wallet_balance_cents, coins, COALESCE(otp_hash, ''), otp_expires_at, otp_attempts, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, p *Patient) error {
	query := `
		INSERT INTO patients (id, name, email, password_hash, phone, gender, age)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query, p.ID, p.Name, p.Email, p.PasswordHash, p.Phone, p.Gender, p.Age).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("patients: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	return r.getOne(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return r.getOne(ctx, `SELECT `+patientColumns+` FROM patients WHERE email = $1`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, arg string) (*Patient, error) {
	p, err := scanPatient(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Patient, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+patientColumns+` FROM patients ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("patients: scan failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("patients: count failed: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	query := `UPDATE patients SET otp_hash = $2, otp_expires_at = $3, otp_attempts = 0, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, "set otp", query, id, otpHash, expiresAt)
}

func (r *PostgresRepository) ClaimOTPAttempt(ctx context.Context, id string, maxAttempts int) (string, time.Time, error) {
	query := `
		UPDATE patients
		SET otp_attempts = otp_attempts + 1, updated_at = now()
		WHERE id = $1 AND otp_hash IS NOT NULL AND otp_expires_at IS NOT NULL AND otp_attempts < $2
		RETURNING otp_hash, otp_expires_at
	`
	var hash string
	var expires time.Time
	if err := r.pool.QueryRow(ctx, query, id, maxAttempts).Scan(&hash, &expires); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, ErrNotFound
		}
		return "", time.Time{}, fmt.Errorf("patients: claim otp attempt failed: %w", err)
	}
	return hash, expires, nil
}

func (r *PostgresRepository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE patients
		SET password_hash = $2, otp_hash = NULL, otp_expires_at = NULL, otp_attempts = 0, updated_at = now()
		WHERE id = $1
	`
	return r.execOne(ctx, "reset password", query, id, passwordHash)
}

func (r *PostgresRepository) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients SET otp_hash = NULL, otp_expires_at = NULL, otp_attempts = 0
		WHERE otp_expires_at IS NOT NULL AND otp_expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("patients: clear expired otps: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) execOne(ctx context.Context, action, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("patients: %s failed: %w", action, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.Phone, &p.Gender, &p.Age,
		&p.WalletBalanceCents, &p.Coins, &p.OTPHash, &p.OTPExpiresAt, &p.OTPAttempts, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

var _ Repository = (*PostgresRepository)(nil)
