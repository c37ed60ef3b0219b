package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger keeps transactions in patient_transactions and balances on
// the patients row.
type PostgresLedger struct {
	db db
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	if pool == nil {
		panic("payments: pgx pool required")
	}
	return &PostgresLedger{db: pool}
}

func newPostgresLedgerWithDB(d db) *PostgresLedger {
	return &PostgresLedger{db: d}
}

const insertTransactionSQL = `
	INSERT INTO patient_transactions (id, patient_id, type, amount_cents, coins, currency, status, payment_method, external_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
	RETURNING created_at
`

type rowQueryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertTransaction(ctx context.Context, q rowQueryer, tx *Transaction) error {
	return q.QueryRow(ctx, insertTransactionSQL,
		tx.ID, tx.PatientID, tx.Type, tx.AmountCents, tx.Coins, tx.Currency, tx.Status, tx.PaymentMethod, tx.ExternalID,
	).Scan(&tx.CreatedAt)
}

func (l *PostgresLedger) CreateTransaction(ctx context.Context, tx *Transaction) error {
	if err := insertTransaction(ctx, l.db, tx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrPatientNotFound
		}
		return fmt.Errorf("payments: insert transaction: %w", err)
	}
	return nil
}

func (l *PostgresLedger) CompleteTopUp(ctx context.Context, transactionID, externalID string) (*Transaction, bool, error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("payments: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := scanTransaction(tx.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM patient_transactions
		WHERE id = $1 AND type = 'wallet_topup'
		FOR UPDATE
	`, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrTransactionNotFound
		}
		return nil, false, fmt.Errorf("payments: load top-up: %w", err)
	}
	if t.Status == StatusSucceeded {
		return t, false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE patient_transactions
		SET status = 'succeeded', external_id = COALESCE(NULLIF($2, ''), external_id)
		WHERE id = $1
	`, transactionID, externalID); err != nil {
		return nil, false, fmt.Errorf("payments: mark top-up succeeded: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE patients
		SET wallet_balance_cents = wallet_balance_cents + $2, updated_at = now()
		WHERE id = $1
	`, t.PatientID, t.AmountCents); err != nil {
		return nil, false, fmt.Errorf("payments: credit wallet: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("payments: commit top-up: %w", err)
	}

	t.Status = StatusSucceeded
	if externalID != "" {
		t.ExternalID = externalID
	}
	return t, true, nil
}

func (l *PostgresLedger) FailTransaction(ctx context.Context, transactionID string) error {
	tag, err := l.db.Exec(ctx, `
		UPDATE patient_transactions SET status = 'failed'
		WHERE id = $1 AND status = 'pending'
	`, transactionID)
	if err != nil {
		return fmt.Errorf("payments: fail transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (l *PostgresLedger) PurchaseCoins(ctx context.Context, t *Transaction) (Balance, error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return Balance{}, fmt.Errorf("payments: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var bal Balance
	err = tx.QueryRow(ctx, `
		UPDATE patients
		SET wallet_balance_cents = wallet_balance_cents - $2, coins = coins + $3, updated_at = now()
		WHERE id = $1 AND wallet_balance_cents >= $2
		RETURNING wallet_balance_cents, coins
	`, t.PatientID, t.AmountCents, t.Coins).Scan(&bal.WalletBalanceCents, &bal.Coins)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists int
		if err := tx.QueryRow(ctx, `SELECT 1 FROM patients WHERE id = $1`, t.PatientID).Scan(&exists); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Balance{}, ErrPatientNotFound
			}
			return Balance{}, fmt.Errorf("payments: load patient: %w", err)
		}
		return Balance{}, ErrInsufficientFunds
	}
	if err != nil {
		return Balance{}, fmt.Errorf("payments: debit wallet: %w", err)
	}

	if err := insertTransaction(ctx, tx, t); err != nil {
		return Balance{}, fmt.Errorf("payments: insert transaction: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Balance{}, fmt.Errorf("payments: commit coin purchase: %w", err)
	}
	return bal, nil
}

func (l *PostgresLedger) ListTransactions(ctx context.Context, patientID string) ([]*Transaction, error) {
	rows, err := l.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM patient_transactions
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("payments: list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]*Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("payments: scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const transactionColumns = `id::text, patient_id::text, type, amount_cents, coins, currency, status,
	payment_method, COALESCE(external_id, ''), created_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	if err := row.Scan(
		&t.ID, &t.PatientID, &t.Type, &t.AmountCents, &t.Coins, &t.Currency, &t.Status,
		&t.PaymentMethod, &t.ExternalID, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
