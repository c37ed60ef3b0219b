package patients

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresRepositoryOTPUpdates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	repo := newPostgresRepositoryWithExec(mock)
	ctx := context.Background()
	exp := time.Now().Add(OTPTTL)

	mock.ExpectExec("UPDATE patients SET otp_hash = \\$2, otp_expires_at = \\$3, otp_attempts = 0").WithArgs("p1", "hash", exp).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := repo.SetOTP(ctx, "p1", "hash", exp); err != nil {
		t.Fatalf("set otp: %v", err)
	}

	mock.ExpectQuery("SET otp_attempts = otp_attempts \\+ 1").WithArgs("p1", MaxOTPAttempts).
		WillReturnRows(pgxmock.NewRows([]string{"otp_hash", "otp_expires_at"}).AddRow("hash", exp))
	hash, gotExp, err := repo.ClaimOTPAttempt(ctx, "p1", MaxOTPAttempts)
	if err != nil || hash != "hash" || !gotExp.Equal(exp) {
		t.Fatalf("claim otp attempt: %q %v %v", hash, gotExp, err)
	}

	mock.ExpectQuery("otp_attempts < \\$2").WithArgs("p1", MaxOTPAttempts).
		WillReturnRows(pgxmock.NewRows([]string{"otp_hash", "otp_expires_at"}))
	if _, _, err := repo.ClaimOTPAttempt(ctx, "p1", MaxOTPAttempts); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound once attempts run out, got %v", err)
	}

	mock.ExpectExec("UPDATE patients").WithArgs("ghost", "newhash").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	if err := repo.ResetPassword(ctx, "ghost", "newhash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Now()
	mock.ExpectExec("UPDATE patients SET otp_hash = NULL").WithArgs(now).WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	n, err := repo.ClearExpiredOTPs(ctx, now)
	if err != nil || n != 3 {
		t.Fatalf("clear expired: %d %v", n, err)
	}

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))
	if c, err := repo.Count(ctx); err != nil || c != 7 {
		t.Fatalf("count: %d %v", c, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
