package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresRepositoryWrites(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	repo := newPostgresRepositoryWithExec(mock)
	ctx := context.Background()

	now := time.Now().UTC()
	e := &Entry{ID: "p1", Name: "Consult", Type: TypeConsultation, BasePriceCents: 5000, Currency: "usd", IsActive: true}
	mock.ExpectQuery("INSERT INTO pricing").
		WithArgs("p1", "Consult", TypeConsultation, "", int64(5000), e.DiscountedPriceCents, "usd", 0, true).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !e.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at to be populated")
	}

	mock.ExpectExec("UPDATE pricing SET is_active = false").WithArgs("p1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := repo.Deactivate(ctx, "p1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	mock.ExpectExec("DELETE FROM pricing").WithArgs("ghost").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	if err := repo.Delete(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
