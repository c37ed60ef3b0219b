package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var appointmentRowColumns = []string{
	"id", "speciality", "doctor", "doctor_email", "name", "email", "phone", "reason",
	"appoint_date", "appoint_time", "scheduled_at", "timezone", "status", "doctor_id", "user_id",
	"meeting_id", "meeting_url", "meeting_password", "booking_ref", "doctor_ref", "created_at", "updated_at",
}

func addAppointmentRow(rows *pgxmock.Rows, id string, created time.Time) *pgxmock.Rows {
	scheduled := time.Date(2026, 3, 14, 21, 15, 0, 0, time.UTC)
	return rows.AddRow(id, "Cardiology", "Ada Grey", "ada@example.com", "Pat Doe", "pat@example.com", "", "checkup",
		time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), "9:15 PM", scheduled, "UTC", "Pending", "", "",
		"8123", "https://zoom.us/j/8123", "pw", "ref-"+id, "doc-"+id, created, created)
}

// optionalText matches a nullable text argument.
type optionalText struct{ want string }

func (o optionalText) Match(v any) bool {
	s, ok := v.(*string)
	if !ok {
		return false
	}
	if o.want == "" {
		return s == nil
	}
	return s != nil && *s == o.want
}

func insertArgs(bookingRef, doctorRef string) []any {
	args := make([]any, 0, 20)
	for i := 0; i < 18; i++ {
		args = append(args, pgxmock.AnyArg())
	}
	return append(args, bookingRef, optionalText{want: doctorRef})
}

func TestPostgresRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO appointments").WithArgs(insertArgs("ref", "doc")...).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	appt := &Appointment{ID: "11111111-1111-1111-1111-111111111111", BookingRef: "ref", DoctorRef: "doc", Status: StatusPending, AppointDate: "2026-03-14"}
	if err := repo.Create(context.Background(), appt); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !appt.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at to be populated, got %v", appt.CreatedAt)
	}

	mock.ExpectQuery("INSERT INTO appointments").WithArgs(insertArgs("ref-2", "")...).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	if err := repo.Create(context.Background(), &Appointment{ID: "22222222-2222-2222-2222-222222222222", BookingRef: "ref-2", Status: StatusPending, AppointDate: "2026-03-14"}); err != nil {
		t.Fatalf("create without doctor ref failed: %v", err)
	}

	mock.ExpectQuery("INSERT INTO appointments").WillReturnError(&pgconn.PgError{Code: "23505"})
	if err := repo.Create(context.Background(), appt); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositoryReads(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	repo := newPostgresRepositoryWithExec(mock)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .* FROM appointments WHERE id").WithArgs("a1").
		WillReturnRows(addAppointmentRow(pgxmock.NewRows(appointmentRowColumns), "a1", now))
	appt, err := repo.GetByID(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if appt.AppointDate != "2026-03-14" || appt.Status != StatusPending || appt.MeetingID != "8123" || appt.DoctorRef != "doc-a1" {
		t.Fatalf("unexpected appointment %+v", appt)
	}

	mock.ExpectQuery("SELECT .* FROM appointments WHERE id").WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns))
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rows := pgxmock.NewRows(appointmentRowColumns)
	addAppointmentRow(rows, "a2", now)
	addAppointmentRow(rows, "a1", now.Add(-time.Hour))
	mock.ExpectQuery("SELECT .* FROM appointments ORDER BY created_at DESC").WillReturnRows(rows)
	list, err := repo.List(ctx)
	if err != nil || len(list) != 2 || list[0].ID != "a2" {
		t.Fatalf("unexpected list %v %+v", err, list)
	}

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	if n, err := repo.Count(ctx); err != nil || n != 2 {
		t.Fatalf("unexpected count %d %v", n, err)
	}

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM appointments WHERE booking_ref = \$1 OR doctor_ref = \$1\)`).
		WithArgs("doc-a1").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	if ok, err := repo.ExistsByBookingRef(ctx, "doc-a1"); err != nil || !ok {
		t.Fatalf("expected ref to exist, got %v %v", ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositoryDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	repo := newPostgresRepositoryWithExec(mock)

	mock.ExpectQuery("DELETE FROM appointments").WithArgs("a1").
		WillReturnRows(addAppointmentRow(pgxmock.NewRows(appointmentRowColumns), "a1", time.Now()))
	appt, err := repo.Delete(context.Background(), "a1")
	if err != nil || appt.MeetingID != "8123" {
		t.Fatalf("delete: %v %+v", err, appt)
	}

	mock.ExpectQuery("DELETE FROM appointments").WithArgs("nope").WillReturnRows(pgxmock.NewRows(appointmentRowColumns))
	if _, err := repo.Delete(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
