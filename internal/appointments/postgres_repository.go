package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the appointments table.
type PostgresRepository struct {
	pool rowQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithExec(exec rowQuerier) *PostgresRepository {
	return &PostgresRepository{pool: exec}
}

const appointmentColumns = `id::text, speciality, doctor, doctor_email, name, email, phone, reason,
	appoint_date, appoint_time, scheduled_at, timezone, status, COALESCE(doctor_id::text, ''), COALESCE(user_id::text, ''),
	meeting_id, meeting_url, meeting_password, booking_ref, COALESCE(doctor_ref, ''), created_at, updated_at`

// Create inserts the appointment. A duplicate booking_ref or doctor_ref maps to
// ErrSlotTaken.
func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments (id, speciality, doctor, doctor_email, name, email, phone, reason,
			appoint_date, appoint_time, scheduled_at, timezone, status, doctor_id, user_id,
			meeting_id, meeting_url, meeting_password, booking_ref, doctor_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::date, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		appt.ID,
		appt.Speciality,
		appt.Doctor,
		appt.DoctorEmail,
		appt.Name,
		appt.Email,
		appt.Phone,
		appt.Reason,
		appt.AppointDate,
		appt.AppointTime,
		appt.ScheduledAt,
		appt.Timezone,
		string(appt.Status),
		nullable(appt.DoctorID),
		nullable(appt.UserID),
		appt.MeetingID,
		appt.MeetingURL,
		appt.MeetingPassword,
		appt.BookingRef,
		nullable(appt.DoctorRef),
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (*Appointment, error) {
	query := `DELETE FROM appointments WHERE id = $1 RETURNING ` + appointmentColumns
	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: delete failed: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("appointments: count failed: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ExistsByBookingRef(ctx context.Context, ref string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM appointments WHERE booking_ref = $1 OR doctor_ref = $1)`
	if err := r.pool.QueryRow(ctx, query, ref).Scan(&exists); err != nil {
		return false, fmt.Errorf("appointments: booking ref lookup failed: %w", err)
	}
	return exists, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt        Appointment
		appointDate time.Time
		status      string
	)
	if err := row.Scan(
		&appt.ID,
		&appt.Speciality,
		&appt.Doctor,
		&appt.DoctorEmail,
		&appt.Name,
		&appt.Email,
		&appt.Phone,
		&appt.Reason,
		&appointDate,
		&appt.AppointTime,
		&appt.ScheduledAt,
		&appt.Timezone,
		&status,
		&appt.DoctorID,
		&appt.UserID,
		&appt.MeetingID,
		&appt.MeetingURL,
		&appt.MeetingPassword,
		&appt.BookingRef,
		&appt.DoctorRef,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	appt.AppointDate = appointDate.Format(time.DateOnly)
	appt.Status = Status(status)
	return &appt, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Repository = (*PostgresRepository)(nil)
