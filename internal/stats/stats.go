// Package stats builds the admin dashboard summary.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Appointment statuses reported on the dashboard.
var appointmentStatuses = []string{"Pending", "Confirmed", "Completed", "Cancelled"}

// Summary is the payload of GET /api/admin/stats.
type Summary struct {
	Doctors              int64            `json:"doctors"`
	Patients             int64            `json:"patients"`
	Admins               int64            `json:"admins"`
	Appointments         int64            `json:"appointments"`
	AppointmentsByStatus map[string]int64 `json:"appointmentsByStatus,omitempty"`
	ActivePricing        int64            `json:"activePricing"`
	GeneratedAt          time.Time        `json:"generatedAt"`
}

// AppointmentCounter counts appointments held outside Postgres.
type AppointmentCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Repository runs the dashboard queries over database/sql.
type Repository struct {
	db           *sql.DB
	appointments AppointmentCounter
	now          func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		panic("stats: sql db required")
	}
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// WithAppointmentCounter takes the appointment total from c instead of the
// appointments table. The per-status breakdown is then omitted.
func (r *Repository) WithAppointmentCounter(c AppointmentCounter) *Repository {
	r.appointments = c
	return r
}

func (r *Repository) Summary(ctx context.Context) (*Summary, error) {
	s := &Summary{GeneratedAt: r.now()}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM doctors),
			(SELECT COUNT(*) FROM patients),
			(SELECT COUNT(*) FROM admins WHERE is_active),
			(SELECT COUNT(*) FROM appointments),
			(SELECT COUNT(*) FROM pricing WHERE is_active)
	`).Scan(&s.Doctors, &s.Patients, &s.Admins, &s.Appointments, &s.ActivePricing)
	if err != nil {
		return nil, fmt.Errorf("stats: totals: %w", err)
	}

	if r.appointments != nil {
		n, err := r.appointments.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("stats: count appointments: %w", err)
		}
		s.Appointments = n
		return s, nil
	}

	byStatus, err := r.appointmentsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	s.AppointmentsByStatus = byStatus
	return s, nil
}

func (r *Repository) appointmentsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM appointments
		WHERE status = ANY($1)
		GROUP BY status
	`, pq.Array(appointmentStatuses))
	if err != nil {
		return nil, fmt.Errorf("stats: appointments by status: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64, len(appointmentStatuses))
	for _, status := range appointmentStatuses {
		out[status] = 0
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("stats: scan status row: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
