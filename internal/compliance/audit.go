// Package compliance records who touched patient data and who changed
// administrative state.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of compliance event.
type AuditEventType string

const (
	// EventPatientViewed is logged when staff read a single patient record.
	EventPatientViewed AuditEventType = "phi.patient_viewed"
	// EventPatientListed is logged when staff list patient records.
	EventPatientListed AuditEventType = "phi.patient_listed"
	// EventAppointmentDeleted is logged when an appointment is removed.
	EventAppointmentDeleted AuditEventType = "phi.appointment_deleted"
	EventDoctorDeleted      AuditEventType = "admin.doctor_deleted"
	EventAdminCreated       AuditEventType = "admin.admin_created"
	EventAdminPermissions   AuditEventType = "admin.permissions_updated"
	EventAdminDeactivated   AuditEventType = "admin.admin_deactivated"
	// EventPricingChanged covers create, update, deactivate and delete.
	EventPricingChanged AuditEventType = "admin.pricing_changed"
)

// AuditEvent represents an immutable compliance audit record.
type AuditEvent struct {
	ID         string          `json:"id"`
	EventType  AuditEventType  `json:"event_type"`
	ActorID    string          `json:"actor_id,omitempty"`
	ActorRole  string          `json:"actor_role,omitempty"`
	Method     string          `json:"method"`
	Path       string          `json:"path"`
	ResourceID string          `json:"resource_id,omitempty"`
	Status     int             `json:"status"`
	RemoteIP   string          `json:"remote_ip,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AuditService handles compliance audit logging.
type AuditService struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// LogEvent records a compliance audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	details := event.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO compliance_audit_events (
			id, event_type, actor_id, actor_role, method, path,
			resource_id, status, remote_ip, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.ActorID),
		nullString(event.ActorRole),
		event.Method,
		event.Path,
		nullString(event.ResourceID),
		event.Status,
		nullString(event.RemoteIP),
		[]byte(details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}

	return nil
}

// QueryEvents retrieves audit events with filters, newest first.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, actor_id, actor_role, method, path,
			   resource_id, status, remote_ip, details, created_at
		FROM compliance_audit_events
		WHERE 1 = 1
	`
	var args []interface{}
	argIdx := 1

	if filter.ActorID != "" {
		query += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, filter.ActorID)
		argIdx++
	}
	if filter.ResourceID != "" {
		query += fmt.Sprintf(" AND resource_id = $%d", argIdx)
		args = append(args, filter.ResourceID)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := []AuditEvent{}
	for rows.Next() {
		var e AuditEvent
		var actorID, actorRole, resourceID, remoteIP sql.NullString
		var details []byte
		err := rows.Scan(
			&e.ID, &e.EventType, &actorID, &actorRole, &e.Method, &e.Path,
			&resourceID, &e.Status, &remoteIP, &details, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.ActorID = actorID.String
		e.ActorRole = actorRole.String
		e.ResourceID = resourceID.String
		e.RemoteIP = remoteIP.String
		e.Details = json.RawMessage(details)
		events = append(events, e)
	}

	return events, rows.Err()
}

const maxQueryLimit = 500

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	ActorID    string
	ResourceID string
	EventType  AuditEventType
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
	Offset     int
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
