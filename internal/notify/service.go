package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/careconnect/internal/events"
	"github.com/wolfman30/careconnect/internal/observability/metrics"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// EmailEventType is the outbox event type for a deferred email send.
const EmailEventType = "email.send.v1"

// DeliveryStatus reports what happened to one recipient's email.
type DeliveryStatus string

const (
	StatusSent    DeliveryStatus = "sent"
	StatusQueued  DeliveryStatus = "queued"
	StatusFailed  DeliveryStatus = "failed"
	StatusSkipped DeliveryStatus = "skipped"
)

// BookingResult is the per-recipient outcome of the booking emails.
type BookingResult struct {
	Patient DeliveryStatus `json:"patient"`
	Doctor  DeliveryStatus `json:"doctor"`
}

type outboxWriter interface {
	Insert(ctx context.Context, eventType string, payload any) (uuid.UUID, error)
}

// Service renders and sends patient and doctor notifications. Sends that fail
// are written to the outbox when one is configured.
type Service struct {
	sender  EmailSender
	outbox  outboxWriter
	metrics *metrics.Metrics
	logger  *logging.Logger
}

func NewService(sender EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{sender: sender, logger: logger}
}

// WithOutbox enables deferred retry of failed sends.
func (s *Service) WithOutbox(outbox outboxWriter) *Service {
	s.outbox = outbox
	return s
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// SendBookingEmails emails the patient, then the doctor. A failure for one
// recipient does not prevent the other send.
func (s *Service) SendBookingEmails(ctx context.Context, n BookingNotice) BookingResult {
	result := BookingResult{Patient: StatusSkipped, Doctor: StatusSkipped}

	if msg, err := RenderPatientConfirmation(n); err != nil {
		s.logger.Error("render patient email failed", "error", err, "appointment_id", n.AppointmentID)
		result.Patient = StatusFailed
	} else {
		result.Patient = s.deliver(ctx, "patient", msg)
	}

	if strings.TrimSpace(n.DoctorEmail) == "" {
		s.metrics.ObserveEmail("doctor", string(StatusSkipped))
		return result
	}
	if msg, err := RenderDoctorNotification(n); err != nil {
		s.logger.Error("render doctor email failed", "error", err, "appointment_id", n.AppointmentID)
		result.Doctor = StatusFailed
	} else {
		result.Doctor = s.deliver(ctx, "doctor", msg)
	}
	return result
}

// SendPasswordReset emails a one-time reset code. Unlike booking emails it
// returns the send error to the caller.
func (s *Service) SendPasswordReset(ctx context.Context, to, name, code string, expiresAt time.Time) error {
	msg, err := RenderPasswordReset(to, name, code, expiresAt)
	if err != nil {
		return err
	}
	if status := s.deliver(ctx, "otp", msg); status == StatusFailed {
		return fmt.Errorf("notify: password reset email to %s failed", to)
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, kind string, msg EmailMessage) DeliveryStatus {
	if s.sender == nil {
		s.metrics.ObserveEmail(kind, string(StatusSkipped))
		return StatusSkipped
	}
	err := s.sender.Send(ctx, msg)
	if err == nil {
		s.metrics.ObserveEmail(kind, string(StatusSent))
		return StatusSent
	}
	s.logger.Warn("email send failed", "error", err, "recipient_kind", kind, "to", msg.To)

	if s.outbox != nil {
		// The request context may already be cancelled by the failed send.
		enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_, qerr := s.outbox.Insert(enqueueCtx, EmailEventType, msg)
		if qerr == nil {
			s.metrics.ObserveEmail(kind, string(StatusQueued))
			return StatusQueued
		}
		s.logger.Error("email outbox enqueue failed", "error", qerr, "recipient_kind", kind)
	}
	s.metrics.ObserveEmail(kind, string(StatusFailed))
	return StatusFailed
}

// Handle delivers an outbox entry of EmailEventType. It satisfies
// events.DeliveryHandler.
func (s *Service) Handle(ctx context.Context, entry events.OutboxEntry) error {
	if entry.Type != EmailEventType {
		return fmt.Errorf("notify: unsupported outbox event %q", entry.Type)
	}
	if s.sender == nil {
		return fmt.Errorf("notify: no email sender configured")
	}
	var msg EmailMessage
	if err := json.Unmarshal(entry.Payload, &msg); err != nil {
		return fmt.Errorf("notify: decode outbox email: %w", err)
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return err
	}
	s.metrics.ObserveEmail("retry", string(StatusSent))
	return nil
}

var _ events.DeliveryHandler = (*Service)(nil)
