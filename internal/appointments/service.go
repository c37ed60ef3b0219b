package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/careconnect/internal/meeting"
	"github.com/wolfman30/careconnect/internal/notify"
	"github.com/wolfman30/careconnect/internal/observability/metrics"
	"github.com/wolfman30/careconnect/internal/validation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

var appointmentsTracer = otel.Tracer("careconnect.internal.appointments")

// MeetingProvisioner creates and removes the video meeting attached to a booking.
type MeetingProvisioner interface {
	CreateMeeting(ctx context.Context, req meeting.MeetingRequest) (*meeting.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
}

// Notifier emails the patient and the doctor about a new booking.
type Notifier interface {
	SendBookingEmails(ctx context.Context, n notify.BookingNotice) notify.BookingResult
}

// Service books appointments: provision the meeting, store the record, then
// notify. A booking that fails before the store step leaves nothing behind.
type Service struct {
	repo      Repository
	meetings  MeetingProvisioner
	notifier  Notifier
	locker    SlotLocker
	idem      IdempotencyStore
	metrics   *metrics.Metrics
	logger    *logging.Logger
	clinicLoc *time.Location
	lockTTL   time.Duration
	keyWait   time.Duration
	now       func() time.Time
}

// keyPollInterval is how often a request retries a held idempotency key.
const keyPollInterval = 50 * time.Millisecond

// NewService constructs a booking service with in-process slot locking.
func NewService(repo Repository, meetings MeetingProvisioner, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if meetings == nil {
		panic("appointments: meeting provisioner required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:      repo,
		meetings:  meetings,
		locker:    NewMemorySlotLocker(),
		logger:    logger,
		clinicLoc: time.UTC,
		lockTTL:   DefaultLockTTL,
		keyWait:   DefaultLockTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithLocker replaces the in-process slot locker, typically with RedisSlotLocker.
func (s *Service) WithLocker(l SlotLocker) *Service {
	if l != nil {
		s.locker = l
	}
	return s
}

func (s *Service) WithIdempotency(store IdempotencyStore) *Service {
	s.idem = store
	return s
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// WithClinicLocation sets the zone used when a request names none.
func (s *Service) WithClinicLocation(loc *time.Location) *Service {
	if loc != nil {
		s.clinicLoc = loc
	}
	return s
}

// Book validates req and runs the booking flow. idempotencyKey may be empty.
func (s *Service) Book(ctx context.Context, req CreateRequest, idempotencyKey string) (*BookingResult, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.book")
	defer span.End()

	result, outcome, err := s.book(ctx, req, strings.TrimSpace(idempotencyKey))
	s.metrics.ObserveBooking(outcome)
	span.SetAttributes(attribute.String("careconnect.booking.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}
	span.SetAttributes(attribute.String("careconnect.appointment_id", result.Appointment.ID))
	return result, nil
}

func (s *Service) book(ctx context.Context, req CreateRequest, idemKey string) (*BookingResult, string, error) {
	if err := validation.Struct(req); err != nil {
		return nil, "invalid", err
	}
	loc, err := ResolveLocation(req.Timezone, s.clinicLoc)
	if err != nil {
		return nil, "invalid", err
	}
	at, err := NormalizeSlot(req.AppointDate, req.AppointTime, loc)
	if err != nil {
		return nil, "invalid", err
	}

	if idemKey != "" && s.idem != nil {
		releaseKey, err := s.awaitKey(ctx, idemKey)
		if errors.Is(err, ErrBookingInProgress) {
			return nil, "in_progress", err
		}
		if err != nil {
			return nil, "error", err
		}
		defer s.release(ctx, releaseKey, "idempotency_key", idemKey)

		replay, err := s.replay(ctx, idemKey)
		if err != nil {
			return nil, "error", err
		}
		if replay != nil {
			return replay, "replayed", nil
		}
	}

	ref, doctorRef := SlotRefs(req.DocEmail, req.Doctor, at)
	for _, r := range []string{ref, doctorRef} {
		if r == "" {
			continue
		}
		releaseSlot, err := s.locker.Acquire(ctx, r, s.lockTTL)
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return nil, "slot_taken", err
			}
			return nil, "error", err
		}
		defer s.release(ctx, releaseSlot, "booking_ref", r)

		exists, err := s.repo.ExistsByBookingRef(ctx, r)
		if err != nil {
			return nil, "error", err
		}
		if exists {
			return nil, "slot_taken", ErrSlotTaken
		}
	}

	mtg, err := s.provision(ctx, req, at, loc)
	if err != nil {
		return nil, "provision_failed", err
	}

	now := s.now()
	appt := &Appointment{
		ID:              uuid.NewString(),
		Speciality:      strings.TrimSpace(req.Speciality),
		Doctor:          strings.TrimSpace(req.Doctor),
		DoctorEmail:     strings.TrimSpace(req.DocEmail),
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		Phone:           strings.TrimSpace(req.Phone),
		Reason:          strings.TrimSpace(req.Reason),
		AppointDate:     at.Format(time.DateOnly),
		AppointTime:     req.AppointTime,
		ScheduledAt:     at,
		Timezone:        loc.String(),
		Status:          StatusPending,
		DoctorID:        req.DoctorID,
		UserID:          req.UserID,
		MeetingID:       mtg.ID,
		MeetingURL:      mtg.JoinURL,
		MeetingPassword: mtg.Password,
		BookingRef:      ref,
		DoctorRef:       doctorRef,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		s.compensate(ctx, mtg.ID, err)
		if errors.Is(err, ErrSlotTaken) {
			return nil, "slot_taken", err
		}
		return nil, "persist_failed", err
	}
	s.logger.Info("appointment booked", "appointment_id", appt.ID, "meeting_id", appt.MeetingID, "scheduled_at", appt.ScheduledAt)

	result := &BookingResult{
		Appointment:   appt,
		Notifications: s.notify(ctx, appt),
	}
	if idemKey != "" && s.idem != nil {
		if err := s.idem.Save(context.WithoutCancel(ctx), idemKey, appt.ID); err != nil {
			s.logger.Warn("idempotency key not recorded", "error", err, "appointment_id", appt.ID)
		}
	}
	return result, "created", nil
}

// awaitKey serializes requests sharing an idempotency key. A retry that
// races the original waits for it to finish and then replays its result.
func (s *Service) awaitKey(ctx context.Context, key string) (ReleaseFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, s.keyWait)
	defer cancel()
	ticker := time.NewTicker(keyPollInterval)
	defer ticker.Stop()
	for {
		release, err := s.locker.Acquire(ctx, idempotencyLockRef(key), s.lockTTL)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, ErrSlotTaken) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ErrBookingInProgress
		case <-ticker.C:
		}
	}
}

func idempotencyLockRef(key string) string {
	return "idempotency:" + key
}

func (s *Service) release(ctx context.Context, release ReleaseFunc, kind, ref string) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("lock release failed", "error", err, kind, ref)
	}
}

func (s *Service) replay(ctx context.Context, key string) (*BookingResult, error) {
	if key == "" || s.idem == nil {
		return nil, nil
	}
	id, found, err := s.idem.Lookup(ctx, key)
	if err != nil || !found {
		return nil, err
	}
	appt, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		// The earlier booking was deleted since; book again.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &BookingResult{
		Appointment:   appt,
		Notifications: Notifications{Patient: string(notify.StatusSkipped), Doctor: string(notify.StatusSkipped)},
		Replayed:      true,
	}, nil
}

func (s *Service) provision(ctx context.Context, req CreateRequest, at time.Time, loc *time.Location) (*meeting.Meeting, error) {
	started := time.Now()
	mtg, err := s.meetings.CreateMeeting(ctx, meeting.MeetingRequest{
		Topic:     fmt.Sprintf("%s consultation with Dr. %s", strings.TrimSpace(req.Speciality), strings.TrimSpace(req.Doctor)),
		Agenda:    req.Reason,
		Invitee:   req.Email,
		StartTime: at,
		Timezone:  loc.String(),
	})
	elapsed := time.Since(started).Seconds()
	if err != nil {
		s.metrics.ObserveProvisioning("error", elapsed)
		s.logger.Error("meeting provisioning failed", "error", err, "doctor", req.Doctor)
		return nil, fmt.Errorf("%w: %w", ErrProvisioning, err)
	}
	s.metrics.ObserveProvisioning("ok", elapsed)
	return mtg, nil
}

// compensate removes a meeting whose appointment could not be stored.
func (s *Service) compensate(ctx context.Context, meetingID string, cause error) {
	s.logger.Error("appointment save failed, deleting meeting", "error", cause, "meeting_id", meetingID)
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.meetings.DeleteMeeting(cleanupCtx, meetingID); err != nil {
		s.logger.Error("orphaned meeting could not be deleted", "error", err, "meeting_id", meetingID)
	}
}

func (s *Service) notify(ctx context.Context, appt *Appointment) Notifications {
	if s.notifier == nil {
		return Notifications{Patient: string(notify.StatusSkipped), Doctor: string(notify.StatusSkipped)}
	}
	res := s.notifier.SendBookingEmails(ctx, notify.BookingNotice{
		AppointmentID:   appt.ID,
		BookingRef:      appt.BookingRef,
		PatientName:     appt.Name,
		PatientEmail:    appt.Email,
		DoctorName:      appt.Doctor,
		DoctorEmail:     appt.DoctorEmail,
		Speciality:      appt.Speciality,
		Reason:          appt.Reason,
		ScheduledAt:     appt.ScheduledAt,
		MeetingID:       appt.MeetingID,
		MeetingURL:      appt.MeetingURL,
		MeetingPassword: appt.MeetingPassword,
	})
	return Notifications{Patient: string(res.Patient), Doctor: string(res.Doctor)}
}

// List returns every appointment, newest first.
func (s *Service) List(ctx context.Context) ([]*Appointment, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete removes the appointment and, best effort, its meeting.
func (s *Service) Delete(ctx context.Context, id string) error {
	appt, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if appt.MeetingID != "" {
		if err := s.meetings.DeleteMeeting(ctx, appt.MeetingID); err != nil {
			s.logger.Warn("meeting delete failed after cancellation", "error", err, "appointment_id", id, "meeting_id", appt.MeetingID)
		}
	}
	s.logger.Info("appointment deleted", "appointment_id", id)
	return nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
