package appointments

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/careconnect/internal/http/respond"
	"github.com/wolfman30/careconnect/internal/validation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// IdempotencyHeader carries the client's retry key on create.
const IdempotencyHeader = "Idempotency-Key"

type booker interface {
	Book(ctx context.Context, req CreateRequest, idempotencyKey string) (*BookingResult, error)
	List(ctx context.Context) ([]*Appointment, error)
	Get(ctx context.Context, id string) (*Appointment, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// Handler serves /api/appoint.
type Handler struct {
	svc    booker
	logger *logging.Logger
}

// NewHandler creates a new appointments handler
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	return newHandler(svc, logger)
}

func newHandler(svc booker, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// CreateResponse is the body of a successful booking.
type CreateResponse struct {
	Success       bool          `json:"success"`
	Message       string        `json:"message"`
	Appointment   *Appointment  `json:"appointment"`
	Notifications Notifications `json:"notifications"`
}

// CountResponse is the body of GET /count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// Create handles POST /api/appoint/create
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Book(r.Context(), req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.writeError(w, err, "failed to book appointment")
		return
	}

	status, message := http.StatusCreated, "Appointment booked successfully"
	if result.Replayed {
		status, message = http.StatusOK, "Appointment already booked"
	}
	respond.JSON(w, status, CreateResponse{
		Success:       true,
		Message:       message,
		Appointment:   result.Appointment,
		Notifications: result.Notifications,
	})
}

// List handles GET /api/appoint/all
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	appts, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to list appointments")
		return
	}
	respond.JSON(w, http.StatusOK, appts)
}

// Get handles GET /api/appoint/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "failed to load appointment")
		return
	}
	respond.JSON(w, http.StatusOK, appt)
}

// Delete handles DELETE /api/appoint/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "failed to delete appointment")
		return
	}
	respond.Message(w, http.StatusOK, "Appointment deleted successfully")
}

// Count handles GET /api/appoint/count
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Count(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to count appointments")
		return
	}
	respond.JSON(w, http.StatusOK, CountResponse{Count: n})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respond.Validation(w, verr)
	case errors.Is(err, ErrInvalidTimeFormat), errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidTimezone):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrSlotTaken):
		respond.Error(w, http.StatusConflict, ErrSlotTaken.Error())
	case errors.Is(err, ErrBookingInProgress):
		respond.Error(w, http.StatusConflict, ErrBookingInProgress.Error())
	case errors.Is(err, ErrProvisioning):
		h.logger.Error(fallback, "error", err)
		respond.Error(w, http.StatusBadGateway, ErrProvisioning.Error())
	default:
		h.logger.Error(fallback, "error", err)
		respond.Error(w, http.StatusInternalServerError, fallback)
	}
}
