package patients

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/careconnect/internal/http/middleware"
	"github.com/wolfman30/careconnect/internal/http/respond"
	"github.com/wolfman30/careconnect/internal/validation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Handler serves /api/patient.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type registerResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Patient *Patient `json:"patient"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*Session
}

// Register handles POST /api/patient/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "failed to register patient")
		return
	}
	respond.JSON(w, http.StatusCreated, registerResponse{Success: true, Message: "Patient registered successfully", Patient: p})
}

// Login handles POST /api/patient/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "login failed")
		return
	}
	respond.JSON(w, http.StatusOK, loginResponse{Success: true, Message: "Login successful", Session: session})
}

// Me handles GET /api/patient/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	p, err := h.svc.Get(r.Context(), claims.Subject)
	if err != nil {
		h.writeError(w, err, "failed to load profile")
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// ForgotPassword handles POST /api/patient/forgot-password. It answers 200
// whether or not the email is registered.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req); err != nil {
		h.writeError(w, err, "failed to start password reset")
		return
	}
	respond.Message(w, http.StatusOK, "If the email is registered, a reset code has been sent")
}

// ResetPassword handles POST /api/patient/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		h.writeError(w, err, "failed to reset password")
		return
	}
	respond.Message(w, http.StatusOK, "Password reset successfully")
}

// List handles GET /api/patient/all
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to list patients")
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// Count handles GET /api/patient/count
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Count(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to count patients")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int64{"count": n})
}

// Get handles GET /api/patient/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "failed to load patient")
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respond.Validation(w, verr)
	case errors.Is(err, ErrInvalidOTP):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailTaken):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		respond.Error(w, http.StatusInternalServerError, fallback)
	}
}
