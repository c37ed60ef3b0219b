package doctors

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/careconnect/internal/http/middleware"
	"github.com/wolfman30/careconnect/internal/http/respond"
	"github.com/wolfman30/careconnect/internal/validation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Handler serves /api/doctor.
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
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Doctor  *Doctor `json:"doctor"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*Session
}

// Register handles POST /api/doctor/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "failed to register doctor")
		return
	}
	respond.JSON(w, http.StatusCreated, registerResponse{Success: true, Message: "Doctor registered successfully", Doctor: d})
}

// Login handles POST /api/doctor/login
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

// List handles GET /api/doctor/all
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to list doctors")
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// Count handles GET /api/doctor/count
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Count(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to count doctors")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int64{"count": n})
}

// Me handles GET /api/doctor/me for the authenticated doctor.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	d, err := h.svc.Get(r.Context(), claims.Subject)
	if err != nil {
		h.writeError(w, err, "failed to load profile")
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

// Get handles GET /api/doctor/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "failed to load doctor")
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

// Document handles GET /api/doctor/{id}/document
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	h.serveBlob(w, r, BlobDocument)
}

// Image handles GET /api/doctor/{id}/image
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	h.serveBlob(w, r, BlobImage)
}

func (h *Handler) serveBlob(w http.ResponseWriter, r *http.Request, kind string) {
	data, err := h.svc.Blob(r.Context(), chi.URLParam(r, "id"), kind)
	if err != nil {
		h.writeError(w, err, "failed to load "+kind)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Delete handles DELETE /api/doctor/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "failed to delete doctor")
		return
	}
	respond.Message(w, http.StatusOK, "Doctor deleted successfully")
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respond.Validation(w, verr)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoBlob):
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
