package admins

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/careconnect/internal/http/middleware"
	"github.com/wolfman30/careconnect/internal/http/respond"
	"github.com/wolfman30/careconnect/internal/validation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Handler serves /api/admin.
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

type adminResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Admin   *Admin `json:"admin"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*Session
}

// Login handles POST /api/admin/login
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

// Create handles POST /api/admin/create
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "failed to create admin")
		return
	}
	respond.JSON(w, http.StatusCreated, adminResponse{Success: true, Message: "Admin created successfully", Admin: a})
}

// List handles GET /api/admin/all
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to list admins")
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// UpdatePermissions handles PUT /api/admin/{id}/permissions
func (h *Handler) UpdatePermissions(w http.ResponseWriter, r *http.Request) {
	var req PermissionsRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.svc.UpdatePermissions(r.Context(), chi.URLParam(r, "id"), req.Permissions)
	if err != nil {
		h.writeError(w, err, "failed to update permissions")
		return
	}
	respond.JSON(w, http.StatusOK, adminResponse{Success: true, Message: "Permissions updated", Admin: a})
}

// Delete handles DELETE /api/admin/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.svc.Deactivate(r.Context(), claims.Subject, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "failed to deactivate admin")
		return
	}
	respond.Message(w, http.StatusOK, "Admin deactivated successfully")
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respond.Validation(w, verr)
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailTaken):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrSelfDeactivation):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		respond.Error(w, http.StatusInternalServerError, fallback)
	}
}
