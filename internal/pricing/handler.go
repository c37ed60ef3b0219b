package pricing

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/careconnect/internal/auth"
	"github.com/wolfman30/careconnect/internal/http/middleware"
	"github.com/wolfman30/careconnect/internal/http/respond"
	"github.com/wolfman30/careconnect/internal/validation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Handler serves /api/pricing.
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

type entryResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Pricing *Entry `json:"pricing"`
}

// List handles GET /api/pricing/all. Inactive entries are included only for
// admins asking with ?all=true.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if r.URL.Query().Get("all") == "true" {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok || (claims.Role != auth.RoleAdmin && claims.Role != auth.RoleSuperAdmin) {
			respond.Error(w, http.StatusForbidden, "admin access required for inactive entries")
			return
		}
		includeInactive = true
	}
	list, err := h.svc.List(r.Context(), includeInactive)
	if err != nil {
		h.writeError(w, err, "failed to list pricing")
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// Get handles GET /api/pricing/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "failed to load pricing")
		return
	}
	respond.JSON(w, http.StatusOK, e)
}

// Create handles POST /api/pricing/create
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "failed to create pricing")
		return
	}
	respond.JSON(w, http.StatusCreated, entryResponse{Success: true, Message: "Pricing created successfully", Pricing: e})
}

// Update handles PUT /api/pricing/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, err, "failed to update pricing")
		return
	}
	respond.JSON(w, http.StatusOK, entryResponse{Success: true, Message: "Pricing updated successfully", Pricing: e})
}

// Deactivate handles DELETE /api/pricing/{id}
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "failed to deactivate pricing")
		return
	}
	respond.Message(w, http.StatusOK, "Pricing deactivated successfully")
}

// Delete handles DELETE /api/pricing/{id}/hard
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "failed to delete pricing")
		return
	}
	respond.Message(w, http.StatusOK, "Pricing deleted permanently")
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respond.Validation(w, verr)
	case errors.Is(err, ErrDiscountExceedsBase):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		respond.Error(w, http.StatusInternalServerError, fallback)
	}
}
