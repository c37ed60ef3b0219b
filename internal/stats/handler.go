package stats

import (
	"context"
	"net/http"

	"github.com/wolfman30/careconnect/internal/http/respond"
	"github.com/wolfman30/careconnect/pkg/logging"
)

type summarizer interface {
	Summary(ctx context.Context) (*Summary, error)
}

type Handler struct {
	repo   summarizer
	logger *logging.Logger
}

func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	return newHandler(repo, logger)
}

func newHandler(repo summarizer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Get handles GET /api/admin/stats
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.Summary(r.Context())
	if err != nil {
		h.logger.Error("failed to build stats", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}
	respond.JSON(w, http.StatusOK, s)
}
