package compliance

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/careconnect/internal/http/respond"
	"github.com/wolfman30/careconnect/pkg/logging"
)

type eventQuerier interface {
	QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// Handler exposes the audit trail to superadmins.
type Handler struct {
	events eventQuerier
	logger *logging.Logger
}

func NewHandler(svc *AuditService, logger *logging.Logger) *Handler {
	return newHandler(svc, logger)
}

func newHandler(events eventQuerier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{events: events, logger: logger}
}

// List handles GET /api/admin/audit. Filters: actor, resource, type,
// since and until (RFC3339), limit and offset.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := AuditFilter{
		ActorID:    q.Get("actor"),
		ResourceID: q.Get("resource"),
		EventType:  AuditEventType(q.Get("type")),
	}

	var err error
	if filter.StartTime, err = parseTime(q.Get("since")); err != nil {
		respond.Error(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
		return
	}
	if filter.EndTime, err = parseTime(q.Get("until")); err != nil {
		respond.Error(w, http.StatusBadRequest, "until must be an RFC3339 timestamp")
		return
	}
	if filter.Limit, err = parseCount(q.Get("limit")); err != nil {
		respond.Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = parseCount(q.Get("offset")); err != nil {
		respond.Error(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	events, err := h.events.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query audit events", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to query audit events")
		return
	}
	respond.JSON(w, http.StatusOK, events)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

func parseCount(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
