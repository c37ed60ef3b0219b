package compliance

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/careconnect/internal/http/middleware"
	"github.com/wolfman30/careconnect/pkg/logging"
)

type eventLogger interface {
	LogEvent(ctx context.Context, event AuditEvent) error
}

// Audit records eventType after the wrapped handler succeeds. Failed
// requests and recorder errors are not audited and never affect the
// response. A nil recorder yields a pass-through middleware.
func Audit(recorder eventLogger, eventType AuditEventType, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusBadRequest {
				return
			}

			event := AuditEvent{
				EventType:  eventType,
				Method:     r.Method,
				Path:       r.URL.Path,
				ResourceID: chi.URLParam(r, "id"),
				Status:     status,
				RemoteIP:   remoteIP(r),
			}
			if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
				event.ActorID = claims.Subject
				event.ActorRole = claims.Role
			}
			if err := recorder.LogEvent(context.WithoutCancel(r.Context()), event); err != nil {
				logger.Error("audit event not recorded", "error", err, "event_type", string(eventType), "path", event.Path)
			}
		})
	}
}

func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
