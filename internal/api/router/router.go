package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/careconnect/internal/admins"
	"github.com/wolfman30/careconnect/internal/appointments"
	"github.com/wolfman30/careconnect/internal/auth"
	"github.com/wolfman30/careconnect/internal/compliance"
	"github.com/wolfman30/careconnect/internal/doctors"
	httpmiddleware "github.com/wolfman30/careconnect/internal/http/middleware"
	"github.com/wolfman30/careconnect/internal/http/respond"
	"github.com/wolfman30/careconnect/internal/patients"
	"github.com/wolfman30/careconnect/internal/payments"
	"github.com/wolfman30/careconnect/internal/pricing"
	"github.com/wolfman30/careconnect/internal/stats"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Tokens             httpmiddleware.TokenParser
	AppointmentHandler *appointments.Handler
	DoctorHandler      *doctors.Handler
	PatientHandler     *patients.Handler
	AdminHandler       *admins.Handler
	PricingHandler     *pricing.Handler
	PaymentsHandler    *payments.Handler
	StripeWebhook      *payments.StripeWebhookHandler
	StatsHandler       *stats.Handler
	AuditHandler       *compliance.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// BookingLimiter throttles POST /api/appoint/create per client IP.
	BookingLimiter *httpmiddleware.RateLimiter

	// Audit records PHI reads and administrative writes when set.
	Audit *compliance.AuditService

	// HealthChecks are pinged by GET /health; any failure reports 503.
	HealthChecks map[string]Pinger
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	authenticate := httpmiddleware.Authenticate(cfg.Tokens)
	audited := func(event compliance.AuditEventType) func(http.Handler) http.Handler {
		if cfg.Audit == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return compliance.Audit(cfg.Audit, event, cfg.Logger)
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.StripeWebhook != nil {
			public.Post("/api/payments/webhooks/stripe", cfg.StripeWebhook.Handle)
		}
	})

	if h := cfg.AppointmentHandler; h != nil {
		r.Route("/api/appoint", func(appt chi.Router) {
			if cfg.BookingLimiter != nil {
				appt.With(cfg.BookingLimiter.Middleware).Post("/create", h.Create)
			} else {
				appt.Post("/create", h.Create)
			}
			appt.Get("/all", h.List)
			appt.Get("/count", h.Count)
			appt.Get("/{id}", h.Get)
			appt.With(
				httpmiddleware.OptionalAuthenticate(cfg.Tokens),
				audited(compliance.EventAppointmentDeleted),
			).Delete("/{id}", h.Delete)
		})
	}

	if h := cfg.DoctorHandler; h != nil {
		r.Route("/api/doctor", func(doc chi.Router) {
			doc.Post("/register", h.Register)
			doc.Post("/login", h.Login)
			doc.Get("/all", h.List)
			doc.Get("/count", h.Count)
			doc.With(authenticate, httpmiddleware.RequireRole(auth.RoleDoctor)).Get("/me", h.Me)
			doc.Get("/{id}", h.Get)
			doc.Get("/{id}/document", h.Document)
			doc.Get("/{id}/image", h.Image)
			doc.With(
				authenticate,
				httpmiddleware.RequirePermission(auth.PermManageDoctors),
				audited(compliance.EventDoctorDeleted),
			).Delete("/{id}", h.Delete)
		})
	}

	if h := cfg.PatientHandler; h != nil {
		r.Route("/api/patient", func(pat chi.Router) {
			pat.Post("/register", h.Register)
			pat.Post("/login", h.Login)
			pat.Post("/forgot-password", h.ForgotPassword)
			pat.Post("/reset-password", h.ResetPassword)
			pat.With(authenticate, httpmiddleware.RequireRole(auth.RolePatient)).Get("/me", h.Me)
			pat.Group(func(managed chi.Router) {
				managed.Use(authenticate, httpmiddleware.RequirePermission(auth.PermManagePatients))
				managed.With(audited(compliance.EventPatientListed)).Get("/all", h.List)
				managed.Get("/count", h.Count)
				managed.With(audited(compliance.EventPatientViewed)).Get("/{id}", h.Get)
			})
		})
	}

	if h := cfg.AdminHandler; h != nil {
		r.Route("/api/admin", func(adm chi.Router) {
			adm.Post("/login", h.Login)
			adm.Group(func(staff chi.Router) {
				staff.Use(authenticate, httpmiddleware.RequireRole(auth.RoleAdmin))
				staff.Get("/all", h.List)
				if cfg.StatsHandler != nil {
					staff.Get("/stats", cfg.StatsHandler.Get)
				}
			})
			adm.Group(func(super chi.Router) {
				super.Use(authenticate, httpmiddleware.RequireRole(auth.RoleSuperAdmin))
				super.With(audited(compliance.EventAdminCreated)).Post("/create", h.Create)
				super.With(audited(compliance.EventAdminPermissions)).Put("/{id}/permissions", h.UpdatePermissions)
				super.With(audited(compliance.EventAdminDeactivated)).Delete("/{id}", h.Delete)
				if cfg.AuditHandler != nil {
					super.Get("/audit", cfg.AuditHandler.List)
				}
			})
		})
	}

	if h := cfg.PricingHandler; h != nil {
		r.Route("/api/pricing", func(pr chi.Router) {
			pr.With(httpmiddleware.OptionalAuthenticate(cfg.Tokens)).Get("/all", h.List)
			pr.Get("/{id}", h.Get)
			pr.Group(func(managed chi.Router) {
				managed.Use(
					authenticate,
					httpmiddleware.RequirePermission(auth.PermManagePricing),
					audited(compliance.EventPricingChanged),
				)
				managed.Post("/create", h.Create)
				managed.Put("/{id}", h.Update)
				managed.Delete("/{id}", h.Deactivate)
				managed.Delete("/{id}/hard", h.Delete)
			})
		})
	}

	if h := cfg.PaymentsHandler; h != nil {
		r.Route("/api/payments", func(pay chi.Router) {
			pay.Use(authenticate, httpmiddleware.RequireRole(auth.RolePatient))
			pay.Post("/wallet/topup", h.TopUp)
			pay.Post("/coins/purchase", h.PurchaseCoins)
			pay.Post("/crypto/charge", h.CryptoCharge)
			pay.Get("/transactions", h.Transactions)
		})
	}

	return r
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			}
		}
		respond.JSON(w, status, body)
	}
}
