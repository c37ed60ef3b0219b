package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wolfman30/careconnect/internal/admins"
	"github.com/wolfman30/careconnect/internal/api/router"
	"github.com/wolfman30/careconnect/internal/app/bootstrap"
	"github.com/wolfman30/careconnect/internal/appointments"
	"github.com/wolfman30/careconnect/internal/auth"
	"github.com/wolfman30/careconnect/internal/compliance"
	appconfig "github.com/wolfman30/careconnect/internal/config"
	"github.com/wolfman30/careconnect/internal/doctors"
	"github.com/wolfman30/careconnect/internal/events"
	httpmiddleware "github.com/wolfman30/careconnect/internal/http/middleware"
	"github.com/wolfman30/careconnect/internal/jobs"
	"github.com/wolfman30/careconnect/internal/notify"
	"github.com/wolfman30/careconnect/internal/observability/metrics"
	"github.com/wolfman30/careconnect/internal/patients"
	"github.com/wolfman30/careconnect/internal/payments"
	"github.com/wolfman30/careconnect/internal/pricing"
	"github.com/wolfman30/careconnect/internal/stats"
	"github.com/wolfman30/careconnect/pkg/logging"
)

const (
	processedEventRetention = 30 * 24 * time.Hour
	rateLimiterMaxIdle      = 10 * time.Minute
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting careconnect API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"appointment_store", cfg.AppointmentStore,
		"email_provider", cfg.EmailProvider,
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	} else {
		logger.Warn("redis disabled; slot locks and idempotency keys are process-local")
	}

	mongoClient, mongoDB, err := bootstrap.BuildMongoDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	if mongoClient != nil {
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	}

	metricsHandler, appMetrics := setupMetrics()

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}

	sender, err := bootstrap.BuildEmailSender(ctx, cfg, logger)
	if err != nil {
		return err
	}
	outbox := events.NewOutboxStore(pool)
	processed := events.NewProcessedStore(pool)
	notifier := notify.NewService(sender, logger.Component("notify")).
		WithOutbox(outbox).
		WithMetrics(appMetrics)

	meetingClient, err := bootstrap.BuildMeetingClient(cfg)
	if err != nil {
		return err
	}
	apptRepo, err := bootstrap.BuildAppointmentRepository(ctx, cfg, pool, mongoDB, redisClient, logger)
	if err != nil {
		return err
	}
	locker, idem := bootstrap.BuildBookingGuards(redisClient)
	apptSvc := appointments.NewService(apptRepo, meetingClient, logger.Component("appointments")).
		WithNotifier(notifier).
		WithLocker(locker).
		WithIdempotency(idem).
		WithMetrics(appMetrics).
		WithClinicLocation(cfg.ClinicLocation())

	doctorSvc := doctors.NewService(doctors.NewPostgresRepository(pool), issuer, logger.Component("doctors"))
	patientSvc := patients.NewService(patients.NewPostgresRepository(pool), issuer, notifier, logger.Component("patients"))
	adminSvc := admins.NewService(admins.NewPostgresRepository(pool), issuer, logger.Component("admins"))
	pricingSvc := pricing.NewService(pricing.NewPostgresRepository(pool), cfg.WalletCurrency, logger.Component("pricing"))

	paymentsLogger := logger.Component("payments")
	checkout := payments.NewStripeCheckoutService(cfg.StripeSecretKey, cfg.StripeSuccessURL, cfg.StripeCancelURL, paymentsLogger)
	paymentSvc := payments.NewService(payments.NewPostgresLedger(pool), checkout, payments.Options{
		Currency:       cfg.WalletCurrency,
		CoinPriceCents: int64(cfg.CoinPriceCents),
	}, paymentsLogger).WithMetrics(appMetrics)
	if cfg.StripeWebhookSecret == "" {
		paymentsLogger.Warn("stripe webhook secret empty; signatures are not verified")
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = sqlDB.Close() }()
	audit := compliance.NewAuditService(sqlDB)

	statsRepo := stats.NewRepository(sqlDB)
	if cfg.AppointmentStore == "mongo" {
		statsRepo = statsRepo.WithAppointmentCounter(apptRepo)
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.BookingRateLimitRPS, cfg.BookingRateLimitBurst)

	deliverer := events.NewDeliverer(outbox, notifier, logger.Component("outbox")).WithMetrics(appMetrics)
	scheduler, err := buildScheduler(cfg, schedulerDeps{
		outbox:    deliverer,
		otps:      patientSvc,
		processed: processed,
		limiter:   limiter,
		metrics:   appMetrics,
	}, logger)
	if err != nil {
		return err
	}

	handler := router.New(&router.Config{
		Logger:             logger,
		Tokens:             issuer,
		AppointmentHandler: appointments.NewHandler(apptSvc, logger),
		DoctorHandler:      doctors.NewHandler(doctorSvc, logger),
		PatientHandler:     patients.NewHandler(patientSvc, logger),
		AdminHandler:       admins.NewHandler(adminSvc, logger),
		PricingHandler:     pricing.NewHandler(pricingSvc, logger),
		PaymentsHandler:    payments.NewHandler(paymentSvc, logger),
		StripeWebhook:      payments.NewStripeWebhookHandler(cfg.StripeWebhookSecret, paymentSvc, processed, paymentsLogger),
		StatsHandler:       stats.NewHandler(statsRepo, logger),
		Audit:              audit,
		AuditHandler:       compliance.NewHandler(audit, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		BookingLimiter:     limiter,
		HealthChecks:       healthChecks(pool, redisClient, mongoClient),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if scheduler != nil {
		scheduler.Start()
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduled jobs did not finish before shutdown", "error", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

func setupMetrics() (http.Handler, *metrics.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.New(reg)
}

type outboxRunner interface {
	RunOnce(ctx context.Context) (int, error)
}

type otpSweeper interface {
	SweepExpiredOTPs(ctx context.Context) (int64, error)
}

type processedPurger interface {
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

type schedulerDeps struct {
	outbox    outboxRunner
	otps      otpSweeper
	processed processedPurger
	limiter   *httpmiddleware.RateLimiter
	metrics   *metrics.Metrics
}

// buildScheduler returns nil when JOBS_ENABLED is false.
func buildScheduler(cfg *appconfig.Config, deps schedulerDeps, logger *logging.Logger) (*jobs.Scheduler, error) {
	if !cfg.JobsEnabled {
		logger.Info("scheduled jobs disabled")
		return nil, nil
	}
	jobLogger := logger.Component("jobs")
	scheduler := jobs.NewScheduler(jobLogger).WithMetrics(deps.metrics)

	all := []jobs.Job{
		jobs.OutboxJob(cfg.OutboxPollSchedule, deps.outbox, jobLogger),
		jobs.OTPSweepJob(deps.otps, jobLogger),
		jobs.ProcessedPurgeJob(deps.processed, processedEventRetention, jobLogger),
	}
	if deps.limiter != nil {
		all = append(all, jobs.RateLimitSweepJob(deps.limiter, rateLimiterMaxIdle))
	}
	for _, job := range all {
		if err := scheduler.Add(job); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", job.Name, err)
		}
	}
	return scheduler, nil
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

type mongoPinger struct{ client *mongo.Client }

func (p mongoPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx, nil) }

func healthChecks(pool router.Pinger, redisClient *redis.Client, mongoClient *mongo.Client) map[string]router.Pinger {
	checks := map[string]router.Pinger{}
	if pool != nil {
		checks["postgres"] = pool
	}
	if redisClient != nil {
		checks["redis"] = redisPinger{client: redisClient}
	}
	if mongoClient != nil {
		checks["mongo"] = mongoPinger{client: mongoClient}
	}
	return checks
}
