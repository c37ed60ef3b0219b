package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL      string
	AppointmentStore string
	MongoURI         string
	MongoDatabase    string
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool

	JWTSecret      string
	JWTTTL         time.Duration
	ClinicTimezone string

	// Zoom Server-to-Server OAuth
	ZoomAccountID       string
	ZoomClientID        string
	ZoomClientSecret    string
	ZoomBaseURL         string
	ZoomTokenURL        string
	ZoomMeetingPassword string
	MeetingTimeout      time.Duration

	// Email delivery
	EmailProvider string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	EmailFrom     string
	EmailFromName string
	EmailTimeout  time.Duration
	SendGridKey   string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Payments
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeSuccessURL    string
	StripeCancelURL     string
	WalletCurrency      string
	CoinPriceCents      int

	CORSAllowedOrigins    []string
	BookingRateLimitRPS   float64
	BookingRateLimitBurst int

	JobsEnabled        bool
	OutboxPollSchedule string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		AppointmentStore: strings.ToLower(strings.TrimSpace(getEnv("APPOINTMENT_STORE", "postgres"))),
		MongoURI:         getEnv("MONGO_URI", ""),
		MongoDatabase:    getEnv("MONGO_DATABASE", "careconnect"),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTTTL:         getEnvAsDuration("JWT_TTL", 24*time.Hour),
		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "UTC"),

		ZoomAccountID:       getEnv("ZOOM_ACCOUNT_ID", ""),
		ZoomClientID:        getEnv("ZOOM_CLIENT_ID", ""),
		ZoomClientSecret:    getEnv("ZOOM_CLIENT_SECRET", ""),
		ZoomBaseURL:         getEnv("ZOOM_BASE_URL", "https://api.zoom.us/v2"),
		ZoomTokenURL:        getEnv("ZOOM_TOKEN_URL", "https://zoom.us/oauth/token"),
		ZoomMeetingPassword: getEnv("ZOOM_MEETING_PASSWORD", ""),
		MeetingTimeout:      getEnvAsDuration("MEETING_TIMEOUT", 15*time.Second),

		EmailProvider: strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "smtp"))),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		EmailFrom:     getEnv("EMAIL_FROM", ""),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "CareConnect"),
		EmailTimeout:  getEnvAsDuration("EMAIL_TIMEOUT", 20*time.Second),
		SendGridKey:   getEnv("SENDGRID_API_KEY", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeSuccessURL:    getEnv("STRIPE_SUCCESS_URL", ""),
		StripeCancelURL:     getEnv("STRIPE_CANCEL_URL", ""),
		WalletCurrency:      strings.ToLower(getEnv("WALLET_CURRENCY", "usd")),
		CoinPriceCents:      getEnvAsInt("COIN_PRICE_CENTS", 100),

		CORSAllowedOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS"),
		BookingRateLimitRPS:   getEnvAsFloat("BOOKING_RATE_LIMIT_RPS", 1),
		BookingRateLimitBurst: getEnvAsInt("BOOKING_RATE_LIMIT_BURST", 5),

		JobsEnabled:        getEnvAsBool("JOBS_ENABLED", true),
		OutboxPollSchedule: getEnv("OUTBOX_POLL_SCHEDULE", "@every 30s"),
	}
}

// Validate reports every missing or inconsistent setting the server cannot
// start without.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"DATABASE_URL":       c.DatabaseURL,
		"JWT_SECRET":         c.JWTSecret,
		"ZOOM_ACCOUNT_ID":    c.ZoomAccountID,
		"ZOOM_CLIENT_ID":     c.ZoomClientID,
		"ZOOM_CLIENT_SECRET": c.ZoomClientSecret,
	}
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET", "ZOOM_ACCOUNT_ID", "ZOOM_CLIENT_ID", "ZOOM_CLIENT_SECRET"} {
		if strings.TrimSpace(required[key]) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}

	switch c.AppointmentStore {
	case "postgres":
	case "mongo":
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when APPOINTMENT_STORE=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("APPOINTMENT_STORE must be postgres or mongo, got %q", c.AppointmentStore))
	}

	switch c.EmailProvider {
	case "smtp":
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required when EMAIL_PROVIDER=smtp"))
		}
	case "sendgrid":
		if c.SendGridKey == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY is required when EMAIL_PROVIDER=sendgrid"))
		}
	case "ses", "stub":
	default:
		errs = append(errs, fmt.Errorf("EMAIL_PROVIDER must be smtp, sendgrid, ses or stub, got %q", c.EmailProvider))
	}
	if c.EmailProvider != "stub" && c.EmailFrom == "" {
		errs = append(errs, errors.New("EMAIL_FROM is required"))
	}

	// Without a webhook secret the Stripe endpoint accepts unsigned events.
	if c.StripeWebhookSecret == "" && (c.StripeSecretKey != "" || c.Env != "development") {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set or ENV is not development"))
	}

	if _, err := time.LoadLocation(c.ClinicTimezone); err != nil {
		errs = append(errs, fmt.Errorf("CLINIC_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// ClinicLocation resolves ClinicTimezone, falling back to UTC.
func (c *Config) ClinicLocation() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
