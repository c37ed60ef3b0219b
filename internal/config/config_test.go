package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("APPOINTMENT_STORE", "")
	t.Setenv("MEETING_TIMEOUT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.AppointmentStore != "postgres" {
		t.Fatalf("expected postgres appointment store, got %s", cfg.AppointmentStore)
	}
	if cfg.MeetingTimeout != 15*time.Second {
		t.Fatalf("expected default meeting timeout, got %s", cfg.MeetingTimeout)
	}
	if cfg.ZoomTokenURL != "https://zoom.us/oauth/token" {
		t.Fatalf("unexpected token url %s", cfg.ZoomTokenURL)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APPOINTMENT_STORE", " Mongo ")
	t.Setenv("MEETING_TIMEOUT", "5s")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("COIN_PRICE_CENTS", "250")
	t.Setenv("BOOKING_RATE_LIMIT_RPS", "0.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("JOBS_ENABLED", "false")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.AppointmentStore != "mongo" {
		t.Fatalf("expected normalized store, got %q", cfg.AppointmentStore)
	}
	if cfg.MeetingTimeout != 5*time.Second {
		t.Fatalf("expected meeting timeout override, got %s", cfg.MeetingTimeout)
	}
	if cfg.SMTPPort != 2525 {
		t.Fatalf("expected smtp port override, got %d", cfg.SMTPPort)
	}
	if cfg.CoinPriceCents != 250 {
		t.Fatalf("expected coin price override, got %d", cfg.CoinPriceCents)
	}
	if cfg.BookingRateLimitRPS != 0.5 {
		t.Fatalf("expected rate override, got %v", cfg.BookingRateLimitRPS)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.JobsEnabled {
		t.Fatal("expected jobs disabled")
	}
}

func validConfig() *Config {
	return &Config{
		Env:              "development",
		DatabaseURL:      "postgres://localhost/careconnect",
		AppointmentStore: "postgres",
		JWTSecret:        "secret",
		ZoomAccountID:    "acct",
		ZoomClientID:     "client",
		ZoomClientSecret: "shh",
		EmailProvider:    "stub",
		ClinicTimezone:   "America/New_York",
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReportsMissingZoomCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.ZoomClientSecret = ""
	cfg.ZoomAccountID = " "
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"ZOOM_CLIENT_SECRET", "ZOOM_ACCOUNT_ID"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %s in error, got %v", key, err)
		}
	}
}

func TestValidateEmailProviderRequirements(t *testing.T) {
	cfg := validConfig()
	cfg.EmailProvider = "smtp"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SMTP_HOST") || !strings.Contains(err.Error(), "EMAIL_FROM") {
		t.Fatalf("expected smtp errors, got %v", err)
	}
}

func TestValidateMongoRequiresURI(t *testing.T) {
	cfg := validConfig()
	cfg.AppointmentStore = "mongo"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "MONGO_URI") {
		t.Fatalf("expected mongo uri error, got %v", err)
	}
}

func TestValidateStripeWebhookSecret(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		key     string
		secret  string
		wantErr bool
	}{
		{name: "development without stripe", env: "development"},
		{name: "development with key and no secret", env: "development", key: "sk_test_1", wantErr: true},
		{name: "development with key and secret", env: "development", key: "sk_test_1", secret: "whsec_1"},
		{name: "production without secret", env: "production", wantErr: true},
		{name: "staging with key and no secret", env: "staging", key: "sk_live_1", wantErr: true},
		{name: "production with secret", env: "production", key: "sk_live_1", secret: "whsec_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Env = tt.env
			cfg.StripeSecretKey = tt.key
			cfg.StripeWebhookSecret = tt.secret
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "STRIPE_WEBHOOK_SECRET") {
					t.Fatalf("expected STRIPE_WEBHOOK_SECRET error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestClinicLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{ClinicTimezone: "Not/AZone"}
	if cfg.ClinicLocation() != time.UTC {
		t.Fatal("expected UTC fallback")
	}
}
