package bootstrap

import (
	"context"
	"testing"

	appconfig "github.com/wolfman30/careconnect/internal/config"
	"github.com/wolfman30/careconnect/internal/notify"
	"github.com/wolfman30/careconnect/pkg/logging"
)

func TestBuildEmailSender(t *testing.T) {
	logger := logging.New("error")

	tests := []struct {
		name    string
		cfg     *appconfig.Config
		want    string
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "stub", cfg: &appconfig.Config{EmailProvider: "stub"}, want: "stub"},
		{name: "smtp", cfg: &appconfig.Config{EmailProvider: "smtp", SMTPHost: "smtp.example.com", EmailFrom: "noreply@example.com"}, want: "smtp"},
		{name: "smtp without host", cfg: &appconfig.Config{EmailProvider: "smtp", EmailFrom: "noreply@example.com"}, wantErr: true},
		{name: "sendgrid", cfg: &appconfig.Config{EmailProvider: "sendgrid", SendGridKey: "SG.test", EmailFrom: "noreply@example.com"}, want: "sendgrid"},
		{name: "sendgrid without key", cfg: &appconfig.Config{EmailProvider: "sendgrid"}, wantErr: true},
		{name: "unknown", cfg: &appconfig.Config{EmailProvider: "pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := BuildEmailSender(context.Background(), tt.cfg, logger)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got sender %T", sender)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var ok bool
			switch tt.want {
			case "stub":
				_, ok = sender.(*notify.StubEmailSender)
			case "smtp":
				_, ok = sender.(*notify.SMTPSender)
			case "sendgrid":
				_, ok = sender.(*notify.SendGridSender)
			}
			if !ok {
				t.Fatalf("expected %s sender, got %T", tt.want, sender)
			}
		})
	}
}
