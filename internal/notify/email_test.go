package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sendGridPayload struct {
	From struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"from"`
	Subject          string `json:"subject"`
	Personalizations []struct {
		To []struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"to"`
	} `json:"personalizations"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func newSendGridServer(t *testing.T, status int, got *sendGridPayload, auth *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewSendGridSender(t *testing.T) {
	tests := []struct {
		name     string
		cfg      SendGridConfig
		wantNil  bool
		wantFrom string
	}{
		{name: "no api key", cfg: SendGridConfig{FromEmail: "care@example.com"}, wantNil: true},
		{name: "default from name", cfg: SendGridConfig{APIKey: "sg-key", FromEmail: "care@example.com"}, wantFrom: "CareConnect"},
		{name: "custom from name", cfg: SendGridConfig{APIKey: "sg-key", FromEmail: "care@example.com", FromName: "Riverside Clinic"}, wantFrom: "Riverside Clinic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := NewSendGridSender(tt.cfg, nil)
			if tt.wantNil {
				assert.Nil(t, sender)
				return
			}
			require.NotNil(t, sender)
			assert.Equal(t, tt.wantFrom, sender.fromName)
			assert.Equal(t, tt.cfg.FromEmail, sender.fromEmail)
		})
	}
}

func TestSendGridSenderPostsBookingEmail(t *testing.T) {
	var got sendGridPayload
	var auth string
	srv := newSendGridServer(t, http.StatusAccepted, &got, &auth)

	sender := NewSendGridSender(SendGridConfig{APIKey: "sg-key", FromEmail: "care@example.com"}, nil)
	sender.client.Request.BaseURL = srv.URL

	err := sender.Send(context.Background(), EmailMessage{
		To:      "pat@example.com",
		ToName:  "Pat Doe",
		Subject: "Your appointment is confirmed",
		Body:    "Join at https://zoom.example/j/42",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sg-key", auth)
	assert.Equal(t, "CareConnect", got.From.Name)
	assert.Equal(t, "care@example.com", got.From.Email)
	assert.Equal(t, "Your appointment is confirmed", got.Subject)
	require.Len(t, got.Personalizations, 1)
	require.Len(t, got.Personalizations[0].To, 1)
	assert.Equal(t, "pat@example.com", got.Personalizations[0].To[0].Email)

	types := map[string]string{}
	for _, c := range got.Content {
		types[c.Type] = c.Value
	}
	assert.Equal(t, "Join at https://zoom.example/j/42", types["text/plain"])
	assert.Equal(t, "Join at https://zoom.example/j/42", types["text/html"], "plain body doubles as html")
}

func TestSendGridSenderErrorStatus(t *testing.T) {
	var got sendGridPayload
	var auth string
	srv := newSendGridServer(t, http.StatusUnauthorized, &got, &auth)

	sender := NewSendGridSender(SendGridConfig{APIKey: "revoked", FromEmail: "care@example.com"}, nil)
	sender.client.Request.BaseURL = srv.URL

	err := sender.Send(context.Background(), EmailMessage{To: "pat@example.com", Subject: "Reset code", HTML: "<p>123456</p>"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestSendGridSenderNil(t *testing.T) {
	var sender *SendGridSender
	err := sender.Send(context.Background(), EmailMessage{To: "pat@example.com"})
	assert.Error(t, err)
}

func TestStubEmailSenderSend(t *testing.T) {
	err := NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "pat@example.com", Subject: "hello"})
	assert.NoError(t, err)
}
