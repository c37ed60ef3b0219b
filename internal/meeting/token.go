package meeting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var tracer = otel.Tracer("careconnect.internal.meeting")

// TokenConfig holds the Server-to-Server OAuth credentials.
type TokenConfig struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
}

// TokenProvider exchanges account credentials for a bearer token and caches
// it until shortly before expiry.
type TokenProvider struct {
	oauth      clientcredentials.Config
	httpClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenProvider validates cfg. Credentials have no defaults.
func NewTokenProvider(cfg TokenConfig) (*TokenProvider, error) {
	switch {
	case cfg.AccountID == "":
		return nil, errors.New("meeting: account id is required")
	case cfg.ClientID == "":
		return nil, errors.New("meeting: client id is required")
	case cfg.ClientSecret == "":
		return nil, errors.New("meeting: client secret is required")
	case cfg.TokenURL == "":
		return nil, errors.New("meeting: token url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TokenProvider{
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
			EndpointParams: url.Values{
				"grant_type": {"account_credentials"},
				"account_id": {cfg.AccountID},
			},
		},
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Token returns a valid access token, fetching a new one when the cached
// token is missing or about to expire.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token.Valid() {
		return p.token.AccessToken, nil
	}

	ctx, span := tracer.Start(ctx, "meeting.token_exchange")
	defer span.End()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.oauth.Token(ctx)
	if err != nil {
		span.RecordError(err)
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			span.SetAttributes(attribute.Int("http.status_code", retrieveErr.Response.StatusCode))
		}
		return "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrTokenExchange)
	}
	p.token = tok
	return tok.AccessToken, nil
}

// Invalidate drops the cached token so the next call re-authenticates.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.token = nil
	p.mu.Unlock()
}
