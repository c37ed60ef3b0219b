package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/careconnect/internal/http/respond"
	"github.com/wolfman30/careconnect/pkg/logging"
)

const (
	stripeProvider           = "stripe"
	stripeSignatureTolerance = 5 * time.Minute
	maxWebhookBytes          = 1 << 20
)

type topUpCompleter interface {
	CompleteTopUp(ctx context.Context, transactionID, externalID string) (*Transaction, bool, error)
}

type processedTracker interface {
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
	Release(ctx context.Context, provider, eventID string) error
}

// StripeWebhookHandler credits wallets when a top-up checkout completes.
type StripeWebhookHandler struct {
	webhookSecret string
	topUps        topUpCompleter
	processed     processedTracker
	logger        *logging.Logger
	now           func() time.Time
}

// NewStripeWebhookHandler creates a handler for Stripe webhooks. An empty
// secret disables signature checks and is meant for local development.
func NewStripeWebhookHandler(webhookSecret string, topUps topUpCompleter, processed processedTracker, logger *logging.Logger) *StripeWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if webhookSecret == "" {
		logger.Warn("stripe webhook secret not set, signatures are not verified")
	}
	return &StripeWebhookHandler{
		webhookSecret: webhookSecret,
		topUps:        topUps,
		processed:     processed,
		logger:        logger,
		now:           time.Now,
	}
}

// Handle processes POST /api/payments/webhooks/stripe.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid body")
		return
	}
	if !verifyStripeSignature(h.webhookSecret, payload, r.Header.Get("Stripe-Signature"), h.now()) {
		respond.Error(w, http.StatusForbidden, "invalid signature")
		return
	}

	var evt stripeWebhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("failed to decode stripe event", "error", err)
		respond.Error(w, http.StatusBadRequest, "invalid event")
		return
	}
	if evt.ID == "" {
		respond.Error(w, http.StatusBadRequest, "missing event id")
		return
	}
	if evt.Type != "checkout.session.completed" {
		w.WriteHeader(http.StatusOK)
		return
	}

	session := evt.Data.Object
	transactionID := session.Metadata["transaction_id"]
	if transactionID == "" {
		transactionID = session.ClientReferenceID
	}
	if transactionID == "" {
		h.logger.Warn("stripe webhook missing transaction id", "event_id", evt.ID)
		// Acknowledge so Stripe stops retrying an event we can never apply.
		w.WriteHeader(http.StatusOK)
		return
	}
	if session.PaymentStatus != "" && session.PaymentStatus != "paid" {
		h.logger.Info("stripe checkout completed without payment", "event_id", evt.ID, "payment_status", session.PaymentStatus)
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()
	if h.processed != nil {
		claimed, err := h.processed.MarkProcessed(ctx, stripeProvider, evt.ID)
		if err != nil {
			h.logger.Error("processed lookup failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "server error")
			return
		}
		if !claimed {
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	externalID := session.PaymentIntent
	if externalID == "" {
		externalID = session.ID
	}
	tx, applied, err := h.topUps.CompleteTopUp(ctx, transactionID, externalID)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			h.logger.Warn("stripe webhook for unknown transaction", "event_id", evt.ID, "transaction_id", transactionID)
			w.WriteHeader(http.StatusOK)
			return
		}
		h.logger.Error("failed to complete top-up", "error", err, "transaction_id", transactionID)
		if h.processed != nil {
			if rerr := h.processed.Release(context.WithoutCancel(ctx), stripeProvider, evt.ID); rerr != nil {
				h.logger.Error("failed to release processed event", "error", rerr, "event_id", evt.ID)
			}
		}
		respond.Error(w, http.StatusInternalServerError, "server error")
		return
	}
	if session.AmountTotal > 0 && session.AmountTotal != tx.AmountCents {
		h.logger.Warn("stripe amount differs from recorded top-up",
			"transaction_id", tx.ID, "recorded_cents", tx.AmountCents, "stripe_cents", session.AmountTotal)
	}
	h.logger.Info("stripe top-up processed", "event_id", evt.ID, "transaction_id", tx.ID, "applied", applied)
	w.WriteHeader(http.StatusOK)
}

type stripeWebhookEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object stripeSessionObject `json:"object"`
	} `json:"data"`
}

type stripeSessionObject struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	PaymentIntent     string            `json:"payment_intent"`
	PaymentStatus     string            `json:"payment_status"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	Metadata          map[string]string `json:"metadata"`
}

// verifyStripeSignature checks the Stripe-Signature header
// (t=<timestamp>,v1=<hex hmac>[,...]) against HMAC-SHA256(secret, "t.payload").
func verifyStripeSignature(secret string, payload []byte, header string, now time.Time) bool {
	if secret == "" {
		return true
	}
	if header == "" {
		return false
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if skew := now.Sub(time.Unix(ts, 0)); skew > stripeSignatureTolerance || skew < -stripeSignatureTolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%s.%s", timestamp, payload)))
	expected := hex.EncodeToString(mac.Sum(nil))
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}
