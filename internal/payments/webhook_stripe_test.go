package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStripePayload(t *testing.T, eventID, eventType, sessionID, paymentIntentID string, amountTotal int64, metadata map[string]string) []byte {
	t.Helper()
	evt := map[string]any{
		"id":      eventID,
		"type":    eventType,
		"created": time.Now().Unix(),
		"data": map[string]any{
			"object": map[string]any{
				"id":             sessionID,
				"payment_intent": paymentIntentID,
				"payment_status": "paid",
				"amount_total":   amountTotal,
				"currency":       "usd",
				"metadata":       metadata,
			},
		},
	}
	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("failed to marshal stripe event: %v", err)
	}
	return data
}

func stripeSign(payload []byte, secret string, at time.Time) string {
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + string(payload)))
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type memoryProcessed struct {
	mu       sync.Mutex
	seen     map[string]bool
	released int
	err      error
}

func (m *memoryProcessed) MarkProcessed(_ context.Context, provider, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	key := provider + ":" + eventID
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *memoryProcessed) Release(_ context.Context, provider, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, provider+":"+eventID)
	m.released++
	return nil
}

type failingCompleter struct{ err error }

func (f failingCompleter) CompleteTopUp(context.Context, string, string) (*Transaction, bool, error) {
	return nil, false, f.err
}

func seedTopUp(t *testing.T, ledger *InMemoryLedger, id string, cents int64) {
	t.Helper()
	require.NoError(t, ledger.CreateTransaction(context.Background(), &Transaction{
		ID: id, PatientID: "patient-1", Type: TypeWalletTopUp, AmountCents: cents,
		Currency: "usd", Status: StatusPending, PaymentMethod: MethodStripe,
	}))
}

func postWebhook(h *StripeWebhookHandler, body []byte, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhooks/stripe", bytes.NewReader(body))
	if sig != "" {
		req.Header.Set("Stripe-Signature", sig)
	}
	rr := httptest.NewRecorder()
	h.Handle(rr, req)
	return rr
}

func TestStripeWebhookHandler_CreditsWalletOnce(t *testing.T) {
	ledger := NewInMemoryLedger()
	seedTopUp(t, ledger, "tx-1", 5000)
	svc := NewService(ledger, nil, Options{}, nil)
	processed := &memoryProcessed{}
	handler := NewStripeWebhookHandler("whsec_test123", svc, processed, nil)

	body := buildStripePayload(t, "evt_1", "checkout.session.completed", "cs_1", "pi_1", 5000, map[string]string{"transaction_id": "tx-1"})
	rr := postWebhook(handler, body, stripeSign(body, "whsec_test123", time.Now()))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.EqualValues(t, 5000, ledger.BalanceOf("patient-1").WalletBalanceCents)

	rr = postWebhook(handler, body, stripeSign(body, "whsec_test123", time.Now()))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 5000, ledger.BalanceOf("patient-1").WalletBalanceCents, "redelivery must not credit twice")

	// A different event for the same session is also a no-op at the ledger.
	other := buildStripePayload(t, "evt_2", "checkout.session.completed", "cs_1", "pi_1", 5000, map[string]string{"transaction_id": "tx-1"})
	rr = postWebhook(handler, other, stripeSign(other, "whsec_test123", time.Now()))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 5000, ledger.BalanceOf("patient-1").WalletBalanceCents)

	txs, err := ledger.ListTransactions(context.Background(), "patient-1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, StatusSucceeded, txs[0].Status)
	assert.Equal(t, "pi_1", txs[0].ExternalID)
}

func TestStripeWebhookHandler_InvalidSignature(t *testing.T) {
	handler := NewStripeWebhookHandler("whsec_test123", NewService(NewInMemoryLedger(), nil, Options{}, nil), &memoryProcessed{}, nil)

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	assert.Equal(t, http.StatusForbidden, postWebhook(handler, body, "t=12345,v1=bad_signature").Code)
	assert.Equal(t, http.StatusForbidden, postWebhook(handler, body, "").Code)

	stale := stripeSign(body, "whsec_test123", time.Now().Add(-10*time.Minute))
	assert.Equal(t, http.StatusForbidden, postWebhook(handler, body, stale).Code)
}

func TestStripeWebhookHandler_IgnoresOtherEvents(t *testing.T) {
	processed := &memoryProcessed{}
	handler := NewStripeWebhookHandler("", NewService(NewInMemoryLedger(), nil, Options{}, nil), processed, nil)

	body := buildStripePayload(t, "evt_other", "payment_intent.succeeded", "pi_123", "", 5000, nil)
	assert.Equal(t, http.StatusOK, postWebhook(handler, body, "").Code)
	assert.Empty(t, processed.seen)

	noTx := buildStripePayload(t, "evt_missing", "checkout.session.completed", "cs_miss", "pi_miss", 5000, map[string]string{})
	assert.Equal(t, http.StatusOK, postWebhook(handler, noTx, "").Code)

	unknown := buildStripePayload(t, "evt_unknown", "checkout.session.completed", "cs_u", "pi_u", 5000, map[string]string{"transaction_id": "nope"})
	assert.Equal(t, http.StatusOK, postWebhook(handler, unknown, "").Code)
}

func TestStripeWebhookHandler_ReleasesClaimOnFailure(t *testing.T) {
	processed := &memoryProcessed{}
	handler := NewStripeWebhookHandler("", failingCompleter{err: errors.New("db down")}, processed, nil)

	body := buildStripePayload(t, "evt_fail", "checkout.session.completed", "cs_f", "pi_f", 5000, map[string]string{"transaction_id": "tx-1"})
	assert.Equal(t, http.StatusInternalServerError, postWebhook(handler, body, "").Code)
	assert.Equal(t, 1, processed.released)
	assert.Empty(t, processed.seen, "the retry must be able to claim the event again")
}

func TestVerifyStripeSignature(t *testing.T) {
	payload := []byte(`{"id":"evt"}`)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, verifyStripeSignature("", payload, "", now))
	assert.True(t, verifyStripeSignature("sec", payload, stripeSign(payload, "sec", now), now))
	assert.True(t, verifyStripeSignature("sec", payload, stripeSign(payload, "sec", now.Add(-4*time.Minute)), now))
	assert.False(t, verifyStripeSignature("sec", payload, stripeSign(payload, "sec", now.Add(6*time.Minute)), now))
	assert.False(t, verifyStripeSignature("sec", payload, stripeSign(payload, "other", now), now))
	assert.False(t, verifyStripeSignature("sec", payload, "v1=abc", now))
	assert.False(t, verifyStripeSignature("sec", payload, "t=notanumber,v1=abc", now))
}
