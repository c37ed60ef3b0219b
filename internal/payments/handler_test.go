package payments

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/careconnect/internal/auth"
	"github.com/wolfman30/careconnect/internal/http/middleware"
)

func TestPaymentRoutes(t *testing.T) {
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	ledger := NewInMemoryLedger()
	ledger.Fund("patient-1", 500)
	h := NewHandler(NewService(ledger, &stubCheckout{}, Options{CoinPriceCents: 100}, nil), nil)

	r := chi.NewRouter()
	r.Use(middleware.Authenticate(issuer), middleware.RequireRole(auth.RolePatient))
	r.Post("/wallet/topup", h.TopUp)
	r.Post("/coins/purchase", h.PurchaseCoins)
	r.Post("/crypto/charge", h.CryptoCharge)
	r.Get("/transactions", h.Transactions)

	token, _, err := issuer.Issue("patient-1", auth.RolePatient, nil)
	require.NoError(t, err)
	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var raw []byte
		if body != nil {
			raw, _ = json.Marshal(body)
		}
		req := httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/wallet/topup", TopUpRequest{AmountCents: 2500})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"checkoutUrl":"https://checkout.example/cs_1"`)

	w = do(http.MethodPost, "/coins/purchase", CoinPurchaseRequest{Coins: 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"walletBalanceCents":200`)

	w = do(http.MethodPost, "/coins/purchase", CoinPurchaseRequest{Coins: 3})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	w = do(http.MethodPost, "/coins/purchase", CoinPurchaseRequest{Coins: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(http.MethodPost, "/crypto/charge", CryptoChargeRequest{AmountCents: 100, Currency: "eth"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"chargeId":"crypto_`)

	w = do(http.MethodGet, "/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var txs []Transaction
	require.NoError(t, json.NewDecoder(w.Body).Decode(&txs))
	assert.Len(t, txs, 3)
}
