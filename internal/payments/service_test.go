package payments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCheckout struct {
	params  []CheckoutParams
	err     error
	session *CheckoutSession
}

func (s *stubCheckout) CreateSession(_ context.Context, p CheckoutParams) (*CheckoutSession, error) {
	s.params = append(s.params, p)
	if s.err != nil {
		return nil, s.err
	}
	if s.session != nil {
		return s.session, nil
	}
	return &CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil
}

func TestTopUpRecordsPendingTransaction(t *testing.T) {
	ledger := NewInMemoryLedger()
	checkout := &stubCheckout{}
	svc := NewService(ledger, checkout, Options{Currency: "USD"}, nil)

	res, err := svc.TopUp(context.Background(), "patient-1", TopUpRequest{AmountCents: 2000})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs_1", res.CheckoutURL)
	require.Len(t, checkout.params, 1)
	assert.Equal(t, res.TransactionID, checkout.params[0].TransactionID)
	assert.Equal(t, "usd", checkout.params[0].Currency)

	txs, err := svc.Transactions(context.Background(), "patient-1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, StatusPending, txs[0].Status)
	assert.Zero(t, ledger.BalanceOf("patient-1").WalletBalanceCents, "wallet moves only on webhook")
}

func TestTopUpCheckoutFailureMarksTransactionFailed(t *testing.T) {
	ledger := NewInMemoryLedger()
	svc := NewService(ledger, &stubCheckout{err: errors.New("stripe down")}, Options{}, nil)

	_, err := svc.TopUp(context.Background(), "patient-1", TopUpRequest{AmountCents: 2000})
	require.Error(t, err)

	txs, err := svc.Transactions(context.Background(), "patient-1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, StatusFailed, txs[0].Status)
}

func TestTopUpValidation(t *testing.T) {
	svc := NewService(NewInMemoryLedger(), &stubCheckout{}, Options{}, nil)
	_, err := svc.TopUp(context.Background(), "patient-1", TopUpRequest{AmountCents: 50})
	require.Error(t, err)

	noCheckout := NewService(NewInMemoryLedger(), nil, Options{}, nil)
	_, err = noCheckout.TopUp(context.Background(), "patient-1", TopUpRequest{AmountCents: 500})
	assert.ErrorIs(t, err, ErrCheckoutUnavailable)
}

func TestPurchaseCoins(t *testing.T) {
	ledger := NewInMemoryLedger()
	ledger.Fund("patient-1", 1000)
	svc := NewService(ledger, nil, Options{CoinPriceCents: 150}, nil)

	res, err := svc.PurchaseCoins(context.Background(), "patient-1", CoinPurchaseRequest{Coins: 4})
	require.NoError(t, err)
	assert.EqualValues(t, 600, res.Transaction.AmountCents)
	assert.Equal(t, Balance{WalletBalanceCents: 400, Coins: 4}, res.Balance)

	_, err = svc.PurchaseCoins(context.Background(), "patient-1", CoinPurchaseRequest{Coins: 3})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, Balance{WalletBalanceCents: 400, Coins: 4}, ledger.BalanceOf("patient-1"), "failed purchase leaves the wallet untouched")
}

func TestCryptoChargeIsPendingStub(t *testing.T) {
	svc := NewService(NewInMemoryLedger(), nil, Options{}, nil)
	tx, err := svc.CryptoCharge(context.Background(), "patient-1", CryptoChargeRequest{AmountCents: 999, Currency: "USDC"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, tx.Status)
	assert.Equal(t, "usdc", tx.Currency)
	assert.True(t, strings.HasPrefix(tx.ExternalID, "crypto_"))
}
