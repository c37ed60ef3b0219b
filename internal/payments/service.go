package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/careconnect/internal/observability/metrics"
	"github.com/wolfman30/careconnect/internal/validation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// CheckoutCreator opens a hosted card payment.
type CheckoutCreator interface {
	CreateSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
}

// Options carry the wallet pricing settings.
type Options struct {
	Currency       string
	CoinPriceCents int64
}

// Service implements wallet top-ups, coin purchases and crypto charges on
// top of a Ledger.
type Service struct {
	ledger         Ledger
	checkout       CheckoutCreator
	currency       string
	coinPriceCents int64
	metrics        *metrics.Metrics
	logger         *logging.Logger
	newID          func() string
}

func NewService(ledger Ledger, checkout CheckoutCreator, opts Options, logger *logging.Logger) *Service {
	if ledger == nil {
		panic("payments: ledger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	if opts.CoinPriceCents <= 0 {
		opts.CoinPriceCents = 100
	}
	return &Service{
		ledger:         ledger,
		checkout:       checkout,
		currency:       strings.ToLower(opts.Currency),
		coinPriceCents: opts.CoinPriceCents,
		logger:         logger,
		newID:          uuid.NewString,
	}
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// TopUp records a pending top-up and opens a checkout session for it. The
// wallet is credited later by the completion webhook.
func (s *Service) TopUp(ctx context.Context, patientID string, req TopUpRequest) (*TopUpResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if s.checkout == nil {
		return nil, ErrCheckoutUnavailable
	}
	tx := &Transaction{
		ID:            s.newID(),
		PatientID:     patientID,
		Type:          TypeWalletTopUp,
		AmountCents:   req.AmountCents,
		Currency:      s.currency,
		Status:        StatusPending,
		PaymentMethod: MethodStripe,
	}
	if err := s.ledger.CreateTransaction(ctx, tx); err != nil {
		s.metrics.ObservePayment(TypeWalletTopUp, "error")
		return nil, err
	}

	session, err := s.checkout.CreateSession(ctx, CheckoutParams{
		TransactionID: tx.ID,
		PatientID:     patientID,
		AmountCents:   tx.AmountCents,
		Currency:      tx.Currency,
	})
	if err != nil {
		if ferr := s.ledger.FailTransaction(context.WithoutCancel(ctx), tx.ID); ferr != nil {
			s.logger.Warn("failed to mark top-up failed", "error", ferr, "transaction_id", tx.ID)
		}
		s.metrics.ObservePayment(TypeWalletTopUp, "checkout_failed")
		return nil, fmt.Errorf("payments: create checkout: %w", err)
	}

	s.metrics.ObservePayment(TypeWalletTopUp, StatusPending)
	s.logger.Info("wallet top-up started", "transaction_id", tx.ID, "patient_id", patientID, "amount_cents", tx.AmountCents)
	return &TopUpResult{CheckoutURL: session.URL, TransactionID: tx.ID}, nil
}

// CompleteTopUp credits the wallet for a paid top-up. It is safe to call more
// than once for the same transaction.
func (s *Service) CompleteTopUp(ctx context.Context, transactionID, externalID string) (*Transaction, bool, error) {
	tx, applied, err := s.ledger.CompleteTopUp(ctx, transactionID, externalID)
	if err != nil {
		return nil, false, err
	}
	if applied {
		s.metrics.ObservePayment(TypeWalletTopUp, StatusSucceeded)
		s.logger.Info("wallet credited", "transaction_id", tx.ID, "patient_id", tx.PatientID, "amount_cents", tx.AmountCents)
	}
	return tx, applied, nil
}

// PurchaseCoins converts wallet balance into coins at the configured price.
func (s *Service) PurchaseCoins(ctx context.Context, patientID string, req CoinPurchaseRequest) (*CoinPurchaseResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	tx := &Transaction{
		ID:            s.newID(),
		PatientID:     patientID,
		Type:          TypeCoinPurchase,
		AmountCents:   req.Coins * s.coinPriceCents,
		Coins:         req.Coins,
		Currency:      s.currency,
		Status:        StatusSucceeded,
		PaymentMethod: MethodWallet,
	}
	bal, err := s.ledger.PurchaseCoins(ctx, tx)
	if err != nil {
		s.metrics.ObservePayment(TypeCoinPurchase, StatusFailed)
		return nil, err
	}
	s.metrics.ObservePayment(TypeCoinPurchase, StatusSucceeded)
	s.logger.Info("coins purchased", "transaction_id", tx.ID, "patient_id", patientID, "coins", req.Coins)
	return &CoinPurchaseResult{Transaction: tx, Balance: bal}, nil
}

// CryptoCharge records a pending crypto charge. No chain interaction happens;
// the charge id is generated locally.
func (s *Service) CryptoCharge(ctx context.Context, patientID string, req CryptoChargeRequest) (*Transaction, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	tx := &Transaction{
		ID:            s.newID(),
		PatientID:     patientID,
		Type:          TypeCryptoCharge,
		AmountCents:   req.AmountCents,
		Currency:      strings.ToLower(req.Currency),
		Status:        StatusPending,
		PaymentMethod: MethodCrypto,
		ExternalID:    "crypto_" + uuid.NewString(),
	}
	if err := s.ledger.CreateTransaction(ctx, tx); err != nil {
		s.metrics.ObservePayment(TypeCryptoCharge, "error")
		return nil, err
	}
	s.metrics.ObservePayment(TypeCryptoCharge, StatusPending)
	return tx, nil
}

func (s *Service) Transactions(ctx context.Context, patientID string) ([]*Transaction, error) {
	return s.ledger.ListTransactions(ctx, patientID)
}
