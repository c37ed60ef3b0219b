package payments

import "time"

// Transaction types.
const (
	TypeWalletTopUp        = "wallet_topup"
	TypeCoinPurchase       = "coin_purchase"
	TypeCryptoCharge       = "crypto_charge"
	TypeAppointmentPayment = "appointment_payment"
)

// Transaction statuses.
const (
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Payment methods.
const (
	MethodStripe = "stripe"
	MethodWallet = "wallet"
	MethodCrypto = "crypto"
)

// Transaction is one append-only entry in a patient's payment history.
type Transaction struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patientId"`
	Type          string    `json:"type"`
	AmountCents   int64     `json:"amountCents"`
	Coins         int64     `json:"coins,omitempty"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
	ExternalID    string    `json:"externalId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type TopUpRequest struct {
	AmountCents int64 `json:"amountCents" validate:"required,gte=100,lte=1000000"`
}

type TopUpResult struct {
	CheckoutURL   string `json:"checkoutUrl"`
	TransactionID string `json:"transactionId"`
}

type CoinPurchaseRequest struct {
	Coins int64 `json:"coins" validate:"required,gte=1,lte=100000"`
}

// Balance is a patient's wallet after a ledger change.
type Balance struct {
	WalletBalanceCents int64 `json:"walletBalanceCents"`
	Coins              int64 `json:"coins"`
}

type CoinPurchaseResult struct {
	Transaction *Transaction `json:"transaction"`
	Balance
}

type CryptoChargeRequest struct {
	AmountCents int64  `json:"amountCents" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,min=2,max=10,alphanum"`
}
