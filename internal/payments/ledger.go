package payments

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Ledger records transactions and moves wallet balances. Every balance change
// happens together with its transaction row.
type Ledger interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	// CompleteTopUp marks a pending top-up succeeded and credits the wallet.
	// applied is false when the top-up had already been completed.
	CompleteTopUp(ctx context.Context, transactionID, externalID string) (tx *Transaction, applied bool, err error)
	FailTransaction(ctx context.Context, transactionID string) error
	// PurchaseCoins debits costCents and credits coins, or fails with
	// ErrInsufficientFunds leaving the wallet untouched.
	PurchaseCoins(ctx context.Context, tx *Transaction) (Balance, error)
	ListTransactions(ctx context.Context, patientID string) ([]*Transaction, error)
}

// InMemoryLedger is a Ledger for tests and database-less runs.
type InMemoryLedger struct {
	mu       sync.Mutex
	balances map[string]*Balance
	txs      map[string]*Transaction
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{balances: make(map[string]*Balance), txs: make(map[string]*Transaction)}
}

// Fund seeds a patient's wallet.
func (l *InMemoryLedger) Fund(patientID string, cents int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance(patientID).WalletBalanceCents += cents
}

// BalanceOf returns a patient's current wallet.
func (l *InMemoryLedger) BalanceOf(patientID string) Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.balance(patientID)
}

func (l *InMemoryLedger) balance(patientID string) *Balance {
	b, ok := l.balances[patientID]
	if !ok {
		b = &Balance{}
		l.balances[patientID] = b
	}
	return b
}

func (l *InMemoryLedger) CreateTransaction(ctx context.Context, tx *Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	cp := *tx
	l.txs[tx.ID] = &cp
	return nil
}

func (l *InMemoryLedger) CompleteTopUp(ctx context.Context, transactionID, externalID string) (*Transaction, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.txs[transactionID]
	if !ok || tx.Type != TypeWalletTopUp {
		return nil, false, ErrTransactionNotFound
	}
	if tx.Status == StatusSucceeded {
		cp := *tx
		return &cp, false, nil
	}
	tx.Status = StatusSucceeded
	if externalID != "" {
		tx.ExternalID = externalID
	}
	l.balance(tx.PatientID).WalletBalanceCents += tx.AmountCents
	cp := *tx
	return &cp, true, nil
}

func (l *InMemoryLedger) FailTransaction(ctx context.Context, transactionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.txs[transactionID]
	if !ok {
		return ErrTransactionNotFound
	}
	if tx.Status == StatusPending {
		tx.Status = StatusFailed
	}
	return nil
}

func (l *InMemoryLedger) PurchaseCoins(ctx context.Context, tx *Transaction) (Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balance(tx.PatientID)
	if b.WalletBalanceCents < tx.AmountCents {
		return Balance{}, ErrInsufficientFunds
	}
	b.WalletBalanceCents -= tx.AmountCents
	b.Coins += tx.Coins
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	cp := *tx
	l.txs[tx.ID] = &cp
	return *b, nil
}

func (l *InMemoryLedger) ListTransactions(ctx context.Context, patientID string) ([]*Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Transaction, 0)
	for _, tx := range l.txs {
		if tx.PatientID == patientID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
