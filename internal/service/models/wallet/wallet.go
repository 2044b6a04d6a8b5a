package wallet

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType marks the direction of a ledger entry.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Source names the business event behind a ledger entry.
type Source string

const (
	SourceTopup           Source = "topup"
	SourceOrderPayment    Source = "order_payment"
	SourceRefund          Source = "refund"
	SourceBonus           Source = "bonus"
	SourceAdminAdjustment Source = "admin_adjustment"
)

// ErrInsufficientBalance is returned when a debit would make the balance
// negative.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// Wallet is the cached stored-value balance of one user. The balance must at
// all times equal the running sum of the user's transactions.
type Wallet struct {
	UserID    int64     `json:"userId"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Transaction is one append-only balance-changing ledger row with before and
// after snapshots.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	UserID        int64           `json:"userId"`
	Type          TransactionType `json:"transactionType"`
	Source        Source          `json:"source"`
	Amount        int64           `json:"amount"`
	BalanceBefore int64           `json:"balanceBefore"`
	BalanceAfter  int64           `json:"balanceAfter"`
	PaymentID     *uuid.UUID      `json:"paymentId,omitempty"`
	OrderID       *uuid.UUID      `json:"orderId,omitempty"`
	Description   string          `json:"description"`
	Reference     string          `json:"reference,omitempty"`
	CreatedBy     int64           `json:"createdBy"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// NewCredit builds a credit entry against the current wallet state. The
// balance math is done here so every caller produces consistent snapshots.
func NewCredit(w Wallet, amount int64, source Source, description string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	return Transaction{
		ID:            uuid.New(),
		UserID:        w.UserID,
		Type:          TransactionCredit,
		Source:        source,
		Amount:        amount,
		BalanceBefore: w.Balance,
		BalanceAfter:  w.Balance + amount,
		Description:   description,
		CreatedAt:     time.Now(),
	}, nil
}

// NewDebit builds a debit entry, rejecting any debit that would push the
// balance below zero.
func NewDebit(w Wallet, amount int64, source Source, description string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	if w.Balance < amount {
		return Transaction{}, ErrInsufficientBalance
	}

	return Transaction{
		ID:            uuid.New(),
		UserID:        w.UserID,
		Type:          TransactionDebit,
		Source:        source,
		Amount:        amount,
		BalanceBefore: w.Balance,
		BalanceAfter:  w.Balance - amount,
		Description:   description,
		CreatedAt:     time.Now(),
	}, nil
}
