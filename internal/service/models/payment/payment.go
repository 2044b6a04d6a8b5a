package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/canteen-platform/order-core/internal/service/models/currency"
	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
	"github.com/google/uuid"
)

// Status of a payment attempt. Transitions are one-directional: a payment
// never moves backward out of a terminal status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// Type of the payment.
type Type string

const (
	TypeOrderPayment Type = "order_payment"
	TypeWalletTopup  Type = "wallet_topup"
	TypeRefund       Type = "refund"
)

// MaxRetries caps how many failed attempts an order payment may accumulate.
const MaxRetries = 3

var (
	ErrInvalidStatus = errors.New("invalid payment status")
	ErrInvalidType   = errors.New("invalid payment type")
)

func (s Status) String() string { return string(s) }

// IsTerminal reports whether the payment reached a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusCompleted,
		StatusFailed, StatusCancelled, StatusRefunded:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeOrderPayment, TypeWalletTopup, TypeRefund:
		return Type(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// Payment is one payment attempt. An order may have several rows after
// failures; a top-up has no order.
type Payment struct {
	ID               uuid.UUID         `json:"id"`
	PaymentReference string            `json:"paymentReference"`
	UserID           int64             `json:"userId"`
	OrderID          *uuid.UUID        `json:"orderId,omitempty"`
	Method           paymethod.Method  `json:"paymentMethod"`
	Type             Type              `json:"transactionType"`
	Amount           int64             `json:"amount"`
	Currency         currency.Currency `json:"currency"`
	Status           Status            `json:"status"`
	PhoneNumber      string            `json:"phoneNumber,omitempty"`
	TransactionID    string            `json:"transactionId,omitempty"`
	TransactionFee   int64             `json:"transactionFee"`
	NetAmount        int64             `json:"netAmount"`
	Description      string            `json:"description,omitempty"`
	FailureReason    string            `json:"failureReason,omitempty"`
	RetryCount       int               `json:"retryCount"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	ProcessedAt      *time.Time        `json:"processedAt,omitempty"`
	CompletedAt      *time.Time        `json:"completedAt,omitempty"`
}

// NewReference returns a unique human-readable payment reference.
func NewReference() string {
	return "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}

// IsSuccessful reports whether the payment completed.
func (p Payment) IsSuccessful() bool {
	return p.Status == StatusCompleted
}

// CanRetry reports whether another attempt is allowed after a failure.
func (p Payment) CanRetry() bool {
	return p.Status == StatusFailed && p.RetryCount < MaxRetries
}

// CalculateNetAmount applies the provider fee schedule and stores the result.
// Informational only: the payer is always charged the gross amount.
// MTN MoMo: 1% fee, floor 100 XAF, cap 500 XAF.
// Orange Money: 0.5% fee, floor 50 XAF, cap 300 XAF.
func (p *Payment) CalculateNetAmount() int64 {
	var fee int64
	switch p.Method {
	case paymethod.MethodMTNMoMo:
		fee = clamp(p.Amount/100, 100, 500)
	case paymethod.MethodOrangeMoney:
		fee = clamp(p.Amount*5/1000, 50, 300)
	default:
		fee = 0
	}

	p.TransactionFee = fee
	p.NetAmount = p.Amount - fee

	return p.NetAmount
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}
