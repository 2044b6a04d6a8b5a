package providers

import (
	"context"
	"errors"

	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
)

// Status is a provider-reported payment state, normalized across providers.
type Status string

const (
	StatusSuccessful Status = "SUCCESSFUL"
	StatusFailed     Status = "FAILED"
	StatusExpired    Status = "EXPIRED"
	StatusPending    Status = "PENDING"
)

// IsTerminal reports whether the provider will not change this status again.
func (s Status) IsTerminal() bool {
	return s == StatusSuccessful || s == StatusFailed || s == StatusExpired
}

// ErrUnresolved signals that the provider call timed out or gave no verdict.
// The payment stays in processing; a webhook or poll resolves it later.
var ErrUnresolved = errors.New("provider request unresolved")

// RequestToPayInput is the normalized request-to-pay call.
type RequestToPayInput struct {
	Amount      int64
	Currency    string
	PhoneNumber string
	// Reference is our idempotency key for the provider, unique per attempt.
	Reference   string
	Description string
}

// RequestToPayResult is what the provider accepted.
type RequestToPayResult struct {
	TransactionID    string
	RedirectURL      string
	RequiresApproval bool
}

// Provider is one mobile-money backend.
type Provider interface {
	Method() paymethod.Method
	RequestToPay(ctx context.Context, in RequestToPayInput) (RequestToPayResult, error)
	GetStatus(ctx context.Context, transactionID string) (Status, error)
}
