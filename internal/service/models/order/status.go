package order

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Status is the unified order lifecycle state. Payment gating (VALIDATED →
// PAID) and kitchen progress (CONFIRMED → PREPARING → READY) share one state
// set; the transition table below is the only authority on what is legal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusValidated Status = "VALIDATED"
	StatusConfirmed Status = "CONFIRMED"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusPaid      Status = "PAID"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var ErrInvalidStatus = errors.New("invalid order status")

// ErrIllegalTransition is returned for any transition not in the table.
var ErrIllegalTransition = errors.New("illegal order status transition")

var transitions = map[Status][]Status{
	StatusPending:   {StatusValidated, StatusCancelled},
	StatusValidated: {StatusPaid, StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted},
	StatusPaid:      {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// CanTransitionTo reports whether the move s → to is in the transition table.
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}

	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsActive reports whether the order occupies a kitchen queue slot.
func (s Status) IsActive() bool {
	return s == StatusConfirmed || s == StatusPreparing
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusValidated, StatusConfirmed, StatusPreparing,
		StatusReady, StatusPaid, StatusCompleted, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}
