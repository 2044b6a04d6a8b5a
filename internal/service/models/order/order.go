package order

import (
	"strings"
	"time"

	"github.com/canteen-platform/order-core/internal/service/models/currency"
	"github.com/canteen-platform/order-core/internal/service/models/orderitem"
	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
	"github.com/google/uuid"
)

// Order is an order placed by an employee. Totals are always recomputed from
// the items, never taken from client input.
type Order struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"orderNumber"`
	EmployeeID  int64     `json:"employeeId"`

	// Contact snapshot captured at checkout, immutable afterwards.
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	OfficeNumber string `json:"officeNumber,omitempty"`

	SpecialInstructions string `json:"specialInstructions,omitempty"`

	Subtotal       int64             `json:"subtotal"`
	ServiceFee     int64             `json:"serviceFee"`
	TaxAmount      int64             `json:"taxAmount"`
	DiscountAmount int64             `json:"discountAmount"`
	TotalAmount    int64             `json:"totalAmount"`
	Currency       currency.Currency `json:"currency"`

	Status        Status            `json:"status"`
	PaymentMethod *paymethod.Method `json:"paymentMethod,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ValidatedAt *time.Time `json:"validatedAt,omitempty"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	Items []orderitem.OrderItem `json:"items"`
}

// NewOrderNumber returns a human-readable unique order number.
func NewOrderNumber() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// Rates holds the configured service fee and tax rates in basis points.
// Both are zero in the current deployment but the computation stays generic.
type Rates struct {
	ServiceFeeBps int64
	TaxBps        int64
}

// CalculateTotals recomputes subtotal, fee, tax and total from the given
// items. The invariant totalAmount == subtotal + serviceFee + taxAmount -
// discountAmount holds by construction.
func (o *Order) CalculateTotals(rates Rates) {
	var subtotal int64
	for _, item := range o.Items {
		subtotal += item.TotalPrice()
	}

	o.Subtotal = subtotal
	o.ServiceFee = subtotal * rates.ServiceFeeBps / 10000
	o.TaxAmount = subtotal * rates.TaxBps / 10000
	o.TotalAmount = o.Subtotal + o.ServiceFee + o.TaxAmount - o.DiscountAmount
}

// StampTransition records the transition timestamp for the new status.
func (o *Order) StampTransition(to Status, at time.Time) {
	o.Status = to
	o.UpdatedAt = at

	switch to {
	case StatusValidated:
		o.ValidatedAt = &at
	case StatusPaid:
		o.PaidAt = &at
	case StatusCancelled:
		o.CancelledAt = &at
	case StatusCompleted:
		o.CompletedAt = &at
	}
}
