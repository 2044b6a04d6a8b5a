package orderhistory

import (
	"time"

	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/google/uuid"
)

// Entry is one append-only row per order status transition. Entries are never
// updated or deleted.
type Entry struct {
	ID         uuid.UUID    `json:"id"`
	OrderID    uuid.UUID    `json:"orderId"`
	StatusFrom order.Status `json:"statusFrom"`
	StatusTo   order.Status `json:"statusTo"`
	ChangedBy  int64        `json:"changedBy"`
	Notes      string       `json:"notes,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}
