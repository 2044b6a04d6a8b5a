package orderqueue

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one kitchen queue slot. Positions are dense and gap-free among
// active orders: removing an entry shifts everything behind it forward.
type Entry struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"orderId"`
	QueuePosition int       `json:"queuePosition"`
	CreatedAt     time.Time `json:"createdAt"`
}
