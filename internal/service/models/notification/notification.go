package notification

import (
	"encoding/json"
	"time"

	"github.com/canteen-platform/order-core/internal/service/models/outbox"
	"github.com/google/uuid"
)

// Audience addresses a notification to a group instead of a single user.
type Audience string

const (
	AudienceCanteenAdmins Audience = "canteen_admins"
)

// Event is the payload published for the notification service. Delivery is
// fire-and-forget from the core's perspective.
type Event struct {
	UserID    int64      `json:"userId,omitempty"`
	Audience  Audience   `json:"audience,omitempty"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	OrderID   *uuid.UUID `json:"orderId,omitempty"`
	Type      string     `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`
}

const (
	TypeOrderStatus = "order_status"
	TypePayment     = "payment"
	TypeInventory   = "inventory"
)

const (
	QueueName    = "canteen.notifications"
	ExchangeName = ""
	RoutingKey   = "canteen.notifications"
)

// ToOutbox wraps the event into an outbox message for transactional emission.
func (e Event) ToOutbox() (outbox.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return outbox.Message{}, err
	}

	now := time.Now()

	return outbox.Message{
		QueueName:    QueueName,
		ExchangeName: ExchangeName,
		RoutingKey:   RoutingKey,
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   10,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}, nil
}
