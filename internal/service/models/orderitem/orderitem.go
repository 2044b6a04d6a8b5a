package orderitem

import (
	"time"

	"github.com/canteen-platform/order-core/internal/service/models/currency"
	"github.com/google/uuid"
)

// OrderItem is a single line of an order. UnitPrice is a snapshot of the menu
// item price taken when the order was created and never re-read afterwards.
type OrderItem struct {
	ID            uuid.UUID         `json:"id"`
	OrderID       uuid.UUID         `json:"orderId"`
	MenuItemID    int64             `json:"menuItemId"`
	MenuItemName  string            `json:"menuItemName"`
	Quantity      int               `json:"quantity"`
	UnitPrice     int64             `json:"unitPrice"`
	PriceCurrency currency.Currency `json:"priceCurrency"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// TotalPrice is quantity times the snapshotted unit price.
func (i OrderItem) TotalPrice() int64 {
	return int64(i.Quantity) * i.UnitPrice
}
