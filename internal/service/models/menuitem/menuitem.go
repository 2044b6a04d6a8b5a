package menuitem

import "github.com/canteen-platform/order-core/internal/service/models/currency"

// MenuItem is the slice of the menu catalog the order core reads: price for
// snapshotting, availability and stock for reservation.
type MenuItem struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Price             int64             `json:"price"`
	PriceCurrency     currency.Currency `json:"priceCurrency"`
	IsAvailable       bool              `json:"isAvailable"`
	CurrentStock      int               `json:"currentStock"`
	LowStockThreshold int               `json:"lowStockThreshold"`
}

// IsLowStock reports whether stock has reached the alert threshold.
func (m MenuItem) IsLowStock() bool {
	return m.CurrentStock <= m.LowStockThreshold
}
