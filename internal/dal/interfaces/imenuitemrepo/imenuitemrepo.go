package imenuitemrepo

import (
	"context"

	"github.com/canteen-platform/order-core/internal/service/models/menuitem"
)

// IMenuItemRepository is the inventory ledger plus the catalog read used at
// order creation.
type IMenuItemRepository interface {
	GetForOrder(ctx context.Context, id int64) (menuitem.MenuItem, error)
	ReserveStock(ctx context.Context, id int64, quantity int) (int, error)
	Restock(ctx context.Context, id int64, quantity int) (int, error)
}
