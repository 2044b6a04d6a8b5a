package iorderitemrepo

import (
	"context"

	"github.com/canteen-platform/order-core/internal/service/models/orderitem"
	"github.com/google/uuid"
)

type IOrderItemRepository interface {
	BulkInsert(ctx context.Context, items []orderitem.OrderItem) error
	ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]orderitem.OrderItem, error)
}
