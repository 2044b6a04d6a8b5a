package iorderrepo

import (
	"context"

	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/google/uuid"
)

type IOrderRepository interface {
	Insert(ctx context.Context, o *order.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error)
	UpdateStatus(ctx context.Context, o *order.Order) error
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
}
