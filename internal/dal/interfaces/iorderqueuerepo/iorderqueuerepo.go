package iorderqueuerepo

import (
	"context"

	"github.com/canteen-platform/order-core/internal/service/models/orderqueue"
	"github.com/google/uuid"
)

type IOrderQueueRepository interface {
	Enqueue(ctx context.Context, orderID uuid.UUID) (int, error)
	Remove(ctx context.Context, orderID uuid.UUID) error
	List(ctx context.Context) ([]orderqueue.Entry, error)
}
