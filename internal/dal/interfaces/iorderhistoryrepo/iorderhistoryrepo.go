package iorderhistoryrepo

import (
	"context"

	"github.com/canteen-platform/order-core/internal/service/models/orderhistory"
	"github.com/google/uuid"
)

type IOrderHistoryRepository interface {
	Insert(ctx context.Context, entry orderhistory.Entry) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]orderhistory.Entry, error)
}
