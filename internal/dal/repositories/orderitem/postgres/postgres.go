package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/canteen-platform/order-core/internal/dal/postgres"
	"github.com/canteen-platform/order-core/internal/service/models/currency"
	"github.com/canteen-platform/order-core/internal/service/models/orderitem"
	"github.com/google/uuid"
)

type OrderItemRepository struct {
	conn postgres.Querier
}

func NewOrderItemRepository(conn postgres.Querier) *OrderItemRepository {
	return &OrderItemRepository{
		conn: conn,
	}
}

// BulkInsert persists all items of a freshly created order. Items are
// immutable afterwards: the unit price snapshot is written exactly once.
func (r *OrderItemRepository) BulkInsert(ctx context.Context, items []orderitem.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	builder := sq.Insert("order_items").
		Columns(
			"id",
			"order_id",
			"menu_item_id",
			"menu_item_name",
			"quantity",
			"unit_price",
			"price_currency",
			"created_at",
		).
		PlaceholderFormat(sq.Dollar)

	for _, item := range items {
		builder = builder.Values(
			item.ID,
			item.OrderID,
			item.MenuItemID,
			item.MenuItemName,
			item.Quantity,
			item.UnitPrice,
			item.PriceCurrency.String(),
			item.CreatedAt,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to bulk insert order items: %w", err)
	}

	return nil
}

// ListByOrderIDs retrieves the items of the given orders.
func (r *OrderItemRepository) ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]orderitem.OrderItem, error) {
	if len(orderIDs) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	query, args, err := sq.Select(
		"id",
		"order_id",
		"menu_item_id",
		"menu_item_name",
		"quantity",
		"unit_price",
		"price_currency",
		"created_at",
	).
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("created_at ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var result []orderitem.OrderItem
	for rows.Next() {
		var (
			item orderitem.OrderItem
			cur  string
		)
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.MenuItemID,
			&item.MenuItemName,
			&item.Quantity,
			&item.UnitPrice,
			&cur,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		item.PriceCurrency, err = currency.ParseCurrency(cur)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
