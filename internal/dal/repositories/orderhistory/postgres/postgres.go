package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/canteen-platform/order-core/internal/dal/postgres"
	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/service/models/orderhistory"
	"github.com/google/uuid"
)

type OrderHistoryRepository struct {
	conn postgres.Querier
}

func NewOrderHistoryRepository(conn postgres.Querier) *OrderHistoryRepository {
	return &OrderHistoryRepository{
		conn: conn,
	}
}

// Insert appends one history row. History is append-only: there are no update
// or delete methods on purpose.
func (r *OrderHistoryRepository) Insert(ctx context.Context, entry orderhistory.Entry) error {
	query, args, err := sq.Insert("order_history").
		Columns(
			"id",
			"order_id",
			"status_from",
			"status_to",
			"changed_by",
			"notes",
			"timestamp",
		).
		Values(
			entry.ID,
			entry.OrderID,
			entry.StatusFrom.String(),
			entry.StatusTo.String(),
			entry.ChangedBy,
			entry.Notes,
			entry.Timestamp,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order history: %w", err)
	}

	return nil
}

// ListByOrder retrieves the transition timeline of one order, newest first.
func (r *OrderHistoryRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]orderhistory.Entry, error) {
	query, args, err := sq.Select(
		"id",
		"order_id",
		"status_from",
		"status_to",
		"changed_by",
		"notes",
		"timestamp",
	).
		From("order_history").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("timestamp DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order history: %w", err)
	}
	defer rows.Close()

	var result []orderhistory.Entry
	for rows.Next() {
		var (
			entry    orderhistory.Entry
			from, to string
		)
		err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&from,
			&to,
			&entry.ChangedBy,
			&entry.Notes,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order history: %w", err)
		}

		// "" → PENDING rows have an empty status_from
		if from != "" {
			entry.StatusFrom, err = order.ParseStatus(from)
			if err != nil {
				return nil, err
			}
		}
		entry.StatusTo, err = order.ParseStatus(to)
		if err != nil {
			return nil, err
		}

		result = append(result, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
