package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/canteen-platform/order-core/internal/dal/postgres"
	"github.com/canteen-platform/order-core/internal/service/models/orderqueue"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderQueueRepository struct {
	conn postgres.Querier
}

func NewOrderQueueRepository(conn postgres.Querier) *OrderQueueRepository {
	return &OrderQueueRepository{
		conn: conn,
	}
}

// Enqueue appends the order at the back of the kitchen queue and returns its
// position. Positions stay dense because Remove compacts the tail.
func (r *OrderQueueRepository) Enqueue(ctx context.Context, orderID uuid.UUID) (int, error) {
	const query = `
		INSERT INTO order_queue (id, order_id, queue_position, created_at)
		SELECT $1, $2, COALESCE(MAX(queue_position), 0) + 1, $3
		FROM order_queue
		RETURNING queue_position
	`

	var position int
	err := r.conn.QueryRow(ctx, query, uuid.New(), orderID, time.Now()).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue order: %w", err)
	}

	return position, nil
}

// Remove deletes the order's queue entry and shifts every entry behind it one
// position forward, keeping the ordering gap-free.
func (r *OrderQueueRepository) Remove(ctx context.Context, orderID uuid.UUID) error {
	const del = `
		DELETE FROM order_queue
		WHERE order_id = $1
		RETURNING queue_position
	`

	var removed int
	if err := r.conn.QueryRow(ctx, del, orderID).Scan(&removed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Not queued; nothing to compact.
			return nil
		}

		return fmt.Errorf("failed to remove queue entry: %w", err)
	}

	const shift = `
		UPDATE order_queue
		SET queue_position = queue_position - 1
		WHERE queue_position > $1
	`
	if _, err := r.conn.Exec(ctx, shift, removed); err != nil {
		return fmt.Errorf("failed to compact queue positions: %w", err)
	}

	return nil
}

// List returns the queue front to back.
func (r *OrderQueueRepository) List(ctx context.Context) ([]orderqueue.Entry, error) {
	query, args, err := sq.Select("id", "order_id", "queue_position", "created_at").
		From("order_queue").
		OrderBy("queue_position ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order queue: %w", err)
	}
	defer rows.Close()

	var result []orderqueue.Entry
	for rows.Next() {
		var entry orderqueue.Entry
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.QueuePosition, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		result = append(result, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
