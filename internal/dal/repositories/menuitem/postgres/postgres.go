package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/canteen-platform/order-core/internal/dal/postgres"
	"github.com/canteen-platform/order-core/internal/service/models/currency"
	"github.com/canteen-platform/order-core/internal/service/models/menuitem"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrMenuItemNotFound is returned when the catalog has no such item.
	ErrMenuItemNotFound = errors.New("menu item not found")
	// ErrInsufficientStock is returned when a reservation asks for more
	// units than are left.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// MenuItemRepository is the order core's view of the menu catalog: price and
// availability reads plus the stock ledger mutations.
type MenuItemRepository struct {
	conn postgres.Querier
}

func NewMenuItemRepository(conn postgres.Querier) *MenuItemRepository {
	return &MenuItemRepository{
		conn: conn,
	}
}

// GetForOrder reads the fields the order builder needs: price for the
// snapshot, availability and stock for reservation.
func (r *MenuItemRepository) GetForOrder(ctx context.Context, id int64) (menuitem.MenuItem, error) {
	query, args, err := sq.Select(
		"id",
		"name",
		"price",
		"price_currency",
		"is_available",
		"current_stock",
		"low_stock_threshold",
	).
		From("menu_items").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return menuitem.MenuItem{}, fmt.Errorf("failed to build select query: %w", err)
	}

	var (
		item menuitem.MenuItem
		cur  string
	)
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&item.ID,
		&item.Name,
		&item.Price,
		&cur,
		&item.IsAvailable,
		&item.CurrentStock,
		&item.LowStockThreshold,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return menuitem.MenuItem{}, ErrMenuItemNotFound
		}

		return menuitem.MenuItem{}, fmt.Errorf("failed to get menu item: %w", err)
	}

	item.PriceCurrency, err = currency.ParseCurrency(cur)
	if err != nil {
		return menuitem.MenuItem{}, err
	}

	return item, nil
}

// ReserveStock atomically checks and decrements stock in a single statement,
// so two concurrent orders for the last unit cannot both succeed. Returns the
// remaining stock.
func (r *MenuItemRepository) ReserveStock(ctx context.Context, id int64, quantity int) (int, error) {
	const query = `
		UPDATE menu_items
		SET current_stock = current_stock - $2
		WHERE id = $1 AND current_stock >= $2
		RETURNING current_stock
	`

	var newStock int
	if err := r.conn.QueryRow(ctx, query, id, quantity).Scan(&newStock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrInsufficientStock
		}

		return 0, fmt.Errorf("failed to reserve stock: %w", err)
	}

	return newStock, nil
}

// Restock atomically returns units to stock on cancellation or refund.
func (r *MenuItemRepository) Restock(ctx context.Context, id int64, quantity int) (int, error) {
	const query = `
		UPDATE menu_items
		SET current_stock = current_stock + $2
		WHERE id = $1
		RETURNING current_stock
	`

	var newStock int
	if err := r.conn.QueryRow(ctx, query, id, quantity).Scan(&newStock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrMenuItemNotFound
		}

		return 0, fmt.Errorf("failed to restock: %w", err)
	}

	return newStock, nil
}
