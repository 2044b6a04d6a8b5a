package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/canteen-platform/order-core/internal/dal/postgres"
	"github.com/canteen-platform/order-core/internal/service/models/currency"
	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/service/models/orderitem"
	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrOrderNotFound is returned when no order matches the given id.
var ErrOrderNotFound = errors.New("order not found")

var orderColumns = []string{
	"id",
	"order_number",
	"employee_id",
	"full_name",
	"email",
	"phone_number",
	"office_number",
	"special_instructions",
	"subtotal",
	"service_fee",
	"tax_amount",
	"discount_amount",
	"total_amount",
	"currency",
	"status",
	"payment_method",
	"created_at",
	"updated_at",
	"validated_at",
	"paid_at",
	"cancelled_at",
	"completed_at",
}

// OrderDal represents the order data access layer model.
type OrderDal struct {
	Id                  uuid.UUID
	OrderNumber         string
	EmployeeId          int64
	FullName            string
	Email               string
	PhoneNumber         string
	OfficeNumber        string
	SpecialInstructions string
	Subtotal            int64
	ServiceFee          int64
	TaxAmount           int64
	DiscountAmount      int64
	TotalAmount         int64
	Currency            string
	Status              string
	PaymentMethod       *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ValidatedAt         *time.Time
	PaidAt              *time.Time
	CancelledAt         *time.Time
	CompletedAt         *time.Time
}

// ToModel converts OrderDal to the service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	cur, err := currency.ParseCurrency(o.Currency)
	if err != nil {
		return nil, err
	}

	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return nil, err
	}

	var method *paymethod.Method
	if o.PaymentMethod != nil {
		m, err := paymethod.ParseMethod(*o.PaymentMethod)
		if err != nil {
			return nil, err
		}
		method = &m
	}

	return &order.Order{
		ID:                  o.Id,
		OrderNumber:         o.OrderNumber,
		EmployeeID:          o.EmployeeId,
		FullName:            o.FullName,
		Email:               o.Email,
		PhoneNumber:         o.PhoneNumber,
		OfficeNumber:        o.OfficeNumber,
		SpecialInstructions: o.SpecialInstructions,
		Subtotal:            o.Subtotal,
		ServiceFee:          o.ServiceFee,
		TaxAmount:           o.TaxAmount,
		DiscountAmount:      o.DiscountAmount,
		TotalAmount:         o.TotalAmount,
		Currency:            cur,
		Status:              status,
		PaymentMethod:       method,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
		ValidatedAt:         o.ValidatedAt,
		PaidAt:              o.PaidAt,
		CancelledAt:         o.CancelledAt,
		CompletedAt:         o.CompletedAt,
		Items:               []orderitem.OrderItem{},
	}, nil
}

type OrderRepository struct {
	conn postgres.Querier
}

func NewOrderRepository(conn postgres.Querier) *OrderRepository {
	return &OrderRepository{
		conn: conn,
	}
}

// Insert persists a new order.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	var method *string
	if o.PaymentMethod != nil {
		s := o.PaymentMethod.String()
		method = &s
	}

	query, args, err := sq.Insert("orders").
		Columns(orderColumns...).
		Values(
			o.ID,
			o.OrderNumber,
			o.EmployeeID,
			o.FullName,
			o.Email,
			o.PhoneNumber,
			o.OfficeNumber,
			o.SpecialInstructions,
			o.Subtotal,
			o.ServiceFee,
			o.TaxAmount,
			o.DiscountAmount,
			o.TotalAmount,
			o.Currency.String(),
			o.Status.String(),
			method,
			o.CreatedAt,
			o.UpdatedAt,
			o.ValidatedAt,
			o.PaidAt,
			o.CancelledAt,
			o.CompletedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// GetByID retrieves one order.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate retrieves one order with a row lock held for the duration of
// the surrounding transaction.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.get(ctx, id, true)
}

func (r *OrderRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	dal, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return dal.ToModel()
}

// UpdateStatus persists the status, payment method and transition timestamps
// of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	var method *string
	if o.PaymentMethod != nil {
		s := o.PaymentMethod.String()
		method = &s
	}

	query, args, err := sq.Update("orders").
		Set("status", o.Status.String()).
		Set("payment_method", method).
		Set("updated_at", o.UpdatedAt).
		Set("validated_at", o.ValidatedAt).
		Set("paid_at", o.PaidAt).
		Set("cancelled_at", o.CancelledAt).
		Set("completed_at", o.CompletedAt).
		Where(sq.Eq{"id": o.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// Query retrieves orders based on filter criteria.
func (r *OrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if len(filter.Ids) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.Ids})
	}
	if len(filter.EmployeeIds) > 0 {
		builder = builder.Where(sq.Eq{"employee_id": filter.EmployeeIds})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		builder = builder.Where(sq.Eq{"status": statuses})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		dal, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func scanOrder(row pgx.Row) (*OrderDal, error) {
	dal := OrderDal{}
	err := row.Scan(
		&dal.Id,
		&dal.OrderNumber,
		&dal.EmployeeId,
		&dal.FullName,
		&dal.Email,
		&dal.PhoneNumber,
		&dal.OfficeNumber,
		&dal.SpecialInstructions,
		&dal.Subtotal,
		&dal.ServiceFee,
		&dal.TaxAmount,
		&dal.DiscountAmount,
		&dal.TotalAmount,
		&dal.Currency,
		&dal.Status,
		&dal.PaymentMethod,
		&dal.CreatedAt,
		&dal.UpdatedAt,
		&dal.ValidatedAt,
		&dal.PaidAt,
		&dal.CancelledAt,
		&dal.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	return &dal, nil
}
