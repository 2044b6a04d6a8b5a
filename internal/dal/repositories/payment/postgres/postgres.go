package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/canteen-platform/order-core/internal/dal/postgres"
	"github.com/canteen-platform/order-core/internal/service/models/currency"
	"github.com/canteen-platform/order-core/internal/service/models/payment"
	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrPaymentNotFound is returned when no payment matches the lookup.
var ErrPaymentNotFound = errors.New("payment not found")

var paymentColumns = []string{
	"id",
	"payment_reference",
	"user_id",
	"order_id",
	"payment_method",
	"transaction_type",
	"amount",
	"currency",
	"status",
	"phone_number",
	"transaction_id",
	"transaction_fee",
	"net_amount",
	"description",
	"failure_reason",
	"retry_count",
	"created_at",
	"updated_at",
	"processed_at",
	"completed_at",
}

type PaymentRepository struct {
	conn postgres.Querier
}

func NewPaymentRepository(conn postgres.Querier) *PaymentRepository {
	return &PaymentRepository{
		conn: conn,
	}
}

// Insert persists a new payment attempt.
func (r *PaymentRepository) Insert(ctx context.Context, p *payment.Payment) error {
	query, args, err := sq.Insert("payments").
		Columns(paymentColumns...).
		Values(
			p.ID,
			p.PaymentReference,
			p.UserID,
			p.OrderID,
			p.Method.String(),
			string(p.Type),
			p.Amount,
			p.Currency.String(),
			p.Status.String(),
			p.PhoneNumber,
			p.TransactionID,
			p.TransactionFee,
			p.NetAmount,
			p.Description,
			p.FailureReason,
			p.RetryCount,
			p.CreatedAt,
			p.UpdatedAt,
			p.ProcessedAt,
			p.CompletedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

// GetByID retrieves one payment.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// GetByReference retrieves a payment by its unique payment reference.
func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*payment.Payment, error) {
	return r.getOne(ctx, sq.Eq{"payment_reference": reference})
}

// GetByTransactionID retrieves a payment by the provider-assigned id.
func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	return r.getOne(ctx, sq.Eq{"transaction_id": transactionID})
}

func (r *PaymentRepository) getOne(ctx context.Context, where sq.Eq) (*payment.Payment, error) {
	query, args, err := sq.Select(paymentColumns...).
		From("payments").
		Where(where).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	p, err := scanPayment(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}

		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return p, nil
}

// HasActiveForOrder reports whether the order already has a payment in
// pending, processing or completed status. Used to reject duplicates.
func (r *PaymentRepository) HasActiveForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("payments").
		Where(sq.Eq{"order_id": orderID}).
		Where(sq.Eq{"status": []string{
			payment.StatusPending.String(),
			payment.StatusProcessing.String(),
			payment.StatusCompleted.String(),
		}}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build select query: %w", err)
	}

	var count int
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count active payments: %w", err)
	}

	return count > 0, nil
}

// FailedAttempts counts failed payment rows for an order.
func (r *PaymentRepository) FailedAttempts(ctx context.Context, orderID uuid.UUID) (int, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("payments").
		Where(sq.Eq{"order_id": orderID}).
		Where(sq.Eq{"status": payment.StatusFailed.String()}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build select query: %w", err)
	}

	var count int
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count failed payments: %w", err)
	}

	return count, nil
}

// MarkProcessing moves a pending payment to processing and stores the
// provider transaction id.
func (r *PaymentRepository) MarkProcessing(ctx context.Context, id uuid.UUID, transactionID string) (bool, error) {
	now := time.Now()

	return r.conditionalUpdate(ctx, sq.Update("payments").
		Set("status", payment.StatusProcessing.String()).
		Set("transaction_id", transactionID).
		Set("processed_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": payment.StatusPending.String()}))
}

// MarkCompleted finalizes a payment. The status condition makes the call
// idempotent: a second delivery of the same terminal result affects no rows.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, id uuid.UUID, transactionID string) (bool, error) {
	now := time.Now()

	builder := sq.Update("payments").
		Set("status", payment.StatusCompleted.String()).
		Set("completed_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": []string{
			payment.StatusPending.String(),
			payment.StatusProcessing.String(),
		}})
	if transactionID != "" {
		builder = builder.Set("transaction_id", transactionID)
	}

	return r.conditionalUpdate(ctx, builder)
}

// MarkFailed records a failure reason and bumps the retry counter, guarded by
// the same non-terminal condition as MarkCompleted.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return r.conditionalUpdate(ctx, sq.Update("payments").
		Set("status", payment.StatusFailed.String()).
		Set("failure_reason", reason).
		Set("retry_count", sq.Expr("retry_count + 1")).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": []string{
			payment.StatusPending.String(),
			payment.StatusProcessing.String(),
		}}))
}

// MarkRefunded moves a completed payment to refunded.
func (r *PaymentRepository) MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.conditionalUpdate(ctx, sq.Update("payments").
		Set("status", payment.StatusRefunded.String()).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": payment.StatusCompleted.String()}))
}

func (r *PaymentRepository) conditionalUpdate(ctx context.Context, builder sq.UpdateBuilder) (bool, error) {
	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update payment: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// CompletedForOrder returns the completed payment of an order, if any.
func (r *PaymentRepository) CompletedForOrder(ctx context.Context, orderID uuid.UUID) (*payment.Payment, error) {
	query, args, err := sq.Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"order_id": orderID}).
		Where(sq.Eq{"status": payment.StatusCompleted.String()}).
		OrderBy("created_at DESC").
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	p, err := scanPayment(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}

		return nil, fmt.Errorf("failed to get completed payment: %w", err)
	}

	return p, nil
}

// ListProcessing returns mobile-money payments stuck in processing for longer
// than the grace period. The poll worker resolves them against the provider.
func (r *PaymentRepository) ListProcessing(ctx context.Context, olderThan time.Time, limit int) ([]payment.Payment, error) {
	query, args, err := sq.Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"status": payment.StatusProcessing.String()}).
		Where(sq.LtOrEq{"processed_at": olderThan}).
		Where(sq.NotEq{"transaction_id": ""}).
		OrderBy("processed_at ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.list(ctx, query, args)
}

// QueryByUser lists a user's payments, newest first, optionally filtered by
// status and type.
func (r *PaymentRepository) QueryByUser(ctx context.Context, userID int64, status payment.Status, transactionType payment.Type, limit, offset int) ([]payment.Payment, error) {
	builder := sq.Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if status != "" {
		builder = builder.Where(sq.Eq{"status": status.String()})
	}
	if transactionType != "" {
		builder = builder.Where(sq.Eq{"transaction_type": string(transactionType)})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.list(ctx, query, args)
}

func (r *PaymentRepository) list(ctx context.Context, query string, args []interface{}) ([]payment.Payment, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var result []payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// InsertWebhook stores an inbound provider webhook before it is processed.
func (r *PaymentRepository) InsertWebhook(ctx context.Context, provider string, payload []byte, paymentID *uuid.UUID, processed bool) error {
	columns := []string{"provider", "payload", "payment_id", "processed", "created_at"}
	values := []interface{}{provider, payload, paymentID, processed, time.Now()}

	query, args, err := sq.Insert("payment_webhooks").
		Columns(columns...).
		Values(values...).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert payment webhook: %w", err)
	}

	return nil
}

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var (
		p             payment.Payment
		method, ptype string
		cur, status   string
	)
	err := row.Scan(
		&p.ID,
		&p.PaymentReference,
		&p.UserID,
		&p.OrderID,
		&method,
		&ptype,
		&p.Amount,
		&cur,
		&status,
		&p.PhoneNumber,
		&p.TransactionID,
		&p.TransactionFee,
		&p.NetAmount,
		&p.Description,
		&p.FailureReason,
		&p.RetryCount,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.ProcessedAt,
		&p.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.Method, err = paymethod.ParseMethod(method); err != nil {
		return nil, err
	}
	if p.Type, err = payment.ParseType(ptype); err != nil {
		return nil, err
	}
	if p.Currency, err = currency.ParseCurrency(cur); err != nil {
		return nil, err
	}
	if p.Status, err = payment.ParseStatus(status); err != nil {
		return nil, err
	}

	return &p, nil
}
