package ipaymentrepo

import (
	"context"
	"time"

	"github.com/canteen-platform/order-core/internal/service/models/payment"
	"github.com/google/uuid"
)

type IPaymentRepository interface {
	Insert(ctx context.Context, p *payment.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error)
	GetByReference(ctx context.Context, reference string) (*payment.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error)
	HasActiveForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	FailedAttempts(ctx context.Context, orderID uuid.UUID) (int, error)
	CompletedForOrder(ctx context.Context, orderID uuid.UUID) (*payment.Payment, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, transactionID string) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, transactionID string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error)
	ListProcessing(ctx context.Context, olderThan time.Time, limit int) ([]payment.Payment, error)
	QueryByUser(ctx context.Context, userID int64, status payment.Status, transactionType payment.Type, limit, offset int) ([]payment.Payment, error)
	InsertWebhook(ctx context.Context, provider string, payload []byte, paymentID *uuid.UUID, processed bool) error
}
