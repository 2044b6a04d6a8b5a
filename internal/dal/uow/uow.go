package uow

import (
	"context"

	"github.com/canteen-platform/order-core/internal/dal/interfaces/imenuitemrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iorderhistoryrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iorderitemrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iorderqueuerepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iorderrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/ioutboxrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/ipaymentrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iwalletrepo"
	"github.com/canteen-platform/order-core/internal/dal/postgres"
	menuitemrepo "github.com/canteen-platform/order-core/internal/dal/repositories/menuitem/postgres"
	orderrepo "github.com/canteen-platform/order-core/internal/dal/repositories/order/postgres"
	orderhistoryrepo "github.com/canteen-platform/order-core/internal/dal/repositories/orderhistory/postgres"
	orderitemrepo "github.com/canteen-platform/order-core/internal/dal/repositories/orderitem/postgres"
	orderqueuerepo "github.com/canteen-platform/order-core/internal/dal/repositories/orderqueue/postgres"
	outboxrepo "github.com/canteen-platform/order-core/internal/dal/repositories/outbox/postgres"
	paymentrepo "github.com/canteen-platform/order-core/internal/dal/repositories/payment/postgres"
	walletrepo "github.com/canteen-platform/order-core/internal/dal/repositories/wallet/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// unitOfWork binds every repository to one connection. After Begin all
// repositories run on the same transaction; history rows, state mutations and
// outbox events therefore commit or roll back together.
type unitOfWork struct {
	pool *pgxpool.Pool
	tx   pgx.Tx

	orderRepo        iorderrepo.IOrderRepository
	orderItemRepo    iorderitemrepo.IOrderItemRepository
	orderHistoryRepo iorderhistoryrepo.IOrderHistoryRepository
	menuItemRepo     imenuitemrepo.IMenuItemRepository
	paymentRepo      ipaymentrepo.IPaymentRepository
	walletRepo       iwalletrepo.IWalletRepository
	orderQueueRepo   iorderqueuerepo.IOrderQueueRepository
	outboxRepo       ioutboxrepo.IOutboxRepository
}

func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	u := &unitOfWork{pool: client.Pool()}
	u.bind(client.Pool())

	return u
}

func (u *unitOfWork) bind(conn postgres.Querier) {
	u.orderRepo = orderrepo.NewOrderRepository(conn)
	u.orderItemRepo = orderitemrepo.NewOrderItemRepository(conn)
	u.orderHistoryRepo = orderhistoryrepo.NewOrderHistoryRepository(conn)
	u.menuItemRepo = menuitemrepo.NewMenuItemRepository(conn)
	u.paymentRepo = paymentrepo.NewPaymentRepository(conn)
	u.walletRepo = walletrepo.NewWalletRepository(conn)
	u.orderQueueRepo = orderqueuerepo.NewOrderQueueRepository(conn)
	u.outboxRepo = outboxrepo.NewOutboxRepository(conn)
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Rollback(ctx)
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *unitOfWork) OrderHistoryRepository() iorderhistoryrepo.IOrderHistoryRepository {
	return u.orderHistoryRepo
}

func (u *unitOfWork) MenuItemRepository() imenuitemrepo.IMenuItemRepository {
	return u.menuItemRepo
}

func (u *unitOfWork) PaymentRepository() ipaymentrepo.IPaymentRepository {
	return u.paymentRepo
}

func (u *unitOfWork) WalletRepository() iwalletrepo.IWalletRepository {
	return u.walletRepo
}

func (u *unitOfWork) OrderQueueRepository() iorderqueuerepo.IOrderQueueRepository {
	return u.orderQueueRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}
