package ordersvc

import (
	"context"
	"time"

	"github.com/canteen-platform/order-core/internal/dal/interfaces/imenuitemrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iorderhistoryrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iorderitemrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iorderqueuerepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iorderrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/ioutboxrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/ipaymentrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iwalletrepo"
	menuitemrepo "github.com/canteen-platform/order-core/internal/dal/repositories/menuitem/postgres"
	orderrepo "github.com/canteen-platform/order-core/internal/dal/repositories/order/postgres"
	paymentrepo "github.com/canteen-platform/order-core/internal/dal/repositories/payment/postgres"
	"github.com/canteen-platform/order-core/internal/service/models/menuitem"
	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/service/models/orderhistory"
	"github.com/canteen-platform/order-core/internal/service/models/orderitem"
	"github.com/canteen-platform/order-core/internal/service/models/orderqueue"
	"github.com/canteen-platform/order-core/internal/service/models/outbox"
	"github.com/canteen-platform/order-core/internal/service/models/payment"
	"github.com/canteen-platform/order-core/internal/service/models/wallet"
	"github.com/google/uuid"
)

// fakeStore is the in-memory backing state shared by the fake repositories.
type fakeStore struct {
	menuItems  map[int64]menuitem.MenuItem
	orders     map[uuid.UUID]order.Order
	items      []orderitem.OrderItem
	history    []orderhistory.Entry
	queue      []orderqueue.Entry
	payments   map[uuid.UUID]payment.Payment
	wallets    map[int64]wallet.Wallet
	walletTxns []wallet.Transaction
	outbox     []outbox.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		menuItems: make(map[int64]menuitem.MenuItem),
		orders:    make(map[uuid.UUID]order.Order),
		payments:  make(map[uuid.UUID]payment.Payment),
		wallets:   make(map[int64]wallet.Wallet),
	}
}

func (s *fakeStore) clone() *fakeStore {
	c := newFakeStore()
	for k, v := range s.menuItems {
		c.menuItems[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	c.items = append([]orderitem.OrderItem(nil), s.items...)
	c.history = append([]orderhistory.Entry(nil), s.history...)
	c.queue = append([]orderqueue.Entry(nil), s.queue...)
	c.walletTxns = append([]wallet.Transaction(nil), s.walletTxns...)
	c.outbox = append([]outbox.Message(nil), s.outbox...)

	return c
}

// fakeUOW snapshots the store on Begin and restores it on Rollback, so a
// failed transaction leaves no trace, same as a real database rollback.
type fakeUOW struct {
	store     *fakeStore
	snapshot  *fakeStore
	committed bool
}

func newFakeUOW(store *fakeStore) *fakeUOW {
	return &fakeUOW{store: store}
}

func (u *fakeUOW) Begin(context.Context) error {
	u.snapshot = u.store.clone()
	u.committed = false

	return nil
}

func (u *fakeUOW) Commit(context.Context) error {
	u.committed = true
	u.snapshot = nil

	return nil
}

func (u *fakeUOW) Rollback(context.Context) error {
	if u.snapshot != nil && !u.committed {
		*u.store = *u.snapshot
		u.snapshot = nil
	}

	return nil
}

func (u *fakeUOW) OrderRepository() iorderrepo.IOrderRepository {
	return &fakeOrderRepo{s: u.store}
}

func (u *fakeUOW) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return &fakeOrderItemRepo{s: u.store}
}

func (u *fakeUOW) OrderHistoryRepository() iorderhistoryrepo.IOrderHistoryRepository {
	return &fakeOrderHistoryRepo{s: u.store}
}

func (u *fakeUOW) MenuItemRepository() imenuitemrepo.IMenuItemRepository {
	return &fakeMenuItemRepo{s: u.store}
}

func (u *fakeUOW) PaymentRepository() ipaymentrepo.IPaymentRepository {
	return &fakePaymentRepo{s: u.store}
}

func (u *fakeUOW) WalletRepository() iwalletrepo.IWalletRepository {
	return &fakeWalletRepo{s: u.store}
}

func (u *fakeUOW) OrderQueueRepository() iorderqueuerepo.IOrderQueueRepository {
	return &fakeOrderQueueRepo{s: u.store}
}

func (u *fakeUOW) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return &fakeOutboxRepo{s: u.store}
}

type fakeMenuItemRepo struct {
	s *fakeStore
}

func (r *fakeMenuItemRepo) GetForOrder(_ context.Context, id int64) (menuitem.MenuItem, error) {
	item, ok := r.s.menuItems[id]
	if !ok {
		return menuitem.MenuItem{}, menuitemrepo.ErrMenuItemNotFound
	}

	return item, nil
}

func (r *fakeMenuItemRepo) ReserveStock(_ context.Context, id int64, quantity int) (int, error) {
	item, ok := r.s.menuItems[id]
	if !ok || item.CurrentStock < quantity {
		return 0, menuitemrepo.ErrInsufficientStock
	}

	item.CurrentStock -= quantity
	r.s.menuItems[id] = item

	return item.CurrentStock, nil
}

func (r *fakeMenuItemRepo) Restock(_ context.Context, id int64, quantity int) (int, error) {
	item, ok := r.s.menuItems[id]
	if !ok {
		return 0, menuitemrepo.ErrMenuItemNotFound
	}

	item.CurrentStock += quantity
	r.s.menuItems[id] = item

	return item.CurrentStock, nil
}

type fakeOrderRepo struct {
	s *fakeStore
}

func (r *fakeOrderRepo) Insert(_ context.Context, o *order.Order) error {
	stored := *o
	stored.Items = nil
	r.s.orders[o.ID] = stored

	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, orderrepo.ErrOrderNotFound
	}

	return &o, nil
}

func (r *fakeOrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, o *order.Order) error {
	if _, ok := r.s.orders[o.ID]; !ok {
		return orderrepo.ErrOrderNotFound
	}

	stored := *o
	stored.Items = nil
	r.s.orders[o.ID] = stored

	return nil
}

func (r *fakeOrderRepo) Query(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	var result []order.Order
	for _, o := range r.s.orders {
		if len(filter.EmployeeIds) > 0 && !containsInt64(filter.EmployeeIds, o.EmployeeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, o.Status) {
			continue
		}
		result = append(result, o)
	}

	return result, nil
}

type fakeOrderItemRepo struct {
	s *fakeStore
}

func (r *fakeOrderItemRepo) BulkInsert(_ context.Context, items []orderitem.OrderItem) error {
	r.s.items = append(r.s.items, items...)

	return nil
}

func (r *fakeOrderItemRepo) ListByOrderIDs(_ context.Context, orderIDs []uuid.UUID) ([]orderitem.OrderItem, error) {
	var result []orderitem.OrderItem
	for _, item := range r.s.items {
		for _, id := range orderIDs {
			if item.OrderID == id {
				result = append(result, item)
			}
		}
	}

	return result, nil
}

type fakeOrderHistoryRepo struct {
	s *fakeStore
}

func (r *fakeOrderHistoryRepo) Insert(_ context.Context, entry orderhistory.Entry) error {
	r.s.history = append(r.s.history, entry)

	return nil
}

func (r *fakeOrderHistoryRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]orderhistory.Entry, error) {
	var result []orderhistory.Entry
	for _, entry := range r.s.history {
		if entry.OrderID == orderID {
			result = append(result, entry)
		}
	}

	return result, nil
}

type fakeOrderQueueRepo struct {
	s *fakeStore
}

func (r *fakeOrderQueueRepo) Enqueue(_ context.Context, orderID uuid.UUID) (int, error) {
	position := 0
	for _, entry := range r.s.queue {
		if entry.QueuePosition > position {
			position = entry.QueuePosition
		}
	}
	position++

	r.s.queue = append(r.s.queue, orderqueue.Entry{
		ID:            uuid.New(),
		OrderID:       orderID,
		QueuePosition: position,
		CreatedAt:     time.Now(),
	})

	return position, nil
}

func (r *fakeOrderQueueRepo) Remove(_ context.Context, orderID uuid.UUID) error {
	removed := 0
	kept := r.s.queue[:0]
	for _, entry := range r.s.queue {
		if entry.OrderID == orderID {
			removed = entry.QueuePosition

			continue
		}
		kept = append(kept, entry)
	}
	r.s.queue = kept

	if removed > 0 {
		for i := range r.s.queue {
			if r.s.queue[i].QueuePosition > removed {
				r.s.queue[i].QueuePosition--
			}
		}
	}

	return nil
}

func (r *fakeOrderQueueRepo) List(_ context.Context) ([]orderqueue.Entry, error) {
	return append([]orderqueue.Entry(nil), r.s.queue...), nil
}

// fakePaymentRepo implements the calls the order service makes; everything
// else panics through the embedded nil interface.
type fakePaymentRepo struct {
	ipaymentrepo.IPaymentRepository
	s *fakeStore
}

func (r *fakePaymentRepo) CompletedForOrder(_ context.Context, orderID uuid.UUID) (*payment.Payment, error) {
	for _, p := range r.s.payments {
		if p.OrderID != nil && *p.OrderID == orderID && p.Status == payment.StatusCompleted {
			found := p

			return &found, nil
		}
	}

	return nil, paymentrepo.ErrPaymentNotFound
}

func (r *fakePaymentRepo) MarkRefunded(_ context.Context, id uuid.UUID) (bool, error) {
	p, ok := r.s.payments[id]
	if !ok || p.Status != payment.StatusCompleted {
		return false, nil
	}

	p.Status = payment.StatusRefunded
	r.s.payments[id] = p

	return true, nil
}

type fakeWalletRepo struct {
	s *fakeStore
}

func (r *fakeWalletRepo) GetForUpdate(_ context.Context, userID int64) (wallet.Wallet, error) {
	w, ok := r.s.wallets[userID]
	if !ok {
		w = wallet.Wallet{UserID: userID}
		r.s.wallets[userID] = w
	}

	return w, nil
}

func (r *fakeWalletRepo) Get(_ context.Context, userID int64) (wallet.Wallet, error) {
	w, ok := r.s.wallets[userID]
	if !ok {
		return wallet.Wallet{UserID: userID}, nil
	}

	return w, nil
}

func (r *fakeWalletRepo) ApplyTransaction(_ context.Context, txn wallet.Transaction) error {
	r.s.walletTxns = append(r.s.walletTxns, txn)
	w := r.s.wallets[txn.UserID]
	w.UserID = txn.UserID
	w.Balance = txn.BalanceAfter
	r.s.wallets[txn.UserID] = w

	return nil
}

func (r *fakeWalletRepo) ListTransactions(_ context.Context, userID int64, _ int) ([]wallet.Transaction, error) {
	var result []wallet.Transaction
	for _, txn := range r.s.walletTxns {
		if txn.UserID == userID {
			result = append(result, txn)
		}
	}

	return result, nil
}

func (r *fakeWalletRepo) Totals(_ context.Context, userID int64) (int64, int64, error) {
	var credited, debited int64
	for _, txn := range r.s.walletTxns {
		if txn.UserID != userID {
			continue
		}
		if txn.Type == wallet.TransactionCredit {
			credited += txn.Amount
		} else {
			debited += txn.Amount
		}
	}

	return credited, debited, nil
}

type fakeOutboxRepo struct {
	s *fakeStore
}

func (r *fakeOutboxRepo) Insert(_ context.Context, msg outbox.Message) error {
	msg.ID = int64(len(r.s.outbox) + 1)
	r.s.outbox = append(r.s.outbox, msg)

	return nil
}

func (r *fakeOutboxRepo) GetPendingMessages(_ context.Context, limit int) ([]outbox.Message, error) {
	if len(r.s.outbox) > limit {
		return append([]outbox.Message(nil), r.s.outbox[:limit]...), nil
	}

	return append([]outbox.Message(nil), r.s.outbox...), nil
}

func (r *fakeOutboxRepo) Delete(_ context.Context, id int64) error {
	kept := r.s.outbox[:0]
	for _, msg := range r.s.outbox {
		if msg.ID != id {
			kept = append(kept, msg)
		}
	}
	r.s.outbox = kept

	return nil
}

func (r *fakeOutboxRepo) UpdateRetry(_ context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error {
	for i := range r.s.outbox {
		if r.s.outbox[i].ID == id {
			r.s.outbox[i].RetryCount = retryCount
			r.s.outbox[i].LastError = lastError
			r.s.outbox[i].NextRetryAt = nextRetryAt
		}
	}

	return nil
}

func containsInt64(haystack []int64, needle int64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}

	return false
}

func containsStatus(haystack []order.Status, needle order.Status) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}

	return false
}
