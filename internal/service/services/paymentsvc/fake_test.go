package paymentsvc

import (
	"context"
	"time"

	"github.com/canteen-platform/order-core/internal/dal/interfaces/iorderhistoryrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iorderrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/ioutboxrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/ipaymentrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iwalletrepo"
	orderrepo "github.com/canteen-platform/order-core/internal/dal/repositories/order/postgres"
	paymentrepo "github.com/canteen-platform/order-core/internal/dal/repositories/payment/postgres"
	"github.com/canteen-platform/order-core/internal/providers"
	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/service/models/orderhistory"
	"github.com/canteen-platform/order-core/internal/service/models/outbox"
	"github.com/canteen-platform/order-core/internal/service/models/payment"
	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
	"github.com/canteen-platform/order-core/internal/service/models/wallet"
	"github.com/google/uuid"
)

type webhookRow struct {
	provider  string
	payload   []byte
	paymentID *uuid.UUID
	processed bool
}

type fakeStore struct {
	orders     map[uuid.UUID]order.Order
	history    []orderhistory.Entry
	payments   map[uuid.UUID]payment.Payment
	webhooks   []webhookRow
	wallets    map[int64]wallet.Wallet
	walletTxns []wallet.Transaction
	outbox     []outbox.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   make(map[uuid.UUID]order.Order),
		payments: make(map[uuid.UUID]payment.Payment),
		wallets:  make(map[int64]wallet.Wallet),
	}
}

func (s *fakeStore) clone() *fakeStore {
	c := newFakeStore()
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	c.history = append([]orderhistory.Entry(nil), s.history...)
	c.webhooks = append([]webhookRow(nil), s.webhooks...)
	c.walletTxns = append([]wallet.Transaction(nil), s.walletTxns...)
	c.outbox = append([]outbox.Message(nil), s.outbox...)

	return c
}

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

func (u *fakeUOW) OrderHistoryRepository() iorderhistoryrepo.IOrderHistoryRepository {
	return &fakeOrderHistoryRepo{s: u.store}
}

func (u *fakeUOW) PaymentRepository() ipaymentrepo.IPaymentRepository {
	return &fakePaymentRepo{s: u.store}
}

func (u *fakeUOW) WalletRepository() iwalletrepo.IWalletRepository {
	return &fakeWalletRepo{s: u.store}
}

func (u *fakeUOW) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return &fakeOutboxRepo{s: u.store}
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

func (r *fakeOrderRepo) Query(context.Context, *order.QueryOrdersModel) ([]order.Order, error) {
	return nil, nil
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

type fakePaymentRepo struct {
	s *fakeStore
}

func (r *fakePaymentRepo) Insert(_ context.Context, p *payment.Payment) error {
	r.s.payments[p.ID] = *p

	return nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	p, ok := r.s.payments[id]
	if !ok {
		return nil, paymentrepo.ErrPaymentNotFound
	}

	return &p, nil
}

func (r *fakePaymentRepo) GetByReference(_ context.Context, reference string) (*payment.Payment, error) {
	for _, p := range r.s.payments {
		if p.PaymentReference == reference {
			found := p

			return &found, nil
		}
	}

	return nil, paymentrepo.ErrPaymentNotFound
}

func (r *fakePaymentRepo) GetByTransactionID(_ context.Context, transactionID string) (*payment.Payment, error) {
	for _, p := range r.s.payments {
		if p.TransactionID != "" && p.TransactionID == transactionID {
			found := p

			return &found, nil
		}
	}

	return nil, paymentrepo.ErrPaymentNotFound
}

func (r *fakePaymentRepo) HasActiveForOrder(_ context.Context, orderID uuid.UUID) (bool, error) {
	for _, p := range r.s.payments {
		if p.OrderID == nil || *p.OrderID != orderID {
			continue
		}
		switch p.Status {
		case payment.StatusPending, payment.StatusProcessing, payment.StatusCompleted:
			return true, nil
		}
	}

	return false, nil
}

func (r *fakePaymentRepo) FailedAttempts(_ context.Context, orderID uuid.UUID) (int, error) {
	count := 0
	for _, p := range r.s.payments {
		if p.OrderID != nil && *p.OrderID == orderID && p.Status == payment.StatusFailed {
			count++
		}
	}

	return count, nil
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

func (r *fakePaymentRepo) MarkProcessing(_ context.Context, id uuid.UUID, transactionID string) (bool, error) {
	p, ok := r.s.payments[id]
	if !ok || p.Status != payment.StatusPending {
		return false, nil
	}

	p.Status = payment.StatusProcessing
	p.TransactionID = transactionID
	r.s.payments[id] = p

	return true, nil
}

func (r *fakePaymentRepo) MarkCompleted(_ context.Context, id uuid.UUID, transactionID string) (bool, error) {
	p, ok := r.s.payments[id]
	if !ok || (p.Status != payment.StatusPending && p.Status != payment.StatusProcessing) {
		return false, nil
	}

	p.Status = payment.StatusCompleted
	if transactionID != "" {
		p.TransactionID = transactionID
	}
	now := time.Now()
	p.CompletedAt = &now
	r.s.payments[id] = p

	return true, nil
}

func (r *fakePaymentRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) (bool, error) {
	p, ok := r.s.payments[id]
	if !ok || (p.Status != payment.StatusPending && p.Status != payment.StatusProcessing) {
		return false, nil
	}

	p.Status = payment.StatusFailed
	p.FailureReason = reason
	p.RetryCount++
	r.s.payments[id] = p

	return true, nil
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

func (r *fakePaymentRepo) ListProcessing(_ context.Context, olderThan time.Time, limit int) ([]payment.Payment, error) {
	var result []payment.Payment
	for _, p := range r.s.payments {
		if p.Status == payment.StatusProcessing && p.UpdatedAt.Before(olderThan) {
			result = append(result, p)
		}
		if len(result) == limit {
			break
		}
	}

	return result, nil
}

func (r *fakePaymentRepo) QueryByUser(_ context.Context, userID int64, status payment.Status, transactionType payment.Type, limit, _ int) ([]payment.Payment, error) {
	var result []payment.Payment
	for _, p := range r.s.payments {
		if p.UserID != userID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		if transactionType != "" && p.Type != transactionType {
			continue
		}
		result = append(result, p)
		if len(result) == limit {
			break
		}
	}

	return result, nil
}

func (r *fakePaymentRepo) InsertWebhook(_ context.Context, provider string, payload []byte, paymentID *uuid.UUID, processed bool) error {
	r.s.webhooks = append(r.s.webhooks, webhookRow{
		provider:  provider,
		payload:   payload,
		paymentID: paymentID,
		processed: processed,
	})

	return nil
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

// fakeProvider is a scripted mobile money backend.
type fakeProvider struct {
	method      paymethod.Method
	payResult   providers.RequestToPayResult
	payErr      error
	status      providers.Status
	statusErr   error
	payCalls    int
	statusCalls int
}

func (p *fakeProvider) Method() paymethod.Method {
	return p.method
}

func (p *fakeProvider) RequestToPay(context.Context, providers.RequestToPayInput) (providers.RequestToPayResult, error) {
	p.payCalls++

	return p.payResult, p.payErr
}

func (p *fakeProvider) GetStatus(context.Context, string) (providers.Status, error) {
	p.statusCalls++

	return p.status, p.statusErr
}
