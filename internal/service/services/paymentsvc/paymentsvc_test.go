package paymentsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/canteen-platform/order-core/internal/providers"
	"github.com/canteen-platform/order-core/internal/service/models/actor"
	"github.com/canteen-platform/order-core/internal/service/models/currency"
	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/service/models/payment"
	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
	"github.com/canteen-platform/order-core/internal/service/models/wallet"
	"github.com/google/uuid"
)

var employee = actor.Actor{UserID: 42, Role: actor.RoleEmployee}

func newTestService(store *fakeStore, provs ...providers.Provider) *PaymentService {
	s := &PaymentService{
		newUOW:    func() unitOfWork { return newFakeUOW(store) },
		providers: make(map[paymethod.Method]providers.Provider),
		now:       time.Now,
	}
	for _, p := range provs {
		s.providers[p.Method()] = p
	}

	return s
}

func seedOrder(store *fakeStore, status order.Status, total int64) *order.Order {
	o := order.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD240900001",
		EmployeeID:  employee.UserID,
		Status:      status,
		Subtotal:    total,
		TotalAmount: total,
		Currency:    currency.CurrencyXAF,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	store.orders[o.ID] = o

	return &o
}

func seedPayment(store *fakeStore, p payment.Payment) payment.Payment {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PaymentReference == "" {
		p.PaymentReference = payment.NewReference()
	}
	store.payments[p.ID] = p

	return p
}

func setBalance(store *fakeStore, userID, balance int64) {
	store.wallets[userID] = wallet.Wallet{UserID: userID, Balance: balance}
}

func TestInitiateOrderPaymentWallet(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	setBalance(store, employee.UserID, 8000)
	svc := newTestService(store)

	result, err := svc.InitiateOrderPayment(context.Background(), employee, o.ID, paymethod.MethodWallet, "")
	if err != nil {
		t.Fatalf("InitiateOrderPayment returned error: %v", err)
	}

	if !result.Payment.IsSuccessful() {
		t.Errorf("payment status = %s, want completed", result.Payment.Status)
	}
	if store.wallets[employee.UserID].Balance != 3000 {
		t.Errorf("balance = %d, want 3000", store.wallets[employee.UserID].Balance)
	}
	if store.orders[o.ID].Status != order.StatusPaid {
		t.Errorf("order status = %s, want PAID", store.orders[o.ID].Status)
	}
	if store.orders[o.ID].PaymentMethod == nil || *store.orders[o.ID].PaymentMethod != paymethod.MethodWallet {
		t.Error("order payment method not recorded")
	}

	if len(store.walletTxns) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(store.walletTxns))
	}
	txn := store.walletTxns[0]
	if txn.Type != wallet.TransactionDebit || txn.Source != wallet.SourceOrderPayment || txn.Amount != 5000 {
		t.Errorf("ledger row = %+v, want 5000 order payment debit", txn)
	}

	if len(store.history) != 1 || store.history[0].StatusTo != order.StatusPaid {
		t.Errorf("history = %+v, want single row to PAID", store.history)
	}
	if len(store.outbox) == 0 {
		t.Error("payment notification not written to outbox")
	}
}

func TestInitiateOrderPaymentWalletInsufficient(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	setBalance(store, employee.UserID, 1000)
	svc := newTestService(store)

	_, err := svc.InitiateOrderPayment(context.Background(), employee, o.ID, paymethod.MethodWallet, "")
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// The failed attempt is committed and counts toward the cap.
	if len(store.payments) != 1 {
		t.Fatalf("payment rows = %d, want 1", len(store.payments))
	}
	for _, p := range store.payments {
		if p.Status != payment.StatusFailed || p.RetryCount != 1 {
			t.Errorf("payment = %s retry %d, want failed retry 1", p.Status, p.RetryCount)
		}
	}

	if store.orders[o.ID].Status != order.StatusValidated {
		t.Errorf("order status = %s, want VALIDATED untouched", store.orders[o.ID].Status)
	}
	if store.wallets[employee.UserID].Balance != 1000 {
		t.Errorf("balance = %d, want 1000 untouched", store.wallets[employee.UserID].Balance)
	}
}

func TestInitiateOrderPaymentNotPayable(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusPending, 5000)
	svc := newTestService(store)

	_, err := svc.InitiateOrderPayment(context.Background(), employee, o.ID, paymethod.MethodWallet, "")
	if !errors.Is(err, ErrOrderNotPayable) {
		t.Fatalf("err = %v, want ErrOrderNotPayable", err)
	}
}

func TestInitiateOrderPaymentByStranger(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	svc := newTestService(store)

	stranger := actor.Actor{UserID: 77, Role: actor.RoleEmployee}
	_, err := svc.InitiateOrderPayment(context.Background(), stranger, o.ID, paymethod.MethodWallet, "")
	if !errors.Is(err, ErrNotPaymentOwner) {
		t.Fatalf("err = %v, want ErrNotPaymentOwner", err)
	}
}

func TestInitiateOrderPaymentDuplicate(t *testing.T) {
	// completed covers an already-paid order whose status row lags behind.
	for _, status := range []payment.Status{
		payment.StatusPending,
		payment.StatusProcessing,
		payment.StatusCompleted,
	} {
		store := newFakeStore()
		o := seedOrder(store, order.StatusValidated, 5000)
		seedPayment(store, payment.Payment{
			UserID:  employee.UserID,
			OrderID: &o.ID,
			Method:  paymethod.MethodMTNMoMo,
			Type:    payment.TypeOrderPayment,
			Status:  status,
		})
		svc := newTestService(store)

		_, err := svc.InitiateOrderPayment(context.Background(), employee, o.ID, paymethod.MethodWallet, "")
		if !errors.Is(err, ErrDuplicatePayment) {
			t.Errorf("existing %s payment: err = %v, want ErrDuplicatePayment", status, err)
		}
	}
}

func TestInitiateOrderPaymentRetriesExhausted(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	for i := 0; i < payment.MaxRetries; i++ {
		seedPayment(store, payment.Payment{
			UserID:  employee.UserID,
			OrderID: &o.ID,
			Method:  paymethod.MethodMTNMoMo,
			Type:    payment.TypeOrderPayment,
			Status:  payment.StatusFailed,
		})
	}
	svc := newTestService(store)

	_, err := svc.InitiateOrderPayment(context.Background(), employee, o.ID, paymethod.MethodWallet, "")
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("err = %v, want ErrRetriesExhausted", err)
	}
}

func TestInitiateOrderPaymentMobileMoney(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	provider := &fakeProvider{
		method:    paymethod.MethodMTNMoMo,
		payResult: providers.RequestToPayResult{TransactionID: "tx-001", RequiresApproval: true},
	}
	svc := newTestService(store, provider)

	result, err := svc.InitiateOrderPayment(context.Background(), employee, o.ID, paymethod.MethodMTNMoMo, "677 11 22 33")
	if err != nil {
		t.Fatalf("InitiateOrderPayment returned error: %v", err)
	}

	if provider.payCalls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.payCalls)
	}
	if result.Payment.Status != payment.StatusProcessing {
		t.Errorf("payment status = %s, want processing", result.Payment.Status)
	}
	if !result.RequiresApproval {
		t.Error("approval flag not propagated")
	}

	stored := store.payments[result.Payment.ID]
	if stored.Status != payment.StatusProcessing || stored.TransactionID != "tx-001" {
		t.Errorf("stored payment = %s tx %q, want processing tx-001", stored.Status, stored.TransactionID)
	}
	if stored.PhoneNumber != "+237677112233" {
		t.Errorf("phone = %q, want +237677112233", stored.PhoneNumber)
	}

	// The order is only paid once the provider confirms.
	if store.orders[o.ID].Status != order.StatusValidated {
		t.Errorf("order status = %s, want VALIDATED", store.orders[o.ID].Status)
	}
}

func TestInitiateOrderPaymentProviderRejected(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	provider := &fakeProvider{
		method: paymethod.MethodMTNMoMo,
		payErr: errors.New("payer not found"),
	}
	svc := newTestService(store, provider)

	_, err := svc.InitiateOrderPayment(context.Background(), employee, o.ID, paymethod.MethodMTNMoMo, "677112233")
	if err == nil {
		t.Fatal("expected error from rejected provider call")
	}

	if len(store.payments) != 1 {
		t.Fatalf("payment rows = %d, want 1", len(store.payments))
	}
	for _, p := range store.payments {
		if p.Status != payment.StatusFailed {
			t.Errorf("payment status = %s, want failed", p.Status)
		}
	}
}

func TestInitiateOrderPaymentProviderTimeout(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	provider := &fakeProvider{
		method: paymethod.MethodMTNMoMo,
		payErr: providers.ErrUnresolved,
	}
	svc := newTestService(store, provider)

	result, err := svc.InitiateOrderPayment(context.Background(), employee, o.ID, paymethod.MethodMTNMoMo, "677112233")
	if err != nil {
		t.Fatalf("unresolved call must not fail the payment: %v", err)
	}

	// The provider may still have accepted the request, so the payment waits
	// in processing for the poll worker.
	if result.Payment.Status != payment.StatusProcessing {
		t.Errorf("payment status = %s, want processing", result.Payment.Status)
	}
}

func TestInitiateOrderPaymentUnknownProvider(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	svc := newTestService(store)

	_, err := svc.InitiateOrderPayment(context.Background(), employee, o.ID, paymethod.MethodOrangeMoney, "699112233")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestInitiateTopup(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{
		method:    paymethod.MethodOrangeMoney,
		payResult: providers.RequestToPayResult{TransactionID: "ORANGE-9", RedirectURL: "https://pay.example/9"},
	}
	svc := newTestService(store, provider)

	result, err := svc.InitiateTopup(context.Background(), employee, paymethod.MethodOrangeMoney, 10_000, "+237699112233")
	if err != nil {
		t.Fatalf("InitiateTopup returned error: %v", err)
	}

	if result.Payment.Type != payment.TypeWalletTopup {
		t.Errorf("type = %s, want wallet_topup", result.Payment.Type)
	}
	if result.Payment.OrderID != nil {
		t.Error("top-up must not reference an order")
	}
	if result.RedirectURL != "https://pay.example/9" {
		t.Errorf("redirect = %q, want provider redirect", result.RedirectURL)
	}

	// The wallet is only credited once the provider confirms.
	if store.wallets[employee.UserID].Balance != 0 {
		t.Errorf("balance = %d, want 0 before confirmation", store.wallets[employee.UserID].Balance)
	}
}

func TestInitiateTopupBounds(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeProvider{method: paymethod.MethodMTNMoMo})

	for _, amount := range []int64{MinTopupAmount - 1, MaxTopupAmount + 1} {
		_, err := svc.InitiateTopup(context.Background(), employee, paymethod.MethodMTNMoMo, amount, "677112233")
		if !errors.Is(err, ErrAmountOutOfRange) {
			t.Errorf("amount %d: err = %v, want ErrAmountOutOfRange", amount, err)
		}
	}
}

func TestInitiateTopupRejectsWallet(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.InitiateTopup(context.Background(), employee, paymethod.MethodWallet, 1000, "")
	if !errors.Is(err, paymethod.ErrInvalidMethod) {
		t.Fatalf("err = %v, want ErrInvalidMethod", err)
	}
}

func TestReconcileTopupSuccess(t *testing.T) {
	store := newFakeStore()
	p := seedPayment(store, payment.Payment{
		UserID:        employee.UserID,
		Method:        paymethod.MethodMTNMoMo,
		Type:          payment.TypeWalletTopup,
		Amount:        10_000,
		Currency:      currency.CurrencyXAF,
		Status:        payment.StatusProcessing,
		TransactionID: "tx-topup",
	})
	svc := newTestService(store)

	if err := svc.Reconcile(context.Background(), &p, providers.StatusSuccessful); err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if store.payments[p.ID].Status != payment.StatusCompleted {
		t.Errorf("payment status = %s, want completed", store.payments[p.ID].Status)
	}
	if store.wallets[employee.UserID].Balance != 10_000 {
		t.Errorf("balance = %d, want 10000", store.wallets[employee.UserID].Balance)
	}
	if len(store.walletTxns) != 1 || store.walletTxns[0].Source != wallet.SourceTopup {
		t.Errorf("ledger = %+v, want single topup credit", store.walletTxns)
	}

	// A second delivery of the same result must change nothing.
	if err := svc.Reconcile(context.Background(), &p, providers.StatusSuccessful); err != nil {
		t.Fatalf("second Reconcile returned error: %v", err)
	}
	if store.wallets[employee.UserID].Balance != 10_000 {
		t.Errorf("balance = %d after replay, want 10000", store.wallets[employee.UserID].Balance)
	}
	if len(store.walletTxns) != 1 {
		t.Errorf("ledger rows = %d after replay, want 1", len(store.walletTxns))
	}
}

func TestReconcileOrderPaymentSuccess(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	p := seedPayment(store, payment.Payment{
		UserID:        employee.UserID,
		OrderID:       &o.ID,
		Method:        paymethod.MethodMTNMoMo,
		Type:          payment.TypeOrderPayment,
		Amount:        5000,
		Currency:      currency.CurrencyXAF,
		Status:        payment.StatusProcessing,
		TransactionID: "tx-1",
	})
	svc := newTestService(store)

	if err := svc.Reconcile(context.Background(), &p, providers.StatusSuccessful); err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if store.orders[o.ID].Status != order.StatusPaid {
		t.Errorf("order status = %s, want PAID", store.orders[o.ID].Status)
	}
	if len(store.history) != 1 || store.history[0].StatusTo != order.StatusPaid {
		t.Errorf("history = %+v, want single row to PAID", store.history)
	}
}

func TestReconcileLateSuccessParksOnWallet(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusCancelled, 5000)
	p := seedPayment(store, payment.Payment{
		UserID:        employee.UserID,
		OrderID:       &o.ID,
		Method:        paymethod.MethodOrangeMoney,
		Type:          payment.TypeOrderPayment,
		Amount:        5000,
		Currency:      currency.CurrencyXAF,
		Status:        payment.StatusProcessing,
		TransactionID: "tx-late",
	})
	svc := newTestService(store)

	if err := svc.Reconcile(context.Background(), &p, providers.StatusSuccessful); err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if store.orders[o.ID].Status != order.StatusCancelled {
		t.Errorf("order status = %s, must stay CANCELLED", store.orders[o.ID].Status)
	}
	if store.payments[p.ID].Status != payment.StatusCompleted {
		t.Errorf("payment status = %s, want completed", store.payments[p.ID].Status)
	}
	if store.wallets[employee.UserID].Balance != 5000 {
		t.Errorf("balance = %d, want 5000 parked on wallet", store.wallets[employee.UserID].Balance)
	}
	if len(store.walletTxns) != 1 || store.walletTxns[0].Source != wallet.SourceRefund {
		t.Errorf("ledger = %+v, want single refund credit", store.walletTxns)
	}
}

func TestReconcileFailed(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	p := seedPayment(store, payment.Payment{
		UserID:        employee.UserID,
		OrderID:       &o.ID,
		Method:        paymethod.MethodMTNMoMo,
		Type:          payment.TypeOrderPayment,
		Amount:        5000,
		Status:        payment.StatusProcessing,
		TransactionID: "tx-2",
	})
	svc := newTestService(store)

	if err := svc.Reconcile(context.Background(), &p, providers.StatusFailed); err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if store.payments[p.ID].Status != payment.StatusFailed {
		t.Errorf("payment status = %s, want failed", store.payments[p.ID].Status)
	}
	if store.orders[o.ID].Status != order.StatusValidated {
		t.Errorf("order status = %s, must stay VALIDATED", store.orders[o.ID].Status)
	}
	if len(store.outbox) == 0 {
		t.Error("failure notification not written to outbox")
	}

	outboxBefore := len(store.outbox)
	if err := svc.Reconcile(context.Background(), &p, providers.StatusFailed); err != nil {
		t.Fatalf("second Reconcile returned error: %v", err)
	}
	if len(store.outbox) != outboxBefore {
		t.Error("replayed failure produced another notification")
	}
}

func TestReconcileOrderPaymentWithoutOrder(t *testing.T) {
	store := newFakeStore()
	p := seedPayment(store, payment.Payment{
		UserID:        employee.UserID,
		Method:        paymethod.MethodMTNMoMo,
		Type:          payment.TypeOrderPayment,
		Amount:        5000,
		Status:        payment.StatusProcessing,
		TransactionID: "tx-noorder",
	})
	svc := newTestService(store)

	err := svc.Reconcile(context.Background(), &p, providers.StatusSuccessful)
	if err == nil {
		t.Fatal("expected error for an order payment without an order id")
	}

	// Nothing was committed, so the row is still resolvable once repaired.
	if store.payments[p.ID].Status != payment.StatusProcessing {
		t.Errorf("payment status = %s, must stay processing", store.payments[p.ID].Status)
	}
	if len(store.walletTxns) != 0 {
		t.Errorf("ledger rows = %d, want 0", len(store.walletTxns))
	}
}

func TestReconcilePendingIsNoop(t *testing.T) {
	store := newFakeStore()
	p := seedPayment(store, payment.Payment{
		UserID: employee.UserID,
		Status: payment.StatusProcessing,
	})
	svc := newTestService(store)

	if err := svc.Reconcile(context.Background(), &p, providers.StatusPending); err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if store.payments[p.ID].Status != payment.StatusProcessing {
		t.Errorf("payment status = %s, must stay processing", store.payments[p.ID].Status)
	}
}

func TestHandleWebhookSuccess(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	p := seedPayment(store, payment.Payment{
		UserID:        employee.UserID,
		OrderID:       &o.ID,
		Method:        paymethod.MethodMTNMoMo,
		Type:          payment.TypeOrderPayment,
		Amount:        5000,
		Status:        payment.StatusProcessing,
		TransactionID: "tx-wh",
	})
	svc := newTestService(store)

	payload := []byte(`{"externalId":"` + p.PaymentReference + `","status":"SUCCESSFUL"}`)
	if err := svc.HandleWebhook(context.Background(), "mtn_momo", payload); err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}

	if store.payments[p.ID].Status != payment.StatusCompleted {
		t.Errorf("payment status = %s, want completed", store.payments[p.ID].Status)
	}
	if len(store.webhooks) != 1 {
		t.Fatalf("webhook rows = %d, want 1", len(store.webhooks))
	}
	row := store.webhooks[0]
	if !row.processed || row.paymentID == nil || *row.paymentID != p.ID {
		t.Errorf("webhook row = %+v, want processed row linked to payment", row)
	}
}

func TestHandleWebhookOrderIDKey(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	p := seedPayment(store, payment.Payment{
		UserID:        employee.UserID,
		OrderID:       &o.ID,
		Method:        paymethod.MethodOrangeMoney,
		Type:          payment.TypeOrderPayment,
		Amount:        5000,
		Status:        payment.StatusProcessing,
		TransactionID: "pt-7",
	})
	svc := newTestService(store)

	// Orange posts our payment reference under orderId.
	payload := []byte(`{"orderId":"` + p.PaymentReference + `","status":"SUCCESS"}`)
	if err := svc.HandleWebhook(context.Background(), "orange_money", payload); err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}

	if store.payments[p.ID].Status != payment.StatusCompleted {
		t.Errorf("payment status = %s, want completed", store.payments[p.ID].Status)
	}
	if store.orders[o.ID].Status != order.StatusPaid {
		t.Errorf("order status = %s, want PAID", store.orders[o.ID].Status)
	}
	if len(store.webhooks) != 1 || !store.webhooks[0].processed {
		t.Errorf("webhooks = %+v, want single processed row", store.webhooks)
	}
}

func TestHandleWebhookUnknownPayment(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	payload := []byte(`{"referenceId":"PAY-DOESNOTEXIST","status":"SUCCESSFUL"}`)
	if err := svc.HandleWebhook(context.Background(), "orange_money", payload); err != nil {
		t.Fatalf("unknown payment must be acknowledged, got: %v", err)
	}

	if len(store.webhooks) != 1 || store.webhooks[0].processed {
		t.Errorf("webhooks = %+v, want single unprocessed audit row", store.webhooks)
	}
}

func TestHandleWebhookMalformed(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	if err := svc.HandleWebhook(context.Background(), "mtn_momo", []byte("not json")); err != nil {
		t.Fatalf("malformed payload must be acknowledged, got: %v", err)
	}

	if len(store.webhooks) != 1 || store.webhooks[0].processed {
		t.Errorf("webhooks = %+v, want single unprocessed audit row", store.webhooks)
	}
}

func TestVerifyPayment(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	p := seedPayment(store, payment.Payment{
		UserID:        employee.UserID,
		OrderID:       &o.ID,
		Method:        paymethod.MethodMTNMoMo,
		Type:          payment.TypeOrderPayment,
		Amount:        5000,
		Status:        payment.StatusProcessing,
		TransactionID: "tx-verify",
	})
	provider := &fakeProvider{method: paymethod.MethodMTNMoMo, status: providers.StatusSuccessful}
	svc := newTestService(store, provider)

	verified, err := svc.VerifyPayment(context.Background(), employee, p.PaymentReference)
	if err != nil {
		t.Fatalf("VerifyPayment returned error: %v", err)
	}

	if provider.statusCalls != 1 {
		t.Errorf("status calls = %d, want 1", provider.statusCalls)
	}
	if verified.Status != payment.StatusCompleted {
		t.Errorf("verified status = %s, want completed", verified.Status)
	}
	if store.orders[o.ID].Status != order.StatusPaid {
		t.Errorf("order status = %s, want PAID", store.orders[o.ID].Status)
	}

	stranger := actor.Actor{UserID: 77, Role: actor.RoleEmployee}
	if _, err := svc.VerifyPayment(context.Background(), stranger, p.PaymentReference); !errors.Is(err, ErrNotPaymentOwner) {
		t.Errorf("stranger verify: err = %v, want ErrNotPaymentOwner", err)
	}
}

func TestPollProcessing(t *testing.T) {
	store := newFakeStore()
	o := seedOrder(store, order.StatusValidated, 5000)
	p := seedPayment(store, payment.Payment{
		UserID:        employee.UserID,
		OrderID:       &o.ID,
		Method:        paymethod.MethodMTNMoMo,
		Type:          payment.TypeOrderPayment,
		Amount:        5000,
		Status:        payment.StatusProcessing,
		TransactionID: "tx-stuck",
		UpdatedAt:     time.Now().Add(-time.Hour),
	})
	provider := &fakeProvider{method: paymethod.MethodMTNMoMo, status: providers.StatusExpired}
	svc := newTestService(store, provider)

	if err := svc.PollProcessing(context.Background()); err != nil {
		t.Fatalf("PollProcessing returned error: %v", err)
	}

	if provider.statusCalls != 1 {
		t.Errorf("status calls = %d, want 1", provider.statusCalls)
	}
	if store.payments[p.ID].Status != payment.StatusFailed {
		t.Errorf("payment status = %s, want failed after expiry", store.payments[p.ID].Status)
	}
}

func TestPollProcessingSkipsRecent(t *testing.T) {
	store := newFakeStore()
	seedPayment(store, payment.Payment{
		UserID:        employee.UserID,
		Method:        paymethod.MethodMTNMoMo,
		Type:          payment.TypeWalletTopup,
		Status:        payment.StatusProcessing,
		TransactionID: "tx-fresh",
		UpdatedAt:     time.Now(),
	})
	provider := &fakeProvider{method: paymethod.MethodMTNMoMo, status: providers.StatusSuccessful}
	svc := newTestService(store, provider)

	if err := svc.PollProcessing(context.Background()); err != nil {
		t.Fatalf("PollProcessing returned error: %v", err)
	}

	if provider.statusCalls != 0 {
		t.Errorf("status calls = %d, fresh payments must wait for their webhook", provider.statusCalls)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "677112233", want: "+237677112233"},
		{in: "+237677112233", want: "+237677112233"},
		{in: "237699887766", want: "+237699887766"},
		{in: "677 11 22 33", want: "+237677112233"},
		{in: "6-7711-2233", want: "+237677112233"},
		{in: " 650000001 ", want: "+237650000001"},
		{in: "77112233", wantErr: true},
		{in: "777112233", wantErr: true},
		{in: "67711223a", wantErr: true},
		{in: "+33612345678", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPhone) {
				t.Errorf("NormalizePhone(%q): err = %v, want ErrInvalidPhone", tt.in, err)
			}

			continue
		}
		if err != nil {
			t.Errorf("NormalizePhone(%q) returned error: %v", tt.in, err)

			continue
		}
		if got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
