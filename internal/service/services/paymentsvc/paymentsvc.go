package paymentsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/canteen-platform/order-core/internal/dal/interfaces/iorderhistoryrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iorderrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/ioutboxrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/ipaymentrepo"
	"github.com/canteen-platform/order-core/internal/dal/interfaces/iwalletrepo"
	"github.com/canteen-platform/order-core/internal/dal/postgres"
	"github.com/canteen-platform/order-core/internal/dal/uow"
	"github.com/canteen-platform/order-core/internal/providers"
	"github.com/canteen-platform/order-core/internal/service/models/actor"
	"github.com/canteen-platform/order-core/internal/service/models/currency"
	"github.com/canteen-platform/order-core/internal/service/models/notification"
	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/service/models/orderhistory"
	"github.com/canteen-platform/order-core/internal/service/models/payment"
	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
	"github.com/canteen-platform/order-core/internal/service/models/wallet"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// Top-up bounds in XAF.
const (
	MinTopupAmount int64 = 100
	MaxTopupAmount int64 = 1_000_000
)

var (
	// ErrOrderNotPayable is returned when the order is not awaiting payment.
	ErrOrderNotPayable = errors.New("order is not awaiting payment")
	// ErrDuplicatePayment is returned when the order already has an active payment.
	ErrDuplicatePayment = errors.New("order already has an active payment")
	// ErrRetriesExhausted is returned after the failed-attempt cap is hit.
	ErrRetriesExhausted = errors.New("payment retry limit reached")
	// ErrInvalidPhone is returned for phone numbers no Cameroonian operator serves.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrAmountOutOfRange is returned for top-ups outside the allowed bounds.
	ErrAmountOutOfRange = fmt.Errorf("top-up amount must be between %d and %d XAF", MinTopupAmount, MaxTopupAmount)
	// ErrUnknownProvider is returned when no backend serves the chosen method.
	ErrUnknownProvider = errors.New("no provider configured for payment method")
	// ErrNotPaymentOwner is returned when a user touches someone else's payment.
	ErrNotPaymentOwner = errors.New("payment belongs to another user")
)

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderHistoryRepository() iorderhistoryrepo.IOrderHistoryRepository
	PaymentRepository() ipaymentrepo.IPaymentRepository
	WalletRepository() iwalletrepo.IWalletRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// PaymentService orchestrates payment attempts across the wallet and the
// mobile money providers, and reconciles asynchronous results back onto
// payments, orders and wallets.
//
// A database transaction is never held across a provider call: the payment
// row is committed first, the network happens, and the outcome lands in a
// separate short transaction.
type PaymentService struct {
	pgClient  *postgres.Client
	newUOW    func() unitOfWork
	providers map[paymethod.Method]providers.Provider
	now       func() time.Time
}

// option is a function that configures the PaymentService.
type option func(*PaymentService)

// MustNewPaymentService creates a new PaymentService.
func MustNewPaymentService(opts ...option) *PaymentService {
	s := &PaymentService{
		providers: make(map[paymethod.Method]providers.Provider),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the PaymentService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *PaymentService) {
		s.pgClient = pgClient
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithProvider registers a mobile money backend.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProvider(p providers.Provider) option {
	return func(s *PaymentService) {
		s.providers[p.Method()] = p
	}
}

// InitiateResult is what the caller needs to continue the payment flow.
type InitiateResult struct {
	Payment *payment.Payment `json:"payment"`
	// RedirectURL is set for Orange Money web payments.
	RedirectURL string `json:"redirectUrl,omitempty"`
	// RequiresApproval is set when the payer must confirm on their handset.
	RequiresApproval bool `json:"requiresApproval,omitempty"`
}

// InitiateOrderPayment starts a payment attempt against a validated order.
//
// The wallet path settles synchronously. Insufficient balance is recorded as
// a committed failed attempt, counting toward the retry cap, and the order
// stays where it was.
//
// Mobile money paths commit the pending payment first, then call the
// provider; the attempt resolves later through webhook, verification or the
// poll worker.
func (s *PaymentService) InitiateOrderPayment(ctx context.Context, act actor.Actor, orderID uuid.UUID, method paymethod.Method, phoneNumber string) (*InitiateResult, error) {
	now := s.now()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer work.Rollback(ctx)

	o, err := work.OrderRepository().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !act.CanManageOrders() && o.EmployeeID != act.UserID {
		return nil, ErrNotPaymentOwner
	}
	if !o.Status.CanTransitionTo(order.StatusPaid) {
		return nil, fmt.Errorf("%w: status is %s", ErrOrderNotPayable, o.Status)
	}

	active, err := work.PaymentRepository().HasActiveForOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrDuplicatePayment
	}

	failed, err := work.PaymentRepository().FailedAttempts(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if failed >= payment.MaxRetries {
		return nil, ErrRetriesExhausted
	}

	p := &payment.Payment{
		ID:               uuid.New(),
		PaymentReference: payment.NewReference(),
		UserID:           o.EmployeeID,
		OrderID:          &o.ID,
		Method:           method,
		Type:             payment.TypeOrderPayment,
		Amount:           o.TotalAmount,
		Currency:         o.Currency,
		Status:           payment.StatusPending,
		Description:      fmt.Sprintf("Payment for order #%s", o.OrderNumber),
		RetryCount:       failed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	p.CalculateNetAmount()

	if method == paymethod.MethodWallet {
		return s.settleFromWallet(ctx, work, o, p, act, now)
	}

	provider, ok := s.providers[method]
	if !ok {
		return nil, ErrUnknownProvider
	}

	p.PhoneNumber, err = NormalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	if err := work.PaymentRepository().Insert(ctx, p); err != nil {
		return nil, err
	}
	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return s.requestToPay(ctx, provider, p)
}

// InitiateTopup starts a wallet top-up through a mobile money provider. The
// credit only lands when the provider confirms.
func (s *PaymentService) InitiateTopup(ctx context.Context, act actor.Actor, method paymethod.Method, amount int64, phoneNumber string) (*InitiateResult, error) {
	if !method.IsMobileMoney() {
		return nil, fmt.Errorf("%w: cannot top up a wallet from %s", paymethod.ErrInvalidMethod, method)
	}
	if amount < MinTopupAmount || amount > MaxTopupAmount {
		return nil, ErrAmountOutOfRange
	}

	provider, ok := s.providers[method]
	if !ok {
		return nil, ErrUnknownProvider
	}

	phone, err := NormalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &payment.Payment{
		ID:               uuid.New(),
		PaymentReference: payment.NewReference(),
		UserID:           act.UserID,
		Method:           method,
		Type:             payment.TypeWalletTopup,
		Amount:           amount,
		Currency:         currency.CurrencyXAF,
		Status:           payment.StatusPending,
		PhoneNumber:      phone,
		Description:      "Wallet top-up",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	p.CalculateNetAmount()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer work.Rollback(ctx)

	if err := work.PaymentRepository().Insert(ctx, p); err != nil {
		return nil, err
	}
	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return s.requestToPay(ctx, provider, p)
}

func (s *PaymentService) settleFromWallet(ctx context.Context, work unitOfWork, o *order.Order, p *payment.Payment, act actor.Actor, now time.Time) (*InitiateResult, error) {
	w, err := work.WalletRepository().GetForUpdate(ctx, o.EmployeeID)
	if err != nil {
		return nil, err
	}

	debit, err := wallet.NewDebit(w, o.TotalAmount, wallet.SourceOrderPayment,
		fmt.Sprintf("Payment for order #%s", o.OrderNumber))
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			// The failed attempt is committed so it counts toward the cap.
			p.Status = payment.StatusFailed
			p.FailureReason = "insufficient wallet balance"
			p.RetryCount++
			if insertErr := work.PaymentRepository().Insert(ctx, p); insertErr != nil {
				return nil, insertErr
			}
			if commitErr := work.Commit(ctx); commitErr != nil {
				return nil, commitErr
			}

			slog.Info("Wallet payment rejected",
				"payment_reference", p.PaymentReference,
				"order_id", o.ID,
				"balance", w.Balance,
				"required", o.TotalAmount,
			)
		}

		return nil, err
	}

	debit.OrderID = &o.ID
	debit.PaymentID = &p.ID
	debit.Reference = p.PaymentReference
	debit.CreatedBy = act.UserID
	debit.CreatedAt = now

	p.Status = payment.StatusCompleted
	p.CompletedAt = &now
	if err := work.PaymentRepository().Insert(ctx, p); err != nil {
		return nil, err
	}

	if err := work.WalletRepository().ApplyTransaction(ctx, debit); err != nil {
		return nil, err
	}

	if err := s.markOrderPaid(ctx, work, o, p, now); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	slog.Info("Wallet payment completed",
		"payment_reference", p.PaymentReference,
		"order_id", o.ID,
		"amount", p.Amount,
	)

	return &InitiateResult{Payment: p}, nil
}

func (s *PaymentService) requestToPay(ctx context.Context, provider providers.Provider, p *payment.Payment) (*InitiateResult, error) {
	result, err := provider.RequestToPay(ctx, providers.RequestToPayInput{
		Amount:      p.Amount,
		Currency:    p.Currency.String(),
		PhoneNumber: p.PhoneNumber,
		Reference:   p.PaymentReference,
		Description: p.Description,
	})
	if err != nil && !errors.Is(err, providers.ErrUnresolved) {
		reason := fmt.Sprintf("provider rejected request: %v", err)
		if _, markErr := s.newUOW().PaymentRepository().MarkFailed(ctx, p.ID, reason); markErr != nil {
			slog.Error("Failed to mark payment failed", "payment_reference", p.PaymentReference, "error", markErr)
		}

		return nil, fmt.Errorf("payment %s: %w", p.PaymentReference, err)
	}

	// On timeout the provider may still have accepted the request, so the
	// payment moves to processing under our reference and gets resolved by
	// the poll worker.
	if _, err := s.newUOW().PaymentRepository().MarkProcessing(ctx, p.ID, result.TransactionID); err != nil {
		return nil, err
	}
	p.Status = payment.StatusProcessing
	p.TransactionID = result.TransactionID

	slog.Info("Payment sent to provider",
		"payment_reference", p.PaymentReference,
		"method", p.Method,
		"transaction_id", result.TransactionID,
	)

	return &InitiateResult{
		Payment:          p,
		RedirectURL:      result.RedirectURL,
		RequiresApproval: result.RequiresApproval,
	}, nil
}

// Reconcile applies a provider-reported status to a payment. It is safe to
// call any number of times with the same result: the first call wins and the
// rest affect nothing.
func (s *PaymentService) Reconcile(ctx context.Context, p *payment.Payment, status providers.Status) error {
	switch status {
	case providers.StatusSuccessful:
		return s.complete(ctx, p)
	case providers.StatusFailed, providers.StatusExpired:
		return s.fail(ctx, p, fmt.Sprintf("provider reported %s", status))
	default:
		// Still pending at the provider.
		return nil
	}
}

func (s *PaymentService) complete(ctx context.Context, p *payment.Payment) error {
	now := s.now()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return err
	}
	defer work.Rollback(ctx)

	won, err := work.PaymentRepository().MarkCompleted(ctx, p.ID, p.TransactionID)
	if err != nil {
		return err
	}
	if !won {
		// Already resolved by a concurrent webhook or poll.
		return nil
	}

	switch p.Type {
	case payment.TypeWalletTopup:
		w, err := work.WalletRepository().GetForUpdate(ctx, p.UserID)
		if err != nil {
			return err
		}
		credit, err := wallet.NewCredit(w, p.Amount, wallet.SourceTopup, "Wallet top-up")
		if err != nil {
			return err
		}
		credit.PaymentID = &p.ID
		credit.Reference = p.PaymentReference
		credit.CreatedBy = p.UserID
		credit.CreatedAt = now
		if err := work.WalletRepository().ApplyTransaction(ctx, credit); err != nil {
			return err
		}

		if err := s.emit(ctx, work, notification.Event{
			UserID:    p.UserID,
			Title:     "Wallet Credited",
			Message:   fmt.Sprintf("Your wallet was credited with %d %s", p.Amount, p.Currency),
			Type:      notification.TypePayment,
			CreatedAt: now,
		}); err != nil {
			return err
		}

	case payment.TypeOrderPayment:
		if p.OrderID == nil {
			return fmt.Errorf("order payment %s has no order id", p.PaymentReference)
		}
		o, err := work.OrderRepository().GetForUpdate(ctx, *p.OrderID)
		if err != nil {
			return err
		}
		if o.Status.CanTransitionTo(order.StatusPaid) {
			if err := s.markOrderPaid(ctx, work, o, p, now); err != nil {
				return err
			}
		} else {
			// Usually a late success after the order was cancelled; money
			// has left the payer, so park it on the wallet.
			slog.Warn("Payment completed for unpayable order",
				"payment_reference", p.PaymentReference,
				"order_id", o.ID,
				"order_status", o.Status,
			)
			w, err := work.WalletRepository().GetForUpdate(ctx, p.UserID)
			if err != nil {
				return err
			}
			credit, err := wallet.NewCredit(w, p.Amount, wallet.SourceRefund,
				fmt.Sprintf("Late payment for order #%s returned to wallet", o.OrderNumber))
			if err != nil {
				return err
			}
			credit.PaymentID = &p.ID
			credit.OrderID = &o.ID
			credit.Reference = p.PaymentReference
			credit.CreatedBy = actor.System().UserID
			credit.CreatedAt = now
			if err := work.WalletRepository().ApplyTransaction(ctx, credit); err != nil {
				return err
			}
		}
	}

	if err := work.Commit(ctx); err != nil {
		return err
	}

	slog.Info("Payment completed", "payment_reference", p.PaymentReference, "type", p.Type)

	return nil
}

func (s *PaymentService) fail(ctx context.Context, p *payment.Payment, reason string) error {
	now := s.now()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return err
	}
	defer work.Rollback(ctx)

	won, err := work.PaymentRepository().MarkFailed(ctx, p.ID, reason)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	if err := s.emit(ctx, work, notification.Event{
		UserID:    p.UserID,
		Title:     "Payment Failed",
		Message:   fmt.Sprintf("Payment %s failed: %s", p.PaymentReference, reason),
		OrderID:   p.OrderID,
		Type:      notification.TypePayment,
		CreatedAt: now,
	}); err != nil {
		return err
	}

	if err := work.Commit(ctx); err != nil {
		return err
	}

	slog.Info("Payment failed", "payment_reference", p.PaymentReference, "reason", reason)

	return nil
}

func (s *PaymentService) markOrderPaid(ctx context.Context, work unitOfWork, o *order.Order, p *payment.Payment, now time.Time) error {
	statusFrom := o.Status
	o.StampTransition(order.StatusPaid, now)
	o.PaymentMethod = &p.Method

	if err := work.OrderRepository().UpdateStatus(ctx, o); err != nil {
		return err
	}

	if err := work.OrderHistoryRepository().Insert(ctx, orderhistory.Entry{
		ID:         uuid.New(),
		OrderID:    o.ID,
		StatusFrom: statusFrom,
		StatusTo:   order.StatusPaid,
		ChangedBy:  actor.System().UserID,
		Notes:      fmt.Sprintf("Paid via %s, payment %s", p.Method, p.PaymentReference),
		Timestamp:  now,
	}); err != nil {
		return err
	}

	return s.emit(ctx, work, notification.Event{
		UserID:    o.EmployeeID,
		Title:     "Payment Received",
		Message:   fmt.Sprintf("Payment for order #%s was received", o.OrderNumber),
		OrderID:   &o.ID,
		Type:      notification.TypePayment,
		CreatedAt: now,
	})
}

// webhookBody covers the fields either provider posts. Orange callbacks key
// the payment off orderId, which carries our payment reference. Unknown
// extras are kept in the raw payload audit row.
type webhookBody struct {
	ReferenceID string `json:"referenceId"`
	ExternalID  string `json:"externalId"`
	OrderID     string `json:"orderId"`
	PayToken    string `json:"payToken"`
	Status      string `json:"status"`
}

// HandleWebhook stores and applies an inbound provider notification. The raw
// payload is always persisted for audit; a webhook for an unknown payment is
// recorded and acknowledged so the provider stops retrying.
func (s *PaymentService) HandleWebhook(ctx context.Context, providerName string, payload []byte) error {
	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		slog.Warn("Malformed webhook payload", "provider", providerName, "error", err)

		return s.newUOW().PaymentRepository().InsertWebhook(ctx, providerName, payload, nil, false)
	}

	p := s.lookupWebhookPayment(ctx, body)
	if p == nil {
		slog.Warn("Webhook for unknown payment",
			"provider", providerName,
			"reference", body.ReferenceID,
			"external_id", body.ExternalID,
		)

		return s.newUOW().PaymentRepository().InsertWebhook(ctx, providerName, payload, nil, false)
	}

	if err := s.newUOW().PaymentRepository().InsertWebhook(ctx, providerName, payload, &p.ID, true); err != nil {
		return err
	}

	return s.Reconcile(ctx, p, normalizeWebhookStatus(body.Status))
}

func (s *PaymentService) lookupWebhookPayment(ctx context.Context, body webhookBody) *payment.Payment {
	repo := s.newUOW().PaymentRepository()

	for _, ref := range []string{body.ExternalID, body.OrderID, body.ReferenceID} {
		if ref == "" {
			continue
		}
		if p, err := repo.GetByReference(ctx, ref); err == nil {
			return p
		}
	}
	for _, txid := range []string{body.ReferenceID, body.PayToken} {
		if txid == "" {
			continue
		}
		if p, err := repo.GetByTransactionID(ctx, txid); err == nil {
			return p
		}
	}

	return nil
}

func normalizeWebhookStatus(s string) providers.Status {
	switch strings.ToUpper(s) {
	case "SUCCESSFUL", "SUCCESS":
		return providers.StatusSuccessful
	case "FAILED", "FAILURE", "REJECTED":
		return providers.StatusFailed
	case "EXPIRED", "TIMEOUT":
		return providers.StatusExpired
	default:
		return providers.StatusPending
	}
}

// VerifyPayment returns the current state of a payment, polling the provider
// on demand if the payment is still processing.
func (s *PaymentService) VerifyPayment(ctx context.Context, act actor.Actor, reference string) (*payment.Payment, error) {
	repo := s.newUOW().PaymentRepository()

	p, err := repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !act.CanManageOrders() && p.UserID != act.UserID {
		return nil, ErrNotPaymentOwner
	}

	if p.Status == payment.StatusProcessing && p.TransactionID != "" {
		provider, ok := s.providers[p.Method]
		if ok {
			status, err := provider.GetStatus(ctx, p.TransactionID)
			if err != nil {
				slog.Warn("Provider status check failed",
					"payment_reference", p.PaymentReference,
					"error", err,
				)
			} else if err := s.Reconcile(ctx, p, status); err != nil {
				return nil, err
			}
		}

		// Re-read to report the post-reconcile state.
		return repo.GetByReference(ctx, reference)
	}

	return p, nil
}

// PollProcessing resolves payments stuck in processing against their
// providers. Called periodically by the poll worker.
func (s *PaymentService) PollProcessing(ctx context.Context) error {
	grace := viper.GetDuration("payments.poll_grace_period")
	if grace == 0 {
		grace = 2 * time.Minute
	}

	stuck, err := s.newUOW().PaymentRepository().ListProcessing(ctx, s.now().Add(-grace), 50)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for i := range stuck {
		p := stuck[i]
		g.Go(func() error {
			provider, ok := s.providers[p.Method]
			if !ok {
				slog.Error("Processing payment has no provider", "payment_reference", p.PaymentReference, "method", p.Method)

				return nil
			}

			status, err := provider.GetStatus(gctx, p.TransactionID)
			if err != nil {
				slog.Warn("Provider status check failed",
					"payment_reference", p.PaymentReference,
					"error", err,
				)

				return nil
			}

			return s.Reconcile(gctx, &p, status)
		})
	}

	return g.Wait()
}

// PaymentHistory lists a user's payments, newest first.
func (s *PaymentService) PaymentHistory(ctx context.Context, userID int64, status payment.Status, transactionType payment.Type, limit, offset int) ([]payment.Payment, error) {
	return s.newUOW().PaymentRepository().QueryByUser(ctx, userID, status, transactionType, limit, offset)
}

// GetPayment fetches a payment by reference without touching the provider.
func (s *PaymentService) GetPayment(ctx context.Context, act actor.Actor, reference string) (*payment.Payment, error) {
	p, err := s.newUOW().PaymentRepository().GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !act.CanManageOrders() && p.UserID != act.UserID {
		return nil, ErrNotPaymentOwner
	}

	return p, nil
}

func (s *PaymentService) emit(ctx context.Context, work unitOfWork, event notification.Event) error {
	msg, err := event.ToOutbox()
	if err != nil {
		return err
	}

	return work.OutboxRepository().Insert(ctx, msg)
}

var phoneDigits = regexp.MustCompile(`^\d{9}$`)

// NormalizePhone canonicalizes a Cameroonian mobile number to +237XXXXXXXXX.
func NormalizePhone(s string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(s))

	switch {
	case strings.HasPrefix(cleaned, "+237"):
		cleaned = cleaned[4:]
	case strings.HasPrefix(cleaned, "237") && len(cleaned) == 12:
		cleaned = cleaned[3:]
	}

	if !phoneDigits.MatchString(cleaned) || cleaned[0] != '6' {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, s)
	}

	return "+237" + cleaned, nil
}
