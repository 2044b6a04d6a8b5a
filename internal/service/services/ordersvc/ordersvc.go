package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

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
	paymentrepo "github.com/canteen-platform/order-core/internal/dal/repositories/payment/postgres"
	"github.com/canteen-platform/order-core/internal/dal/uow"
	"github.com/canteen-platform/order-core/internal/service/models/actor"
	"github.com/canteen-platform/order-core/internal/service/models/notification"
	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/service/models/orderhistory"
	"github.com/canteen-platform/order-core/internal/service/models/orderitem"
	"github.com/canteen-platform/order-core/internal/service/models/orderqueue"
	"github.com/canteen-platform/order-core/internal/service/models/wallet"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

var (
	// ErrNoItems is returned when a draft has no orderable lines.
	ErrNoItems = errors.New("no items available")
	// ErrInvalidQuantity is returned for any line with quantity < 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrNotOrderOwner is returned when an employee touches someone else's order.
	ErrNotOrderOwner = errors.New("order belongs to another employee")
	// ErrCancelCutoff is returned when an owner cancels past the allowed state.
	ErrCancelCutoff = errors.New("order can no longer be cancelled by its owner")
)

// ItemUnavailableError identifies the exact line that made an order fail.
type ItemUnavailableError struct {
	MenuItemID int64
	Name       string
	Reason     string
}

func (e *ItemUnavailableError) Error() string {
	return fmt.Sprintf("menu item %q unavailable: %s", e.Name, e.Reason)
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	OrderHistoryRepository() iorderhistoryrepo.IOrderHistoryRepository
	MenuItemRepository() imenuitemrepo.IMenuItemRepository
	PaymentRepository() ipaymentrepo.IPaymentRepository
	WalletRepository() iwalletrepo.IWalletRepository
	OrderQueueRepository() iorderqueuerepo.IOrderQueueRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// OrderService owns the order lifecycle: building priced orders from drafts,
// enforcing the status transition table and applying cancellation side
// effects.
type OrderService struct {
	pgClient *postgres.Client
	newUOW   func() unitOfWork
	rates    order.Rates
	now      func() time.Time
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		rates: order.Rates{
			ServiceFeeBps: viper.GetInt64("orders.service_fee_bps"),
			TaxBps:        viper.GetInt64("orders.tax_bps"),
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// PlaceOrder converts a draft into a persisted PENDING order. Every line is
// validated and its stock reserved inside one transaction; if any line fails,
// nothing is persisted and prior reservations in this request are rolled back
// with it.
func (s *OrderService) PlaceOrder(ctx context.Context, act actor.Actor, draft order.Draft) (*order.Order, error) {
	if len(draft.Lines) == 0 {
		return nil, ErrNoItems
	}
	for _, line := range draft.Lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: menu item %d", ErrInvalidQuantity, line.MenuItemID)
		}
	}

	now := s.now()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer work.Rollback(ctx)

	o := &order.Order{
		ID:                  uuid.New(),
		OrderNumber:         order.NewOrderNumber(),
		EmployeeID:          draft.EmployeeID,
		FullName:            draft.FullName,
		Email:               draft.Email,
		PhoneNumber:         draft.PhoneNumber,
		OfficeNumber:        draft.OfficeNumber,
		SpecialInstructions: draft.SpecialInstructions,
		Status:              order.StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	lowStock := make([]string, 0)
	for _, line := range draft.Lines {
		item, err := work.MenuItemRepository().GetForOrder(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, menuitemrepo.ErrMenuItemNotFound) {
				return nil, &ItemUnavailableError{MenuItemID: line.MenuItemID, Name: fmt.Sprintf("#%d", line.MenuItemID), Reason: "not found"}
			}

			return nil, err
		}
		if !item.IsAvailable {
			return nil, &ItemUnavailableError{MenuItemID: item.ID, Name: item.Name, Reason: "not available"}
		}

		newStock, err := work.MenuItemRepository().ReserveStock(ctx, item.ID, line.Quantity)
		if err != nil {
			if errors.Is(err, menuitemrepo.ErrInsufficientStock) {
				return nil, &ItemUnavailableError{MenuItemID: item.ID, Name: item.Name, Reason: "insufficient stock"}
			}

			return nil, err
		}
		if newStock <= item.LowStockThreshold {
			lowStock = append(lowStock, item.Name)
		}

		o.Items = append(o.Items, orderitem.OrderItem{
			ID:            uuid.New(),
			OrderID:       o.ID,
			MenuItemID:    item.ID,
			MenuItemName:  item.Name,
			Quantity:      line.Quantity,
			UnitPrice:     item.Price, // price snapshot, never re-read
			PriceCurrency: item.PriceCurrency,
			CreatedAt:     now,
		})
	}

	if len(o.Items) > 0 {
		o.Currency = o.Items[0].PriceCurrency
	}
	o.CalculateTotals(s.rates)

	if err := work.OrderRepository().Insert(ctx, o); err != nil {
		return nil, err
	}
	if err := work.OrderItemRepository().BulkInsert(ctx, o.Items); err != nil {
		return nil, err
	}

	if err := work.OrderHistoryRepository().Insert(ctx, orderhistory.Entry{
		ID:        uuid.New(),
		OrderID:   o.ID,
		StatusTo:  order.StatusPending,
		ChangedBy: act.UserID,
		Notes:     "Order placed by employee",
		Timestamp: now,
	}); err != nil {
		return nil, err
	}

	if err := s.emit(ctx, work, notification.Event{
		Audience:  notification.AudienceCanteenAdmins,
		Title:     "New Order",
		Message:   fmt.Sprintf("Order #%s placed, total %d %s", o.OrderNumber, o.TotalAmount, o.Currency),
		OrderID:   &o.ID,
		Type:      notification.TypeOrderStatus,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	for _, name := range lowStock {
		if err := s.emit(ctx, work, notification.Event{
			Audience:  notification.AudienceCanteenAdmins,
			Title:     "Low Stock",
			Message:   fmt.Sprintf("Menu item %q is running low", name),
			Type:      notification.TypeInventory,
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	slog.Info("Order placed",
		"order_id", o.ID,
		"order_number", o.OrderNumber,
		"employee_id", o.EmployeeID,
		"total", o.TotalAmount,
	)

	return o, nil
}

// Validate moves a PENDING order to VALIDATED. Admin operation.
func (s *OrderService) Validate(ctx context.Context, act actor.Actor, orderID uuid.UUID, notes string) (*order.Order, error) {
	if notes == "" {
		notes = "Validated by canteen admin"
	}

	return s.Transition(ctx, act, orderID, order.StatusValidated, notes)
}

// UpdateStatus performs a kitchen workflow transition. Admin operation;
// legality is enforced by the transition table.
func (s *OrderService) UpdateStatus(ctx context.Context, act actor.Actor, orderID uuid.UUID, to order.Status, notes string) (*order.Order, error) {
	if notes == "" {
		notes = fmt.Sprintf("Status updated to %s", to)
	}

	return s.Transition(ctx, act, orderID, to, notes)
}

// CancelResult tells the caller exactly which reversals happened.
type CancelResult struct {
	Order     *order.Order
	Restocked bool
	Refunded  bool
}

// Cancel cancels an order. Owners may cancel only while the order is still
// PENDING; admins may cancel from any state the table permits. Stock is
// always restocked, and a completed payment is refunded to the wallet.
func (s *OrderService) Cancel(ctx context.Context, act actor.Actor, orderID uuid.UUID, reason string) (*CancelResult, error) {
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

	if !act.CanManageOrders() {
		if o.EmployeeID != act.UserID {
			return nil, ErrNotOrderOwner
		}
		if o.Status != order.StatusPending {
			return nil, ErrCancelCutoff
		}
	}

	if !o.Status.CanTransitionTo(order.StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrIllegalTransition, o.Status, order.StatusCancelled)
	}

	statusFrom := o.Status
	o.StampTransition(order.StatusCancelled, now)

	if err := work.OrderRepository().UpdateStatus(ctx, o); err != nil {
		return nil, err
	}

	if reason == "" {
		reason = "Order cancelled"
	}
	if err := work.OrderHistoryRepository().Insert(ctx, orderhistory.Entry{
		ID:         uuid.New(),
		OrderID:    o.ID,
		StatusFrom: statusFrom,
		StatusTo:   order.StatusCancelled,
		ChangedBy:  act.UserID,
		Notes:      reason,
		Timestamp:  now,
	}); err != nil {
		return nil, err
	}

	result := &CancelResult{Order: o}

	items, err := work.OrderItemRepository().ListByOrderIDs(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if _, err := work.MenuItemRepository().Restock(ctx, item.MenuItemID, item.Quantity); err != nil {
			return nil, err
		}
	}
	result.Restocked = len(items) > 0

	refunded, err := s.refundCompletedPayment(ctx, work, o, act, now)
	if err != nil {
		return nil, err
	}
	result.Refunded = refunded

	if err := work.OrderQueueRepository().Remove(ctx, o.ID); err != nil {
		return nil, err
	}

	if err := s.emit(ctx, work, notification.Event{
		UserID:    o.EmployeeID,
		Title:     "Order Cancelled",
		Message:   fmt.Sprintf("Your order #%s has been cancelled. %s", o.OrderNumber, reason),
		OrderID:   &o.ID,
		Type:      notification.TypeOrderStatus,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	slog.Info("Order cancelled",
		"order_id", o.ID,
		"status_from", statusFrom,
		"restocked", result.Restocked,
		"refunded", result.Refunded,
	)

	return result, nil
}

// Transition applies one legal status change with its timestamp, history row,
// queue bookkeeping and notification, all in one transaction. Illegal
// transitions are rejected and leave the order untouched.
func (s *OrderService) Transition(ctx context.Context, act actor.Actor, orderID uuid.UUID, to order.Status, notes string) (*order.Order, error) {
	if to == order.StatusCancelled {
		result, err := s.Cancel(ctx, act, orderID, notes)
		if err != nil {
			return nil, err
		}

		return result.Order, nil
	}

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

	if !o.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrIllegalTransition, o.Status, to)
	}

	statusFrom := o.Status
	o.StampTransition(to, now)

	if err := work.OrderRepository().UpdateStatus(ctx, o); err != nil {
		return nil, err
	}

	if err := work.OrderHistoryRepository().Insert(ctx, orderhistory.Entry{
		ID:         uuid.New(),
		OrderID:    o.ID,
		StatusFrom: statusFrom,
		StatusTo:   to,
		ChangedBy:  act.UserID,
		Notes:      notes,
		Timestamp:  now,
	}); err != nil {
		return nil, err
	}

	switch {
	case to == order.StatusConfirmed:
		if _, err := work.OrderQueueRepository().Enqueue(ctx, o.ID); err != nil {
			return nil, err
		}
	case to == order.StatusCompleted:
		if err := work.OrderQueueRepository().Remove(ctx, o.ID); err != nil {
			return nil, err
		}
	}

	if err := s.emit(ctx, work, notification.Event{
		UserID:    o.EmployeeID,
		Title:     "Order Update",
		Message:   fmt.Sprintf("Your order #%s is now %s. %s", o.OrderNumber, to, notes),
		OrderID:   &o.ID,
		Type:      notification.TypeOrderStatus,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	slog.Info("Order transitioned", "order_id", o.ID, "from", statusFrom, "to", to, "changed_by", act.UserID)

	return o, nil
}

// GetOrders retrieves orders with their items based on filter.
func (s *OrderService) GetOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error) {
	work := s.newUOW()

	orders, err := work.OrderRepository().Query(ctx, &filter)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	orderIDs := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}

	items, err := work.OrderItemRepository().ListByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		for _, item := range items {
			if item.OrderID == orders[i].ID {
				orders[i].Items = append(orders[i].Items, item)
			}
		}
	}

	return orders, nil
}

// OrderDetail is one order with its full transition timeline.
type OrderDetail struct {
	Order   *order.Order         `json:"order"`
	History []orderhistory.Entry `json:"history"`
}

// GetOrder retrieves one order with items and history. Non-admin actors can
// only read their own orders.
func (s *OrderService) GetOrder(ctx context.Context, act actor.Actor, orderID uuid.UUID) (*OrderDetail, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !act.CanManageOrders() && o.EmployeeID != act.UserID {
		return nil, ErrNotOrderOwner
	}

	items, err := work.OrderItemRepository().ListByOrderIDs(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items

	history, err := work.OrderHistoryRepository().ListByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	return &OrderDetail{Order: o, History: history}, nil
}

// GetQueue returns the kitchen queue front to back.
func (s *OrderService) GetQueue(ctx context.Context) ([]orderqueue.Entry, error) {
	work := s.newUOW()

	return work.OrderQueueRepository().List(ctx)
}

func (s *OrderService) refundCompletedPayment(ctx context.Context, work unitOfWork, o *order.Order, act actor.Actor, now time.Time) (bool, error) {
	p, err := work.PaymentRepository().CompletedForOrder(ctx, o.ID)
	if err != nil {
		if errors.Is(err, paymentrepo.ErrPaymentNotFound) {
			return false, nil
		}

		return false, err
	}

	w, err := work.WalletRepository().GetForUpdate(ctx, o.EmployeeID)
	if err != nil {
		return false, err
	}

	refund, err := wallet.NewCredit(w, o.TotalAmount, wallet.SourceRefund,
		fmt.Sprintf("Refund for order #%s", o.OrderNumber))
	if err != nil {
		return false, err
	}
	refund.OrderID = &o.ID
	refund.PaymentID = &p.ID
	refund.Reference = p.PaymentReference
	refund.CreatedBy = act.UserID
	refund.CreatedAt = now

	if err := work.WalletRepository().ApplyTransaction(ctx, refund); err != nil {
		return false, err
	}

	if _, err := work.PaymentRepository().MarkRefunded(ctx, p.ID); err != nil {
		return false, err
	}

	return true, nil
}

func (s *OrderService) emit(ctx context.Context, work unitOfWork, event notification.Event) error {
	msg, err := event.ToOutbox()
	if err != nil {
		return err
	}

	return work.OutboxRepository().Insert(ctx, msg)
}
