package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/canteen-platform/order-core/internal/service/models/actor"
	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/service/models/orderqueue"
	"github.com/canteen-platform/order-core/internal/service/models/payment"
	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
	"github.com/canteen-platform/order-core/internal/service/models/wallet"
	"github.com/canteen-platform/order-core/internal/service/services/ordersvc"
	"github.com/canteen-platform/order-core/internal/service/services/paymentsvc"
	"github.com/canteen-platform/order-core/internal/service/services/walletsvc"
	adjustwallet "github.com/canteen-platform/order-core/internal/transport/http/adjust_wallet"
	cancelorder "github.com/canteen-platform/order-core/internal/transport/http/cancel_order"
	getorder "github.com/canteen-platform/order-core/internal/transport/http/get_order"
	getpayment "github.com/canteen-platform/order-core/internal/transport/http/get_payment"
	"github.com/canteen-platform/order-core/internal/transport/http/httperr"
	initiatepayment "github.com/canteen-platform/order-core/internal/transport/http/initiate_payment"
	listorders "github.com/canteen-platform/order-core/internal/transport/http/list_orders"
	listpayments "github.com/canteen-platform/order-core/internal/transport/http/list_payments"
	orderqueuehandler "github.com/canteen-platform/order-core/internal/transport/http/order_queue"
	paymentwebhook "github.com/canteen-platform/order-core/internal/transport/http/payment_webhook"
	placeorder "github.com/canteen-platform/order-core/internal/transport/http/place_order"
	"github.com/canteen-platform/order-core/internal/transport/http/reqctx"
	topupwallet "github.com/canteen-platform/order-core/internal/transport/http/topup_wallet"
	updateorderstatus "github.com/canteen-platform/order-core/internal/transport/http/update_order_status"
	validateorder "github.com/canteen-platform/order-core/internal/transport/http/validate_order"
	walletstatement "github.com/canteen-platform/order-core/internal/transport/http/wallet_statement"
	"github.com/canteen-platform/order-core/pkg/http/middleware/trace"
	"github.com/canteen-platform/order-core/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type orderService interface {
	PlaceOrder(ctx context.Context, act actor.Actor, draft order.Draft) (*order.Order, error)
	GetOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
	GetOrder(ctx context.Context, act actor.Actor, orderID uuid.UUID) (*ordersvc.OrderDetail, error)
	Validate(ctx context.Context, act actor.Actor, orderID uuid.UUID, notes string) (*order.Order, error)
	UpdateStatus(ctx context.Context, act actor.Actor, orderID uuid.UUID, to order.Status, notes string) (*order.Order, error)
	Cancel(ctx context.Context, act actor.Actor, orderID uuid.UUID, reason string) (*ordersvc.CancelResult, error)
	GetQueue(ctx context.Context) ([]orderqueue.Entry, error)
}

type paymentService interface {
	InitiateOrderPayment(ctx context.Context, act actor.Actor, orderID uuid.UUID, method paymethod.Method, phoneNumber string) (*paymentsvc.InitiateResult, error)
	InitiateTopup(ctx context.Context, act actor.Actor, method paymethod.Method, amount int64, phoneNumber string) (*paymentsvc.InitiateResult, error)
	GetPayment(ctx context.Context, act actor.Actor, reference string) (*payment.Payment, error)
	VerifyPayment(ctx context.Context, act actor.Actor, reference string) (*payment.Payment, error)
	PaymentHistory(ctx context.Context, userID int64, status payment.Status, transactionType payment.Type, limit, offset int) ([]payment.Payment, error)
	HandleWebhook(ctx context.Context, providerName string, payload []byte) error
}

type walletService interface {
	GetStatement(ctx context.Context, userID int64, limit int) (*walletsvc.Statement, error)
	Adjust(ctx context.Context, act actor.Actor, userID int64, amount int64, reason string) (wallet.Transaction, error)
}

type HTTPTransport struct {
	server   *http.Server
	router   *chi.Mux
	orders   orderService
	payments paymentService
	wallets  walletService
}

func NewHTTPTransport(orders orderService, payments paymentService, wallets walletService) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	return &HTTPTransport{
		server:   server,
		router:   router,
		orders:   orders,
		payments: payments,
		wallets:  wallets,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport. Webhooks skip
// the identity middleware because providers authenticate differently.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(reqctx.NewActorMiddleware)

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.placeOrder)
				r.Get("/", h.listOrders)
				r.With(requireAdmin).Get("/queue", h.getQueue)
				r.Route("/{orderID}", func(r chi.Router) {
					r.Get("/", h.getOrder)
					r.With(requireAdmin).Post("/validate", h.validateOrder)
					r.With(requireAdmin).Post("/status", h.updateOrderStatus)
					r.Post("/cancel", h.cancelOrder)
				})
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/", h.initiatePayment)
				r.Get("/", h.listPayments)
				r.Post("/topup", h.topupWallet)
				r.Get("/{reference}", h.getPayment)
			})

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", h.getWalletStatement)
				r.With(requireAdmin).Post("/adjust", h.adjustWallet)
			})
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/mtn", h.mtnWebhook)
			r.Post("/orange", h.orangeWebhook)
		})
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !reqctx.Actor(r.Context()).CanManageOrders() {
			httperr.Forbidden(w)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *HTTPTransport) placeOrder(w http.ResponseWriter, r *http.Request) {
	placeorder.PlaceOrder(w, r, h.orders)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.orders)
}

func (h *HTTPTransport) validateOrder(w http.ResponseWriter, r *http.Request) {
	validateorder.ValidateOrder(w, r, h.orders)
}

func (h *HTTPTransport) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	updateorderstatus.UpdateOrderStatus(w, r, h.orders)
}

func (h *HTTPTransport) cancelOrder(w http.ResponseWriter, r *http.Request) {
	cancelorder.CancelOrder(w, r, h.orders)
}

func (h *HTTPTransport) getQueue(w http.ResponseWriter, r *http.Request) {
	orderqueuehandler.GetQueue(w, r, h.orders)
}

func (h *HTTPTransport) initiatePayment(w http.ResponseWriter, r *http.Request) {
	initiatepayment.InitiatePayment(w, r, h.payments)
}

func (h *HTTPTransport) topupWallet(w http.ResponseWriter, r *http.Request) {
	topupwallet.TopupWallet(w, r, h.payments)
}

func (h *HTTPTransport) listPayments(w http.ResponseWriter, r *http.Request) {
	listpayments.ListPayments(w, r, h.payments)
}

func (h *HTTPTransport) getPayment(w http.ResponseWriter, r *http.Request) {
	getpayment.GetPayment(w, r, h.payments)
}

func (h *HTTPTransport) getWalletStatement(w http.ResponseWriter, r *http.Request) {
	walletstatement.GetStatement(w, r, h.wallets)
}

func (h *HTTPTransport) adjustWallet(w http.ResponseWriter, r *http.Request) {
	adjustwallet.AdjustWallet(w, r, h.wallets)
}

func (h *HTTPTransport) mtnWebhook(w http.ResponseWriter, r *http.Request) {
	paymentwebhook.HandleWebhook(w, r, "mtn_momo", h.payments)
}

func (h *HTTPTransport) orangeWebhook(w http.ResponseWriter, r *http.Request) {
	paymentwebhook.HandleWebhook(w, r, "orange_money", h.payments)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
