package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canteen-platform/order-core/internal/dal/postgres"
	"github.com/canteen-platform/order-core/internal/dal/rabbitmq"
	"github.com/canteen-platform/order-core/internal/dal/uow"
	"github.com/canteen-platform/order-core/internal/jaeger"
	"github.com/canteen-platform/order-core/internal/providers/mtn"
	"github.com/canteen-platform/order-core/internal/providers/orange"
	"github.com/canteen-platform/order-core/internal/service/models/notification"
	"github.com/canteen-platform/order-core/internal/service/services/ordersvc"
	"github.com/canteen-platform/order-core/internal/service/services/paymentsvc"
	"github.com/canteen-platform/order-core/internal/service/services/walletsvc"
	httptransport "github.com/canteen-platform/order-core/internal/transport/http"
	outboxworker "github.com/canteen-platform/order-core/internal/worker/outbox"
	"github.com/canteen-platform/order-core/internal/worker/paymentpoll"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	paymentSvc     *paymentsvc.PaymentService
	walletSvc      *walletsvc.WalletService
	transport      *httptransport.HTTPTransport
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	outboxWorker   *outboxworker.Worker
	pollWorker     *paymentpoll.Worker
	tracerProvider *sdktrace.TracerProvider
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	tracerProvider := mustSetupTracing()

	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()

	if _, err := rabbitClient.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:    notification.QueueName,
		Durable: true,
	}); err != nil {
		panic("failed to declare notification queue: " + err.Error())
	}

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
	)

	paymentSvc := paymentsvc.MustNewPaymentService(
		paymentsvc.WithPostgresClient(postgresClient),
		paymentsvc.WithProvider(mtn.NewClient()),
		paymentsvc.WithProvider(orange.NewClient()),
	)

	walletSvc := walletsvc.MustNewWalletService(
		walletsvc.WithPostgresClient(postgresClient),
	)

	transport := httptransport.NewHTTPTransport(orderSvc, paymentSvc, walletSvc)
	transport.RegisterRoutes()

	outboxWorker := outboxworker.NewWorker(
		uow.NewUnitOfWork(postgresClient).OutboxRepository(),
		rabbitClient,
	)
	pollWorker := paymentpoll.NewWorker(paymentSvc)

	return &App{
		orderSvc:       orderSvc,
		paymentSvc:     paymentSvc,
		walletSvc:      walletSvc,
		transport:      transport,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		outboxWorker:   outboxWorker,
		pollWorker:     pollWorker,
		tracerProvider: tracerProvider,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())

	go a.outboxWorker.Start(workerCtx)
	go a.pollWorker.Start(workerCtx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	cancelWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.tracerProvider.Shutdown(ctx); err != nil {
		slog.Error("Tracer provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}

func mustSetupTracing() *sdktrace.TracerProvider {
	exp := jaeger.MustNewJaeger()

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("order-core"),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp
}
