package paymentpoll

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

type paymentService interface {
	PollProcessing(ctx context.Context) error
}

// Worker periodically resolves mobile money payments stuck in processing by
// asking the provider for their final status. Webhooks usually get there
// first; the poll is the safety net for lost deliveries.
type Worker struct {
	payments     paymentService
	pollInterval time.Duration
	stopCh       chan struct{}
}

// NewWorker creates a new payment poll worker.
func NewWorker(payments paymentService) *Worker {
	pollIntervalSeconds := viper.GetInt("payments.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 60
	}

	return &Worker{
		payments:     payments,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// Start begins polling for unresolved payments.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Payment poll worker started", "poll_interval", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Payment poll worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Payment poll worker stopped")

			return
		case <-ticker.C:
			if err := w.payments.PollProcessing(ctx); err != nil {
				slog.Error("Failed to poll processing payments", "error", err)
			}
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}
