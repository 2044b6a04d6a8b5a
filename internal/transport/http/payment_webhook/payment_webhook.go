package paymentwebhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
)

type service interface {
	HandleWebhook(ctx context.Context, providerName string, payload []byte) error
}

// maxBodySize caps a webhook payload at 64 KiB.
const maxBodySize = 64 << 10

// HandleWebhook handles an inbound provider notification. The endpoint always
// acknowledges payloads it could store, even for unknown payments, so the
// provider does not retry forever.
func HandleWebhook(w http.ResponseWriter, r *http.Request, providerName string, service service) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		slog.Error("Error reading webhook body", "provider", providerName, "error", err)

		return
	}

	if err := service.HandleWebhook(r.Context(), providerName, payload); err != nil {
		// A processing failure must surface as non-2xx so the provider
		// redelivers.
		http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		slog.Error("Error handling webhook", "provider", providerName, "error", err)

		return
	}

	w.WriteHeader(http.StatusOK)
}
