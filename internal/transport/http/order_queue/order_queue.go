package orderqueue

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/canteen-platform/order-core/internal/service/models/orderqueue"
	"github.com/canteen-platform/order-core/internal/transport/http/httperr"
)

type service interface {
	GetQueue(ctx context.Context) ([]orderqueue.Entry, error)
}

// GetQueue handles the kitchen queue listing request.
func GetQueue(w http.ResponseWriter, r *http.Request, service service) {
	entries, err := service.GetQueue(r.Context())
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
