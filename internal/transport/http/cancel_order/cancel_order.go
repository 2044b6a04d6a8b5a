package cancelorder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/canteen-platform/order-core/internal/service/models/actor"
	"github.com/canteen-platform/order-core/internal/service/services/ordersvc"
	"github.com/canteen-platform/order-core/internal/transport/http/httperr"
	"github.com/canteen-platform/order-core/internal/transport/http/reqctx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type service interface {
	Cancel(ctx context.Context, act actor.Actor, orderID uuid.UUID, reason string) (*ordersvc.CancelResult, error)
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder handles the cancel order request.
func CancelOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	// Body is optional.
	req := cancelOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for cancel order", "error", err)

		return
	}

	result, err := service.Cancel(r.Context(), reqctx.Actor(r.Context()), orderID, req.Reason)
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
