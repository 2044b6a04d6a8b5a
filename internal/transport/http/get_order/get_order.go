package getorder

import (
	"context"
	"encoding/json"
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
	GetOrder(ctx context.Context, act actor.Actor, orderID uuid.UUID) (*ordersvc.OrderDetail, error)
}

// GetOrder handles the get order request, returning the order with its items
// and status history.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	detail, err := service.GetOrder(r.Context(), reqctx.Actor(r.Context()), orderID)
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(detail); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
