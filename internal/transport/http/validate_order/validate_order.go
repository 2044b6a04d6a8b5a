package validateorder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/canteen-platform/order-core/internal/service/models/actor"
	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/transport/http/httperr"
	"github.com/canteen-platform/order-core/internal/transport/http/reqctx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type service interface {
	Validate(ctx context.Context, act actor.Actor, orderID uuid.UUID, notes string) (*order.Order, error)
}

type validateOrderRequest struct {
	Notes string `json:"notes"`
}

// ValidateOrder handles the order validation request.
func ValidateOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	// Body is optional.
	req := validateOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for validate order", "error", err)

		return
	}

	o, err := service.Validate(r.Context(), reqctx.Actor(r.Context()), orderID, req.Notes)
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(o); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
