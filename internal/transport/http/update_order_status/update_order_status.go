package updateorderstatus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/canteen-platform/order-core/internal/service/models/actor"
	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/transport/http/httperr"
	"github.com/canteen-platform/order-core/internal/transport/http/reqctx"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type service interface {
	UpdateStatus(ctx context.Context, act actor.Actor, orderID uuid.UUID, to order.Status, notes string) (*order.Order, error)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}

// Validate validates the update status request.
func (r *updateStatusRequest) Validate() error {
	return validator.New().Struct(r)
}

// UpdateOrderStatus handles the kitchen workflow status change request.
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	req := updateStatusRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for update order status", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		httperr.Respond(w, r, err)

		return
	}

	to, err := order.ParseStatus(req.Status)
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	o, err := service.UpdateStatus(r.Context(), reqctx.Actor(r.Context()), orderID, to, req.Notes)
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(o); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
