package placeorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/canteen-platform/order-core/internal/service/models/actor"
	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/transport/http/httperr"
	"github.com/canteen-platform/order-core/internal/transport/http/reqctx"
	"github.com/go-playground/validator/v10"
)

// service is an interface for the service layer.
type service interface {
	PlaceOrder(ctx context.Context, act actor.Actor, draft order.Draft) (*order.Order, error)
}

// lineInPlaceOrderRequest represents one menu item line in the request.
type lineInPlaceOrderRequest struct {
	MenuItemID int64 `json:"menuItemId" validate:"gt=0"`
	Quantity   int   `json:"quantity"   validate:"gt=0"`
}

// placeOrderRequest represents a place order request.
type placeOrderRequest struct {
	FullName            string                    `json:"fullName"     validate:"required"`
	Email               string                    `json:"email"        validate:"required,email"`
	PhoneNumber         string                    `json:"phoneNumber"  validate:"required"`
	OfficeNumber        string                    `json:"officeNumber"`
	SpecialInstructions string                    `json:"specialInstructions"`
	Items               []lineInPlaceOrderRequest `json:"items"        validate:"required,min=1,dive"`
}

// Validate validates the place order request.
func (r *placeOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *placeOrderRequest) toModel(act actor.Actor) order.Draft {
	lines := make([]order.DraftLine, len(r.Items))
	for i, item := range r.Items {
		lines[i] = order.DraftLine{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
		}
	}

	return order.Draft{
		EmployeeID:          act.UserID,
		FullName:            r.FullName,
		Email:               r.Email,
		PhoneNumber:         r.PhoneNumber,
		OfficeNumber:        r.OfficeNumber,
		SpecialInstructions: r.SpecialInstructions,
		Lines:               lines,
	}
}

// PlaceOrder handles the place order request.
func PlaceOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := placeOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for place order", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		httperr.Respond(w, r, err)

		return
	}

	act := reqctx.Actor(r.Context())
	o, err := service.PlaceOrder(r.Context(), act, req.toModel(act))
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(o); err != nil {
		httperr.Respond(w, r, err)
	}
}
