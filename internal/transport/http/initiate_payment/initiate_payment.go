package initiatepayment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/canteen-platform/order-core/internal/service/models/actor"
	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
	"github.com/canteen-platform/order-core/internal/service/services/paymentsvc"
	"github.com/canteen-platform/order-core/internal/transport/http/httperr"
	"github.com/canteen-platform/order-core/internal/transport/http/reqctx"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type service interface {
	InitiateOrderPayment(ctx context.Context, act actor.Actor, orderID uuid.UUID, method paymethod.Method, phoneNumber string) (*paymentsvc.InitiateResult, error)
}

type initiatePaymentRequest struct {
	OrderID       string `json:"orderId"       validate:"required,uuid"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
	PhoneNumber   string `json:"phoneNumber"`
}

// Validate validates the initiate payment request.
func (r *initiatePaymentRequest) Validate() error {
	return validator.New().Struct(r)
}

// InitiatePayment handles the order payment request.
func InitiatePayment(w http.ResponseWriter, r *http.Request, service service) {
	req := initiatePaymentRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for initiate payment", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		httperr.Respond(w, r, err)

		return
	}

	method, err := paymethod.ParseMethod(req.PaymentMethod)
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	result, err := service.InitiateOrderPayment(r.Context(), reqctx.Actor(r.Context()), orderID, method, req.PhoneNumber)
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if result.Payment.IsSuccessful() {
		// Wallet payments settle synchronously.
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusAccepted)
	}
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
