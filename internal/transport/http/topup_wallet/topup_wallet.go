package topupwallet

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
)

type service interface {
	InitiateTopup(ctx context.Context, act actor.Actor, method paymethod.Method, amount int64, phoneNumber string) (*paymentsvc.InitiateResult, error)
}

type topupRequest struct {
	Amount        int64  `json:"amount"        validate:"gt=0"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
	PhoneNumber   string `json:"phoneNumber"   validate:"required"`
}

// Validate validates the top-up request.
func (r *topupRequest) Validate() error {
	return validator.New().Struct(r)
}

// TopupWallet handles the wallet top-up request.
func TopupWallet(w http.ResponseWriter, r *http.Request, service service) {
	req := topupRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for wallet top-up", "error", err)

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

	result, err := service.InitiateTopup(r.Context(), reqctx.Actor(r.Context()), method, req.Amount, req.PhoneNumber)
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
