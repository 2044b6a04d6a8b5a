package adjustwallet

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/canteen-platform/order-core/internal/service/models/actor"
	"github.com/canteen-platform/order-core/internal/service/models/wallet"
	"github.com/canteen-platform/order-core/internal/transport/http/httperr"
	"github.com/canteen-platform/order-core/internal/transport/http/reqctx"
	"github.com/go-playground/validator/v10"
)

type service interface {
	Adjust(ctx context.Context, act actor.Actor, userID int64, amount int64, reason string) (wallet.Transaction, error)
}

type adjustWalletRequest struct {
	UserID int64  `json:"userId" validate:"gt=0"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason" validate:"required"`
}

// Validate validates the wallet adjustment request.
func (r *adjustWalletRequest) Validate() error {
	return validator.New().Struct(r)
}

// AdjustWallet handles the manual wallet adjustment request.
func AdjustWallet(w http.ResponseWriter, r *http.Request, service service) {
	req := adjustWalletRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for wallet adjustment", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		httperr.Respond(w, r, err)

		return
	}

	txn, err := service.Adjust(r.Context(), reqctx.Actor(r.Context()), req.UserID, req.Amount, req.Reason)
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(txn); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
