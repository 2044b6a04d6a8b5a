package getpayment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/canteen-platform/order-core/internal/service/models/actor"
	"github.com/canteen-platform/order-core/internal/service/models/payment"
	"github.com/canteen-platform/order-core/internal/transport/http/httperr"
	"github.com/canteen-platform/order-core/internal/transport/http/reqctx"
	"github.com/go-chi/chi/v5"
)

type service interface {
	GetPayment(ctx context.Context, act actor.Actor, reference string) (*payment.Payment, error)
	VerifyPayment(ctx context.Context, act actor.Actor, reference string) (*payment.Payment, error)
}

// GetPayment handles the payment status request. With ?verify=true the
// provider is polled before answering, resolving a stuck payment on demand.
func GetPayment(w http.ResponseWriter, r *http.Request, service service) {
	reference := chi.URLParam(r, "reference")
	act := reqctx.Actor(r.Context())

	var (
		p   *payment.Payment
		err error
	)
	if r.URL.Query().Get("verify") == "true" {
		p, err = service.VerifyPayment(r.Context(), act, reference)
	} else {
		p, err = service.GetPayment(r.Context(), act, reference)
	}
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
