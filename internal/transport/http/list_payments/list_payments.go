package listpayments

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/canteen-platform/order-core/internal/service/models/payment"
	"github.com/canteen-platform/order-core/internal/transport/http/httperr"
	"github.com/canteen-platform/order-core/internal/transport/http/reqctx"
	"github.com/gorilla/schema"
)

type service interface {
	PaymentHistory(ctx context.Context, userID int64, status payment.Status, transactionType payment.Type, limit, offset int) ([]payment.Payment, error)
}

type queryPaymentsRequest struct {
	Status          string `schema:"status,omitempty"`
	TransactionType string `schema:"transactionType,omitempty"`
	Limit           int    `schema:"limit,omitempty"`
	Offset          int    `schema:"offset,omitempty"`
}

// ListPayments handles the payment history request for the calling user.
func ListPayments(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &queryPaymentsRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	var status payment.Status
	if query.Status != "" {
		parsed, err := payment.ParseStatus(query.Status)
		if err != nil {
			httperr.Respond(w, r, err)

			return
		}
		status = parsed
	}

	var transactionType payment.Type
	if query.TransactionType != "" {
		parsed, err := payment.ParseType(query.TransactionType)
		if err != nil {
			httperr.Respond(w, r, err)

			return
		}
		transactionType = parsed
	}

	act := reqctx.Actor(r.Context())
	payments, err := service.PaymentHistory(r.Context(), act.UserID, status, transactionType, query.Limit, query.Offset)
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payments); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
