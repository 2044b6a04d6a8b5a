package httperr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	menuitemrepo "github.com/canteen-platform/order-core/internal/dal/repositories/menuitem/postgres"
	orderrepo "github.com/canteen-platform/order-core/internal/dal/repositories/order/postgres"
	paymentrepo "github.com/canteen-platform/order-core/internal/dal/repositories/payment/postgres"
	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/service/models/payment"
	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
	"github.com/canteen-platform/order-core/internal/service/models/wallet"
	"github.com/canteen-platform/order-core/internal/service/services/ordersvc"
	"github.com/canteen-platform/order-core/internal/service/services/paymentsvc"
	"github.com/canteen-platform/order-core/internal/service/services/walletsvc"
	"github.com/go-playground/validator/v10"
)

type errorResponse struct {
	Error string `json:"error"`
}

// Respond maps a service error onto an HTTP status and writes a JSON error
// body. Unknown errors become a 500 without leaking their message.
func Respond(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal server error"
	} else {
		slog.WarnContext(r.Context(), "Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func statusFor(err error) int {
	var itemErr *ordersvc.ItemUnavailableError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, orderrepo.ErrOrderNotFound),
		errors.Is(err, paymentrepo.ErrPaymentNotFound),
		errors.Is(err, menuitemrepo.ErrMenuItemNotFound):
		return http.StatusNotFound

	case errors.Is(err, ordersvc.ErrNotOrderOwner),
		errors.Is(err, paymentsvc.ErrNotPaymentOwner),
		errors.Is(err, walletsvc.ErrForbidden):
		return http.StatusForbidden

	case errors.As(err, &itemErr),
		errors.Is(err, order.ErrIllegalTransition),
		errors.Is(err, ordersvc.ErrCancelCutoff),
		errors.Is(err, paymentsvc.ErrOrderNotPayable),
		errors.Is(err, paymentsvc.ErrDuplicatePayment),
		errors.Is(err, paymentsvc.ErrRetriesExhausted),
		errors.Is(err, wallet.ErrInsufficientBalance),
		errors.Is(err, menuitemrepo.ErrInsufficientStock):
		return http.StatusConflict

	case errors.As(err, &validationErrs),
		errors.Is(err, ordersvc.ErrNoItems),
		errors.Is(err, ordersvc.ErrInvalidQuantity),
		errors.Is(err, paymentsvc.ErrInvalidPhone),
		errors.Is(err, paymentsvc.ErrAmountOutOfRange),
		errors.Is(err, paymentsvc.ErrUnknownProvider),
		errors.Is(err, walletsvc.ErrZeroAdjustment),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, payment.ErrInvalidStatus),
		errors.Is(err, payment.ErrInvalidType),
		errors.Is(err, paymethod.ErrInvalidMethod):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// Forbidden writes a 403 for capability failures detected at the router.
func Forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: "insufficient permissions"})
}
