package listorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/canteen-platform/order-core/internal/service/models/order"
	"github.com/canteen-platform/order-core/internal/transport/http/httperr"
	"github.com/canteen-platform/order-core/internal/transport/http/reqctx"
	"github.com/gorilla/schema"
)

type service interface {
	GetOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
}

type queryOrdersRequest struct {
	EmployeeIds []int64  `schema:"employeeIds,omitempty"`
	Statuses    []string `schema:"statuses,omitempty"`
	Limit       int      `schema:"limit,omitempty"`
	Offset      int      `schema:"offset,omitempty"`
}

func (q *queryOrdersRequest) toModel() (order.QueryOrdersModel, error) {
	statuses := make([]order.Status, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		status, err := order.ParseStatus(s)
		if err != nil {
			return order.QueryOrdersModel{}, err
		}
		statuses = append(statuses, status)
	}

	return order.QueryOrdersModel{
		EmployeeIds: q.EmployeeIds,
		Statuses:    statuses,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}, nil
}

// ListOrders handles the list orders request. Employees only ever see their
// own orders regardless of the filters they send.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &queryOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	filter, err := query.toModel()
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	act := reqctx.Actor(r.Context())
	if !act.CanManageOrders() {
		filter.EmployeeIds = []int64{act.UserID}
	}

	orders, err := service.GetOrders(r.Context(), filter)
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(orders); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
