package walletstatement

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/canteen-platform/order-core/internal/service/services/walletsvc"
	"github.com/canteen-platform/order-core/internal/transport/http/httperr"
	"github.com/canteen-platform/order-core/internal/transport/http/reqctx"
	"github.com/gorilla/schema"
)

type service interface {
	GetStatement(ctx context.Context, userID int64, limit int) (*walletsvc.Statement, error)
}

type statementRequest struct {
	Limit int `schema:"limit,omitempty"`
}

// GetStatement handles the wallet statement request for the calling user.
func GetStatement(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &statementRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	act := reqctx.Actor(r.Context())
	statement, err := service.GetStatement(r.Context(), act.UserID, query.Limit)
	if err != nil {
		httperr.Respond(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statement); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
