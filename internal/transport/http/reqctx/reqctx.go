package reqctx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/canteen-platform/order-core/internal/service/models/actor"
)

type contextKey struct{}

var actorKey contextKey

// NewActorMiddleware reads the identity headers set by the gateway after
// authentication and puts the resulting actor on the request context.
// Requests without a valid identity are rejected before any handler runs.
func NewActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.Header.Get("X-User-Id"), 10, 64)
		if err != nil || userID <= 0 {
			http.Error(w, "missing or invalid X-User-Id header", http.StatusUnauthorized)

			return
		}

		role, err := actor.ParseRole(r.Header.Get("X-User-Role"))
		if err != nil {
			http.Error(w, "missing or invalid X-User-Role header", http.StatusUnauthorized)

			return
		}

		act := actor.Actor{UserID: userID, Role: role}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, act)))
	})
}

// Actor returns the authenticated actor stored by NewActorMiddleware.
func Actor(ctx context.Context) actor.Actor {
	act, _ := ctx.Value(actorKey).(actor.Actor)

	return act
}
