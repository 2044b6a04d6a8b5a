package reqctx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/canteen-platform/order-core/internal/service/models/actor"
)

func TestNewActorMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		role       string
		wantStatus int
		wantActor  actor.Actor
	}{
		{
			name:       "employee",
			userID:     "42",
			role:       "employee",
			wantStatus: http.StatusOK,
			wantActor:  actor.Actor{UserID: 42, Role: actor.RoleEmployee},
		},
		{
			name:       "canteen admin",
			userID:     "1",
			role:       "canteen_admin",
			wantStatus: http.StatusOK,
			wantActor:  actor.Actor{UserID: 1, Role: actor.RoleCanteenAdmin},
		},
		{
			name:       "missing user id",
			role:       "employee",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non-numeric user id",
			userID:     "abc",
			role:       "employee",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "zero user id",
			userID:     "0",
			role:       "employee",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown role",
			userID:     "42",
			role:       "superuser",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing role",
			userID:     "42",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got actor.Actor
			handler := NewActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = Actor(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tt.userID != "" {
				req.Header.Set("X-User-Id", tt.userID)
			}
			if tt.role != "" {
				req.Header.Set("X-User-Role", tt.role)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && got != tt.wantActor {
				t.Errorf("actor = %+v, want %+v", got, tt.wantActor)
			}
		})
	}
}
