package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/httpapi"
)

type ActorLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (actor.Actor, error)
}

// RequireActor resolves the already authenticated actor named by header and
// stores it in the request context. Requests without a known, active actor
// are rejected with 401.
func RequireActor(lookup ActorLookup, header string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(header))
			id, err := uuid.Parse(raw)
			if raw == "" || err != nil {
				unauthorized(w)
				return
			}
			a, err := lookup.GetByID(r.Context(), id)
			if err != nil || !a.IsActive {
				logger := composables.UseLogger(r.Context())
				logger.WithField("actor-id", id).WithError(err).Warn("actor not resolved")
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithActor(r.Context(), a)))
		})
	}
}

// ActorAuthenticator is shared by every controller that serves actor
// scoped routes. Middleware registered through Use runs after the actor is
// resolved.
type ActorAuthenticator struct {
	lookup ActorLookup
	header string
	after  []mux.MiddlewareFunc
}

func NewActorAuthenticator(lookup ActorLookup, header string) *ActorAuthenticator {
	if header == "" {
		header = "X-Actor-ID"
	}
	return &ActorAuthenticator{lookup: lookup, header: header}
}

func (a *ActorAuthenticator) Use(mw ...mux.MiddlewareFunc) {
	a.after = append(a.after, mw...)
}

func (a *ActorAuthenticator) Middleware() []mux.MiddlewareFunc {
	out := make([]mux.MiddlewareFunc, 0, len(a.after)+1)
	out = append(out, RequireActor(a.lookup, a.header))
	return append(out, a.after...)
}

func unauthorized(w http.ResponseWriter) {
	_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
}
