package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipsco/fleet/pkg/composables"
)

// WithPools makes both store pools available to repositories through the
// request context. A nil secondary shares the primary pool.
func WithPools(primary, secondary *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := composables.WithPools(r.Context(), primary, secondary)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
