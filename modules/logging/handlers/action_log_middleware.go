package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ipsco/fleet/modules/logging/domain/entities/actionlog"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/middleware"
)

type ActionLogWriter interface {
	CreateActionLog(ctx context.Context, log *actionlog.ActionLog) error
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// ActionLogMiddleware records successful mutating requests of an
// authenticated actor. Persisting is best-effort and never changes the
// response.
func ActionLogMiddleware(logs ActionLogWriter, realIPHeader string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			if sw.status >= http.StatusBadRequest {
				return
			}

			current, err := composables.UseActor(r.Context())
			if err != nil {
				return
			}
			actorID := current.ID
			ip, _ := middleware.RealIP(r, realIPHeader)
			ctx := context.WithoutCancel(r.Context())

			entry := &actionlog.ActionLog{
				ActorID:   &actorID,
				Action:    "http." + strings.ToLower(r.Method),
				Details:   r.Method + " " + r.URL.Path,
				Method:    strings.ToUpper(r.Method),
				Path:      r.URL.Path,
				UserAgent: r.UserAgent(),
				IP:        ip,
				CreatedAt: time.Now(),
			}
			if err := logs.CreateActionLog(ctx, entry); err != nil {
				composables.UseLogger(ctx).WithError(err).Warn("action-log: failed to persist request")
			}
		})
	}
}
