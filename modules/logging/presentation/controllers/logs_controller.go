package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ipsco/fleet/modules/logging/domain/entities/actionlog"
	"github.com/ipsco/fleet/modules/logging/presentation/mappers"
	"github.com/ipsco/fleet/modules/logging/presentation/viewmodels"
	"github.com/ipsco/fleet/modules/logging/services"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/httpapi"
	"github.com/ipsco/fleet/pkg/middleware"
	"github.com/ipsco/fleet/pkg/serrors"
)

const defaultPageSize = 50

type LogsController struct {
	logsService *services.LogsService
	auth        *middleware.ActorAuthenticator
	basePath    string
}

func NewLogsController(app application.Application) application.Controller {
	return &LogsController{
		logsService: app.Service(services.LogsService{}).(*services.LogsService),
		auth:        app.Service(middleware.ActorAuthenticator{}).(*middleware.ActorAuthenticator),
		basePath:    "/api/v1/action-logs",
	}
}

func (c *LogsController) Key() string {
	return c.basePath
}

func (c *LogsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(c.auth.Middleware()...)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
}

func (c *LogsController) List(w http.ResponseWriter, r *http.Request) {
	current, err := composables.UseActor(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	params, err := actionFilters(r)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}

	logs, total, err := c.logsService.ListActionLogs(r.Context(), current, params)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	page := &viewmodels.ActionLogPage{
		Items: make([]*viewmodels.ActionLog, 0, len(logs)),
		Total: total,
	}
	for _, l := range logs {
		page.Items = append(page.Items, mappers.ActionLogToViewModel(l))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, page)
}

func actionFilters(r *http.Request) (*actionlog.FindParams, error) {
	q := r.URL.Query()
	params := &actionlog.FindParams{Action: strings.TrimSpace(q.Get("action"))}

	actorID, err := httpapi.QueryUUID(r, "actor_id")
	if err != nil {
		return nil, err
	}
	params.ActorID = actorID

	if params.Limit, err = httpapi.QueryInt(r, "limit", defaultPageSize); err != nil {
		return nil, err
	}
	if params.Offset, err = httpapi.QueryInt(r, "offset", 0); err != nil {
		return nil, err
	}

	for name, dst := range map[string]**time.Time{"from": &params.From, "to": &params.To} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, serrors.Invalid(name, "must be an RFC3339 timestamp")
		}
		*dst = &t
	}
	return params, nil
}
