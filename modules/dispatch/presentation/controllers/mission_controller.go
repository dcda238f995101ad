package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/dispatch/domain/aggregates/mission"
	"github.com/ipsco/fleet/modules/dispatch/presentation/mappers"
	"github.com/ipsco/fleet/modules/dispatch/presentation/viewmodels"
	"github.com/ipsco/fleet/modules/dispatch/services"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/httpapi"
	"github.com/ipsco/fleet/pkg/middleware"
	"github.com/ipsco/fleet/pkg/serrors"
)

const idPattern = "{id:[0-9a-fA-F-]{36}}"

type MissionController struct {
	missions *services.MissionService
	auth     *middleware.ActorAuthenticator
	basePath string
}

func NewMissionController(app application.Application) application.Controller {
	return &MissionController{
		missions: app.Service(services.MissionService{}).(*services.MissionService),
		auth:     app.Service(middleware.ActorAuthenticator{}).(*middleware.ActorAuthenticator),
		basePath: "/api/v1/missions",
	}
}

func (c *MissionController) Key() string {
	return c.basePath
}

func (c *MissionController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(c.auth.Middleware()...)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/"+idPattern+":validate", c.Validate).Methods(http.MethodPost)
	router.HandleFunc("/"+idPattern+":refuse", c.Refuse).Methods(http.MethodPost)
	router.HandleFunc("/"+idPattern, c.Get).Methods(http.MethodGet)
}

func (c *MissionController) List(w http.ResponseWriter, r *http.Request) {
	current, err := composables.UseActor(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	status := mission.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		httpapi.WriteServiceError(w, r, serrors.Invalid("status", "unknown mission status"))
		return
	}
	items, err := c.missions.List(r.Context(), current, status)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, viewmodels.MissionList{Items: mappers.MissionsToViewModels(items)})
}

func (c *MissionController) Create(w http.ResponseWriter, r *http.Request) {
	current, err := composables.UseActor(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	var dto mission.CreateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	created, err := c.missions.Create(r.Context(), current, &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, mappers.MissionToViewModel(created))
}

func (c *MissionController) Get(w http.ResponseWriter, r *http.Request) {
	c.withMission(w, r, http.StatusOK, c.missions.Get)
}

func (c *MissionController) Validate(w http.ResponseWriter, r *http.Request) {
	c.withMission(w, r, http.StatusOK, c.missions.Validate)
}

func (c *MissionController) Refuse(w http.ResponseWriter, r *http.Request) {
	c.withMission(w, r, http.StatusOK, c.missions.Refuse)
}

func (c *MissionController) withMission(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	op func(context.Context, actor.Actor, uuid.UUID) (mission.Mission, error),
) {
	current, err := composables.UseActor(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	id, err := httpapi.PathUUID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	m, err := op(r.Context(), current, id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, status, mappers.MissionToViewModel(m))
}
