package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/core/presentation/mappers"
	"github.com/ipsco/fleet/modules/core/services"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/httpapi"
	"github.com/ipsco/fleet/pkg/middleware"
	"github.com/ipsco/fleet/pkg/serrors"
)

const idPattern = "{id:[0-9a-fA-F-]{36}}"

type ActorController struct {
	actors   *services.ActorService
	auth     *middleware.ActorAuthenticator
	basePath string
}

func NewActorController(app application.Application) application.Controller {
	return &ActorController{
		actors:   app.Service(services.ActorService{}).(*services.ActorService),
		auth:     app.Service(middleware.ActorAuthenticator{}).(*middleware.ActorAuthenticator),
		basePath: "/api/v1/actors",
	}
}

func (c *ActorController) Key() string {
	return c.basePath
}

func (c *ActorController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(c.auth.Middleware()...)
	router.HandleFunc("/me", c.Me).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/"+idPattern+":assign", c.Assign).Methods(http.MethodPost)
	router.HandleFunc("/"+idPattern+":unassign", c.Unassign).Methods(http.MethodPost)
}

func (c *ActorController) Me(w http.ResponseWriter, r *http.Request) {
	current, err := composables.UseActor(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.ActorToViewModel(current))
}

func (c *ActorController) Create(w http.ResponseWriter, r *http.Request) {
	current, err := composables.UseActor(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	var dto actor.CreateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	created, err := c.actors.Create(r.Context(), current, &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, mappers.ActorToViewModel(created))
}

type assignRequest struct {
	EstablishmentID *uuid.UUID `json:"establishment_id"`
}

func (c *ActorController) Assign(w http.ResponseWriter, r *http.Request) {
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
	var body assignRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if body.EstablishmentID == nil {
		httpapi.WriteServiceError(w, r, serrors.Invalid("establishment_id", "is required"))
		return
	}
	updated, err := c.actors.AssignEstablishment(r.Context(), current, id, *body.EstablishmentID)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.ActorToViewModel(updated))
}

func (c *ActorController) Unassign(w http.ResponseWriter, r *http.Request) {
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
	updated, err := c.actors.ClearEstablishment(r.Context(), current, id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.ActorToViewModel(updated))
}
