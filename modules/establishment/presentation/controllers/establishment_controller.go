package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/establishment/domain/aggregates/establishment"
	"github.com/ipsco/fleet/modules/establishment/presentation/mappers"
	"github.com/ipsco/fleet/modules/establishment/presentation/viewmodels"
	"github.com/ipsco/fleet/modules/establishment/services"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/httpapi"
	"github.com/ipsco/fleet/pkg/middleware"
)

func init() {
	httpapi.RegisterErrorStatus(establishment.CodeDuplicateCode, http.StatusConflict)
	httpapi.RegisterErrorStatus(establishment.CodeCycle, http.StatusConflict)
	httpapi.RegisterErrorStatus(establishment.CodeHasDependents, http.StatusConflict)
}

const idPattern = "{id:[0-9a-fA-F-]{36}}"

type EstablishmentController struct {
	hierarchy *services.HierarchyService
	access    *services.AccessResolver
	auth      *middleware.ActorAuthenticator
	basePath  string
}

func NewEstablishmentController(app application.Application) application.Controller {
	return &EstablishmentController{
		hierarchy: app.Service(services.HierarchyService{}).(*services.HierarchyService),
		access:    app.Service(services.AccessResolver{}).(*services.AccessResolver),
		auth:      app.Service(middleware.ActorAuthenticator{}).(*middleware.ActorAuthenticator),
		basePath:  "/api/v1/establishments",
	}
}

func (c *EstablishmentController) Key() string {
	return c.basePath
}

func (c *EstablishmentController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(c.auth.Middleware()...)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/"+idPattern+":move", c.Move).Methods(http.MethodPost)
	router.HandleFunc("/"+idPattern+"/descendants", c.Descendants).Methods(http.MethodGet)
	router.HandleFunc("/"+idPattern+"/ancestors", c.Ancestors).Methods(http.MethodGet)
	router.HandleFunc("/"+idPattern+"/hierarchy", c.Hierarchy).Methods(http.MethodGet)
	router.HandleFunc("/"+idPattern, c.Get).Methods(http.MethodGet)
	router.HandleFunc("/"+idPattern, c.Update).Methods(http.MethodPatch)
	router.HandleFunc("/"+idPattern, c.Delete).Methods(http.MethodDelete)
}

// target resolves the current actor and the {id} route variable, and
// requires the node to be visible.
func (c *EstablishmentController) target(w http.ResponseWriter, r *http.Request) (actor.Actor, uuid.UUID, bool) {
	current, err := composables.UseActor(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return actor.Actor{}, uuid.Nil, false
	}
	id, err := httpapi.PathUUID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return actor.Actor{}, uuid.Nil, false
	}
	if err := c.access.Authorize(r.Context(), current, id); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return actor.Actor{}, uuid.Nil, false
	}
	return current, id, true
}

func (c *EstablishmentController) List(w http.ResponseWriter, r *http.Request) {
	current, err := composables.UseActor(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	items, err := c.access.VisibleEstablishments(r.Context(), current)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &viewmodels.EstablishmentList{
		Items: mappers.EstablishmentsToViewModels(items),
	})
}

func (c *EstablishmentController) Create(w http.ResponseWriter, r *http.Request) {
	current, err := composables.UseActor(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	var dto establishment.CreateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.access.AuthorizeCapability(r.Context(), current, authz.CapCreateEstablishment, dto.ParentID); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	created, err := c.hierarchy.Create(r.Context(), &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, mappers.EstablishmentToViewModel(created))
}

func (c *EstablishmentController) Get(w http.ResponseWriter, r *http.Request) {
	_, id, ok := c.target(w, r)
	if !ok {
		return
	}
	e, err := c.hierarchy.Get(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.EstablishmentToViewModel(e))
}

func (c *EstablishmentController) Update(w http.ResponseWriter, r *http.Request) {
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
	if err := c.access.AuthorizeCapability(r.Context(), current, authz.CapManageSubtree, &id); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	var dto establishment.UpdateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	updated, err := c.hierarchy.Update(r.Context(), id, &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.EstablishmentToViewModel(updated))
}

type moveRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

// Move reparents a node. The actor needs the subtree capability on the node
// and must see the new parent; a null parent promotes the node to a root.
func (c *EstablishmentController) Move(w http.ResponseWriter, r *http.Request) {
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
	var body moveRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.access.AuthorizeCapability(r.Context(), current, authz.CapManageSubtree, &id); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.access.AuthorizeCapability(r.Context(), current, authz.CapManageSubtree, body.ParentID); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	moved, err := c.hierarchy.Reparent(r.Context(), id, body.ParentID)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.EstablishmentToViewModel(moved))
}

func (c *EstablishmentController) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := c.access.AuthorizeCapability(r.Context(), current, authz.CapManageSubtree, &id); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.hierarchy.Delete(r.Context(), id); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Descendants lists the subtree below a node, limited to the nodes the actor
// can see. Roles without subtree management get an empty list.
func (c *EstablishmentController) Descendants(w http.ResponseWriter, r *http.Request) {
	current, id, ok := c.target(w, r)
	if !ok {
		return
	}
	items, err := c.hierarchy.Descendants(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	visible, err := c.visible(r, current, items)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &viewmodels.EstablishmentList{
		Items: mappers.EstablishmentsToViewModels(visible),
	})
}

// Ancestors lists the path to the root, nearest first, limited to the nodes
// the actor can see.
func (c *EstablishmentController) Ancestors(w http.ResponseWriter, r *http.Request) {
	current, id, ok := c.target(w, r)
	if !ok {
		return
	}
	items, err := c.hierarchy.Ancestors(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	visible, err := c.visible(r, current, items)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &viewmodels.EstablishmentList{
		Items: mappers.EstablishmentsToViewModels(visible),
	})
}

func (c *EstablishmentController) Hierarchy(w http.ResponseWriter, r *http.Request) {
	current, id, ok := c.target(w, r)
	if !ok {
		return
	}
	h, err := c.hierarchy.Hierarchy(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	ancestors, err := c.visible(r, current, h.Ancestors)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	descendants, err := c.visible(r, current, h.Descendants)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &viewmodels.Hierarchy{
		Ancestors:   mappers.EstablishmentsToViewModels(ancestors),
		Node:        mappers.EstablishmentToViewModel(h.Node),
		Descendants: mappers.EstablishmentsToViewModels(descendants),
	})
}

func (c *EstablishmentController) visible(
	r *http.Request,
	current actor.Actor,
	items []establishment.Establishment,
) ([]establishment.Establishment, error) {
	set, err := c.access.VisibleNodes(r.Context(), current)
	if err != nil {
		return nil, err
	}
	out := make([]establishment.Establishment, 0, len(items))
	for _, e := range items {
		if set.Contains(e.ID()) {
			out = append(out, e)
		}
	}
	return out, nil
}
