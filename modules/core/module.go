package core

import (
	"embed"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/core/infrastructure/persistence"
	"github.com/ipsco/fleet/modules/core/presentation/controllers"
	"github.com/ipsco/fleet/modules/core/services"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/middleware"
	"github.com/ipsco/fleet/pkg/routing"
)

//go:embed infrastructure/persistence/schema/actor/*.sql
var MigrationFiles embed.FS

const schemaDir = "infrastructure/persistence/schema/actor"

type ModuleOptions struct {
	// Header carrying the caller's actor id. Defaults to X-Actor-ID.
	ActorIDHeader string
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(routing.EntityActor, MigrationFiles, schemaDir)

	var repo actor.Repository
	if app.InMemory() {
		repo = persistence.NewInmemActorRepository()
	} else {
		repo = persistence.NewActorRepository(app.Router())
	}
	// The establishment module installs the assignment authorizer.
	actorService := services.NewActorService(repo, nil, app.Transactor(routing.EntityActor), app.Logger())
	app.RegisterServices(
		actorService,
		middleware.NewActorAuthenticator(actorService, m.options.ActorIDHeader),
	)
	app.RegisterControllers(
		controllers.NewActorController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "core"
}
