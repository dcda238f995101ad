package logging

import (
	"embed"

	"github.com/ipsco/fleet/modules/logging/domain/entities/actionlog"
	"github.com/ipsco/fleet/modules/logging/handlers"
	"github.com/ipsco/fleet/modules/logging/infrastructure/persistence"
	"github.com/ipsco/fleet/modules/logging/presentation/controllers"
	"github.com/ipsco/fleet/modules/logging/services"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/middleware"
	"github.com/ipsco/fleet/pkg/routing"
)

//go:embed infrastructure/persistence/schema/actionlog/*.sql
var MigrationFiles embed.FS

const schemaDir = "infrastructure/persistence/schema/actionlog"

type ModuleOptions struct {
	RealIPHeader string
	// Records every successful mutating request of an authenticated actor.
	RecordRequests bool
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
	app.Migrations().RegisterSchema(routing.EntityActionLog, MigrationFiles, schemaDir)

	var repo actionlog.Repository
	if app.InMemory() {
		repo = persistence.NewInmemActionLogRepository()
	} else {
		repo = persistence.NewActionLogRepository(app.Router())
	}
	logsService := services.NewLogsService(repo, app.Transactor(routing.EntityActionLog), app.Logger())
	app.RegisterServices(logsService)

	if m.options.RecordRequests {
		auth := app.Service(middleware.ActorAuthenticator{}).(*middleware.ActorAuthenticator)
		auth.Use(handlers.ActionLogMiddleware(logsService, m.options.RealIPHeader))
	}
	app.RegisterControllers(
		controllers.NewLogsController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "logging"
}
