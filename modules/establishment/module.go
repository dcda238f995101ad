package establishment

import (
	"embed"

	coreservices "github.com/ipsco/fleet/modules/core/services"
	"github.com/ipsco/fleet/modules/establishment/domain/aggregates/establishment"
	"github.com/ipsco/fleet/modules/establishment/infrastructure/persistence"
	"github.com/ipsco/fleet/modules/establishment/presentation/controllers"
	"github.com/ipsco/fleet/modules/establishment/services"
	logservices "github.com/ipsco/fleet/modules/logging/services"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/routing"
)

//go:embed infrastructure/persistence/schema/establishment/*.sql
var MigrationFiles embed.FS

const schemaDir = "infrastructure/persistence/schema/establishment"

type ModuleOptions struct {
	// Authz maps roles to capabilities. The embedded policy is used when nil.
	Authz *authz.Service
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
	app.Migrations().RegisterSchema(routing.EntityEstablishment, MigrationFiles, schemaDir)

	caps := m.options.Authz
	if caps == nil {
		var err error
		caps, err = authz.NewService(authz.Config{Logger: app.Logger()})
		if err != nil {
			return err
		}
	}

	var repo establishment.Repository
	if app.InMemory() {
		repo = persistence.NewInmemEstablishmentRepository()
	} else {
		repo = persistence.NewEstablishmentRepository(app.Router())
	}

	actors := app.Service(coreservices.ActorService{}).(*coreservices.ActorService)
	logs := app.Service(logservices.LogsService{}).(*logservices.LogsService)

	hierarchy := services.NewHierarchyService(
		repo,
		actors.Repository(),
		app.Transactor(routing.EntityEstablishment),
		services.WithActionRecorder(logs),
		services.WithHierarchyLogger(app.Logger()),
	)
	access := services.NewAccessResolver(hierarchy, caps, app.Logger())
	actors.SetAssignmentAuthorizer(access)

	app.RegisterServices(caps, hierarchy, access)
	app.RegisterControllers(
		controllers.NewEstablishmentController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "establishment"
}
