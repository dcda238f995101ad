package dispatch

import (
	"embed"

	coreservices "github.com/ipsco/fleet/modules/core/services"
	"github.com/ipsco/fleet/modules/dispatch/domain/aggregates/mission"
	"github.com/ipsco/fleet/modules/dispatch/infrastructure/persistence"
	"github.com/ipsco/fleet/modules/dispatch/presentation/controllers"
	"github.com/ipsco/fleet/modules/dispatch/services"
	esservices "github.com/ipsco/fleet/modules/establishment/services"
	logservices "github.com/ipsco/fleet/modules/logging/services"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/routing"
)

//go:embed infrastructure/persistence/schema/mission/*.sql
var MigrationFiles embed.FS

const schemaDir = "infrastructure/persistence/schema/mission"

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(routing.EntityMission, MigrationFiles, schemaDir)

	var repo mission.Repository
	if app.InMemory() {
		repo = persistence.NewInmemMissionRepository()
	} else {
		repo = persistence.NewMissionRepository(app.Router())
	}

	actors := app.Service(coreservices.ActorService{}).(*coreservices.ActorService)
	app.RegisterServices(services.NewMissionService(services.MissionServiceDeps{
		Repo:      repo,
		Actors:    actors.Repository(),
		Access:    app.Service(esservices.AccessResolver{}).(*esservices.AccessResolver),
		Caps:      app.Service(authz.Service{}).(*authz.Service),
		Tx:        app.Transactor(routing.EntityMission),
		Publisher: app.EventPublisher(),
		Recorder:  app.Service(logservices.LogsService{}).(*logservices.LogsService),
		Logger:    app.Logger(),
	}))
	app.RegisterControllers(
		controllers.NewMissionController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "dispatch"
}
