package application

import (
	"context"
	"io/fs"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/pkg/eventbus"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/routing"
)

type Controller interface {
	Register(r *mux.Router)
	Key() string
}

type Module interface {
	Register(app Application) error
	Name() string
}

// MigrationManager applies each entity's schema to the stores the router
// allows it on.
type MigrationManager interface {
	RegisterSchema(entity routing.Entity, fsys fs.FS, dir string)
	Plan(store routing.Store) []SchemaSource
	Run(ctx context.Context, store routing.Store) ([]*goose.MigrationResult, error)
	Rollback(ctx context.Context, store routing.Store) ([]*goose.MigrationResult, error)
	Status(ctx context.Context, store routing.Store) (map[routing.Entity][]*goose.MigrationStatus, error)
}

// Application with a dynamically extendable service registry
type Application interface {
	DB(store routing.Store) *pgxpool.Pool
	Router() *routing.Router
	EventPublisher() eventbus.EventBus
	Logger() *logrus.Logger
	Transactor(entity routing.Entity) repo.Transactor
	// InMemory reports whether repositories should keep their state in process.
	InMemory() bool
	Controllers() []Controller
	Middleware() []mux.MiddlewareFunc
	Migrations() MigrationManager
	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}
	Services() map[reflect.Type]interface{}
}
