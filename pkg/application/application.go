package application

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/eventbus"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/routing"
)

type ApplicationOptions struct {
	Primary *pgxpool.Pool
	// Secondary may be nil, in which case the primary pool serves both stores.
	Secondary       *pgxpool.Pool
	Router          *routing.Router
	EventBus        eventbus.EventBus
	Logger          *logrus.Logger
	MigrationsTable string
	// InMemory makes Transactor hand out in-process transactors for
	// repositories that do not touch a database.
	InMemory bool
}

func New(opts *ApplicationOptions) Application {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	router := opts.Router
	if router == nil {
		router = routing.NewRouter(nil)
	}
	bus := opts.EventBus
	if bus == nil {
		bus = eventbus.NewEventPublisher(logger)
	}
	secondary := opts.Secondary
	if secondary == nil {
		secondary = opts.Primary
	}
	pools := map[routing.Store]*pgxpool.Pool{
		routing.StorePrimary:   opts.Primary,
		routing.StoreSecondary: secondary,
	}

	app := &application{
		pools:          pools,
		router:         router,
		eventPublisher: bus,
		logger:         logger,
		controllers:    make(map[string]Controller),
		services:       make(map[reflect.Type]interface{}),
		migrations:     NewMigrationManager(pools, router, opts.MigrationsTable, logger),
	}
	if opts.InMemory {
		app.memTx = repo.NewMemTransactor()
	}
	return app
}

// application with a dynamically extendable service registry
type application struct {
	pools          map[routing.Store]*pgxpool.Pool
	router         *routing.Router
	eventPublisher eventbus.EventBus
	logger         *logrus.Logger
	memTx          *repo.MemTransactor
	services       map[reflect.Type]interface{}
	controllers    map[string]Controller
	middleware     []mux.MiddlewareFunc
	migrations     MigrationManager
}

func (app *application) DB(store routing.Store) *pgxpool.Pool {
	return app.pools[store]
}

func (app *application) Router() *routing.Router {
	return app.router
}

func (app *application) Logger() *logrus.Logger {
	return app.logger
}

// Transactor returns the unit-of-work runner for the store entity writes to.
func (app *application) Transactor(entity routing.Entity) repo.Transactor {
	if app.memTx != nil {
		return app.memTx
	}
	return composables.NewStoreTransactor(app.router.WriteStore(entity))
}

func (app *application) InMemory() bool {
	return app.memTx != nil
}

func (app *application) Middleware() []mux.MiddlewareFunc {
	return app.middleware
}

func (app *application) EventPublisher() eventbus.EventBus {
	return app.eventPublisher
}

// Controllers returns the registered controllers ordered by key.
func (app *application) Controllers() []Controller {
	keys := make([]string, 0, len(app.controllers))
	for k := range app.controllers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	controllers := make([]Controller, 0, len(app.controllers))
	for _, k := range keys {
		controllers = append(controllers, app.controllers[k])
	}
	return controllers
}

func (app *application) Migrations() MigrationManager {
	return app.migrations
}

func (app *application) RegisterControllers(controllers ...Controller) {
	for _, c := range controllers {
		app.controllers[c.Key()] = c
	}
}

func (app *application) RegisterMiddleware(middleware ...mux.MiddlewareFunc) {
	app.middleware = append(app.middleware, middleware...)
}

// RegisterServices registers a new service in the application by its type
func (app *application) RegisterServices(services ...interface{}) {
	for _, service := range services {
		serviceType := reflect.TypeOf(service).Elem()
		app.services[serviceType] = service
	}
}

// Service retrieves a service by its type
func (app *application) Service(service interface{}) interface{} {
	serviceType := reflect.TypeOf(service)
	svc, exists := app.services[serviceType]
	if !exists {
		panic(fmt.Sprintf("service %s not found", serviceType.Name()))
	}
	return svc
}

func (app *application) Services() map[reflect.Type]interface{} {
	return app.services
}
