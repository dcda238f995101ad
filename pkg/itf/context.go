// Package itf builds in-process application environments for tests: every
// module registered over in-memory repositories, served through the same
// router the HTTP server uses.
package itf

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/modules"
	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	coreservices "github.com/ipsco/fleet/modules/core/services"
	"github.com/ipsco/fleet/modules/notifications/domain/notification"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/httpapi"
	"github.com/ipsco/fleet/pkg/server"
)

// TestContext is a fluent builder for a TestEnvironment.
type TestContext struct {
	ctx     context.Context
	options modules.Options
	extra   []application.Module
	logger  *logrus.Logger
}

func NewTestContext() *TestContext {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &TestContext{
		ctx:     context.Background(),
		options: modules.Options{RecordRequests: true},
		logger:  logger,
	}
}

// WithSenders replaces the notification channels.
func (tc *TestContext) WithSenders(senders ...notification.Sender) *TestContext {
	tc.options.Senders = append(tc.options.Senders, senders...)
	return tc
}

// WithModules registers extra modules after the built-in ones.
func (tc *TestContext) WithModules(mods ...application.Module) *TestContext {
	tc.extra = append(tc.extra, mods...)
	return tc
}

func (tc *TestContext) WithLogger(logger *logrus.Logger) *TestContext {
	tc.logger = logger
	return tc
}

// Build creates the application and its router.
func (tc *TestContext) Build(tb testing.TB) *TestEnvironment {
	tb.Helper()

	app := application.New(&application.ApplicationOptions{
		Logger:   tc.logger,
		InMemory: true,
	})
	opts := tc.options
	if opts.Senders == nil {
		opts.Senders = []notification.Sender{}
	}
	mods := append(modules.BuiltInModules(&opts), tc.extra...)
	if err := modules.Load(app, mods...); err != nil {
		tb.Fatal(err)
	}

	srv := server.NewHTTPServer(app, httpapi.NotFound(), httpapi.MethodNotAllowed())
	return &TestEnvironment{
		Ctx:    composables.WithLogger(tc.ctx, tc.logger.WithField("test", tb.Name())),
		App:    app,
		Router: srv.Router(),
		header: "X-Actor-ID",
	}
}

// TestEnvironment contains all test dependencies.
type TestEnvironment struct {
	Ctx    context.Context
	App    application.Application
	Router http.Handler
	header string
}

// Service retrieves a service from the application.
func (te *TestEnvironment) Service(service interface{}) interface{} {
	return te.App.Service(service)
}

// GetService is a generic helper that retrieves and casts a service.
func GetService[T any](te *TestEnvironment) *T {
	var zero T
	return te.App.Service(zero).(*T)
}

// CreateActor stores a directly without any authorization check.
func (te *TestEnvironment) CreateActor(tb testing.TB, a actor.Actor) actor.Actor {
	tb.Helper()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.IsActive = true
	created, err := GetService[coreservices.ActorService](te).Repository().Create(te.Ctx, a)
	if err != nil {
		tb.Fatal(err)
	}
	return created
}

// WithActor returns a context carrying a as the authenticated caller.
func (te *TestEnvironment) WithActor(a actor.Actor) context.Context {
	return composables.WithActor(te.Ctx, a)
}
