package application_test

import (
	"testing"
	"testing/fstest"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/logging"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/routing"
)

type stubController struct{ key string }

func (c stubController) Register(*mux.Router) {}
func (c stubController) Key() string          { return c.key }

type greeter struct{ name string }

func newApp(t *testing.T, inMemory bool) application.Application {
	t.Helper()
	return application.New(&application.ApplicationOptions{
		Logger:   logging.ConsoleLogger(logrus.PanicLevel),
		InMemory: inMemory,
	})
}

func TestApplication_Services(t *testing.T) {
	app := newApp(t, true)
	svc := &greeter{name: "hi"}
	app.RegisterServices(svc)

	got, ok := app.Service(greeter{}).(*greeter)
	require.True(t, ok)
	assert.Same(t, svc, got)
	assert.Len(t, app.Services(), 1)
	assert.Panics(t, func() { app.Service(stubController{}) })
}

func TestApplication_ControllersOrderedByKey(t *testing.T) {
	app := newApp(t, true)
	app.RegisterControllers(stubController{key: "missions"}, stubController{key: "actors"})
	app.RegisterControllers(stubController{key: "actors"})

	var keys []string
	for _, c := range app.Controllers() {
		keys = append(keys, c.Key())
	}
	assert.Equal(t, []string{"actors", "missions"}, keys)
}

func TestApplication_Transactor(t *testing.T) {
	mem := newApp(t, true)
	_, ok := mem.Transactor(routing.EntityMission).(*repo.MemTransactor)
	assert.True(t, ok)

	db := newApp(t, false)
	tx, ok := db.Transactor(routing.EntityActionLog).(composables.StoreTransactor)
	require.True(t, ok)
	assert.Equal(t, routing.StoreSecondary, tx.Store)

	tx, ok = db.Transactor(routing.EntityEstablishment).(composables.StoreTransactor)
	require.True(t, ok)
	assert.Equal(t, routing.StorePrimary, tx.Store)
}

func TestMigrationManager_Plan(t *testing.T) {
	schema := fstest.MapFS{
		"schema/actor/00001_actors.sql":           {Data: []byte("-- +goose Up\n")},
		"schema/actionlog/00001_action_logs.sql":  {Data: []byte("-- +goose Up\n")},
		"schema/permission/00001_permissions.sql": {Data: []byte("-- +goose Up\n")},
	}
	app := newApp(t, false)
	m := app.Migrations()
	m.RegisterSchema(routing.EntityActor, schema, "schema/actor")
	m.RegisterSchema(routing.EntityActionLog, schema, "schema/actionlog")
	m.RegisterSchema(routing.EntityPermission, schema, "schema/permission")

	entities := func(plan []application.SchemaSource) []routing.Entity {
		out := make([]routing.Entity, 0, len(plan))
		for _, s := range plan {
			out = append(out, s.Entity)
		}
		return out
	}

	assert.Equal(t,
		[]routing.Entity{routing.EntityActor, routing.EntityPermission},
		entities(m.Plan(routing.StorePrimary)),
	)
	assert.Equal(t,
		[]routing.Entity{routing.EntityActionLog, routing.EntityPermission},
		entities(m.Plan(routing.StoreSecondary)),
	)
}

func TestMigrationManager_RunWithoutPool(t *testing.T) {
	app := newApp(t, false)
	_, err := app.Migrations().Run(t.Context(), routing.StorePrimary)
	require.ErrorIs(t, err, application.ErrNoPool)
}
