package commands

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipsco/fleet/modules"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/routing"
	"github.com/ipsco/fleet/pkg/serrors"
)

func newInMemoryApp(t *testing.T) application.Application {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	app := application.New(&application.ApplicationOptions{Logger: logger, InMemory: true})
	require.NoError(t, modules.Load(app, modules.BuiltInModules(nil)...))
	return app
}

func TestBootstrap(t *testing.T) {
	app := newInMemoryApp(t)

	res, err := Bootstrap(context.Background(), app, BootstrapOptions{
		Username: "admin",
		RootName: "Direction Generale",
		RootCode: "DG",
	})
	require.NoError(t, err)
	assert.True(t, res.Superuser.IsSuperuser)
	assert.True(t, res.Superuser.Elevated())
	require.NotNil(t, res.Root)
	assert.Equal(t, "DG", res.Root.Code())
	assert.Nil(t, res.Root.ParentID())
}

func TestBootstrap_WithoutRoot(t *testing.T) {
	app := newInMemoryApp(t)

	res, err := Bootstrap(context.Background(), app, BootstrapOptions{Username: "root"})
	require.NoError(t, err)
	assert.Nil(t, res.Root)
}

func TestBootstrap_InvalidUsername(t *testing.T) {
	app := newInMemoryApp(t)

	_, err := Bootstrap(context.Background(), app, BootstrapOptions{Username: " "})
	require.ErrorIs(t, err, serrors.ErrValidation)
}

func TestSelectStores(t *testing.T) {
	stores, err := selectStores("all")
	require.NoError(t, err)
	assert.Equal(t, routing.Stores(), stores)

	stores, err = selectStores("Secondary")
	require.NoError(t, err)
	assert.Equal(t, []routing.Store{routing.StoreSecondary}, stores)

	_, err = selectStores("tertiary")
	require.ErrorIs(t, err, routing.ErrUnknownStore)
}

func TestMigrateUp_WithoutPool(t *testing.T) {
	app := newInMemoryApp(t)

	var out bytes.Buffer
	err := MigrateUp(context.Background(), &out, app.Migrations(), routing.StorePrimary)
	require.ErrorIs(t, err, application.ErrNoPool)
	assert.Contains(t, out.String(), "nothing to do")
}

func TestNewUtilityCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range NewUtilityCommands() {
		names[c.Name()] = true
	}
	assert.True(t, names["migrate"])
	assert.True(t, names["bootstrap"])
	assert.True(t, names["policy"])
}

func TestVerifyPolicy_Fixtures(t *testing.T) {
	raw, err := os.ReadFile("../../config/authz/fixtures.yaml")
	require.NoError(t, err)
	svc, err := authz.NewService(authz.Config{})
	require.NoError(t, err)

	mismatches, err := VerifyPolicy(context.Background(), svc, raw)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestVerifyPolicy_ReportsMismatches(t *testing.T) {
	svc, err := authz.NewService(authz.Config{})
	require.NoError(t, err)

	raw := []byte(`
cases:
  - role: requester
    capability: mission:validate
    allowed: true
  - role: pilot
    capability: mission:validate
    allowed: false
  - role: dispatcher
    capability: validate
    allowed: true
`)
	mismatches, err := VerifyPolicy(context.Background(), svc, raw)
	require.NoError(t, err)
	require.Len(t, mismatches, 3)
	assert.False(t, mismatches[0].Got)
	assert.Contains(t, mismatches[1].Reason, "unknown role")
	assert.Contains(t, mismatches[2].Reason, "object:action")
}

func TestVerifyPolicy_EmptyFixture(t *testing.T) {
	svc, err := authz.NewService(authz.Config{})
	require.NoError(t, err)
	_, err = VerifyPolicy(context.Background(), svc, []byte("cases: []"))
	require.Error(t, err)
}
