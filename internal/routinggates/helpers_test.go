package routinggates

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	internalserver "github.com/ipsco/fleet/internal/server"
	"github.com/ipsco/fleet/modules"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/configuration"
	pkgserver "github.com/ipsco/fleet/pkg/server"
)

const metricsPath = "/debug/prometheus"

func testConfiguration(env string) *configuration.Configuration {
	return &configuration.Configuration{
		GoAppEnvironment: env,
		RequestIDHeader:  "X-Request-ID",
		RealIPHeader:     "X-Real-IP",
		ActorIDHeader:    "X-Actor-ID",
		CORSOrigins:      "*",
		Prometheus:       configuration.PrometheusOptions{Enabled: true, Path: metricsPath},
		OpsGuard: configuration.OpsGuardOptions{
			Enabled: true,
			CIDRs:   "127.0.0.1/32",
			Token:   "ops-secret",
		},
	}
}

func buildServer(t *testing.T, conf *configuration.Configuration) *pkgserver.HTTPServer {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	app := application.New(&application.ApplicationOptions{
		Logger:   logger,
		InMemory: true,
	})
	require.NoError(t, modules.Load(app, modules.BuiltInModules(&modules.Options{
		ActorIDHeader: conf.ActorIDHeader,
		RealIPHeader:  conf.RealIPHeader,
	})...))

	srv, err := internalserver.Default(&internalserver.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
	})
	require.NoError(t, err)
	return srv
}
