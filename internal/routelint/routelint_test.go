package routelint

import (
	"sort"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	internalserver "github.com/ipsco/fleet/internal/server"
	"github.com/ipsco/fleet/modules"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/configuration"
)

const metricsPath = "/debug/prometheus"

func TestServerRoutes_AllVersionedExceptMetrics(t *testing.T) {
	router := buildRouter(t)

	var offending []string
	for _, p := range collectRoutePaths(t, router) {
		if hasPathPrefixOnBoundary(p, "/api/v1") || p == metricsPath {
			continue
		}
		offending = append(offending, p)
	}
	if len(offending) > 0 {
		t.Fatalf("routes outside /api/v1:\n%s", strings.Join(offending, "\n"))
	}
}

func TestServerRoutes_ModulesMountDistinctPrefixes(t *testing.T) {
	router := buildRouter(t)

	prefixes := map[string]struct{}{}
	for _, p := range collectRoutePaths(t, router) {
		if !hasPathPrefixOnBoundary(p, "/api/v1") {
			continue
		}
		rest := strings.TrimPrefix(p, "/api/v1/")
		segment, _, _ := strings.Cut(rest, "/")
		segment, _, _ = strings.Cut(segment, "{")
		prefixes[segment] = struct{}{}
	}

	got := make([]string, 0, len(prefixes))
	for p := range prefixes {
		got = append(got, p)
	}
	sort.Strings(got)
	require.Equal(t, []string{"action-logs", "actors", "establishments", "missions"}, got)
}

func TestHasPathPrefixOnBoundary(t *testing.T) {
	require.True(t, hasPathPrefixOnBoundary("/api/v1", "/api/v1"))
	require.True(t, hasPathPrefixOnBoundary("/api/v1/missions", "/api/v1"))
	require.False(t, hasPathPrefixOnBoundary("/api/v10/missions", "/api/v1"))
	require.False(t, hasPathPrefixOnBoundary("/apix", "/api"))
}

func buildRouter(t *testing.T) *mux.Router {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	app := application.New(&application.ApplicationOptions{
		Logger:   logger,
		InMemory: true,
	})
	require.NoError(t, modules.Load(app, modules.BuiltInModules(nil)...))

	srv, err := internalserver.Default(&internalserver.DefaultOptions{
		Logger: logger,
		Configuration: &configuration.Configuration{
			GoAppEnvironment: configuration.Development,
			CORSOrigins:      "*",
			Prometheus:       configuration.PrometheusOptions{Enabled: true, Path: metricsPath},
		},
		Application: app,
	})
	require.NoError(t, err)
	return srv.Router()
}

func collectRoutePaths(t *testing.T, router *mux.Router) []string {
	t.Helper()

	var paths []string
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		p := routePath(route)
		if strings.TrimSpace(p) != "" {
			paths = append(paths, p)
		}
		return nil
	})
	require.NoError(t, err)

	sort.Strings(paths)
	return paths
}

func routePath(route *mux.Route) string {
	if route == nil {
		return ""
	}
	if tmpl, err := route.GetPathTemplate(); err == nil {
		return tmpl
	}
	regexp, err := route.GetPathRegexp()
	if err != nil {
		return ""
	}
	result := strings.TrimPrefix(regexp, "^")
	return strings.TrimSuffix(result, "$")
}

func hasPathPrefixOnBoundary(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
