package routinggates

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/ipsco/fleet/pkg/configuration"
)

func TestExposureBaseline_APIRoutesRequireActor(t *testing.T) {
	router := buildServer(t, testConfiguration(configuration.Production)).Router()
	id := uuid.NewString()

	var offending []string
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tmpl, err := route.GetPathTemplate()
		if err != nil || !strings.HasPrefix(tmpl, "/api/v1/") {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			return nil
		}
		path := strings.Replace(tmpl, "{id:[0-9a-fA-F-]{36}}", id, 1)
		for _, method := range methods {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(method, "http://example.com"+path, nil)
			router.ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				offending = append(offending, method+" "+tmpl)
			}
		}
		return nil
	})
	require.NoError(t, err)

	if len(offending) > 0 {
		sort.Strings(offending)
		t.Fatalf("routes reachable without an actor:\n%s", strings.Join(offending, "\n"))
	}
}

func TestExposureBaseline_OpsGuard_Production_DeniesWithoutAuth(t *testing.T) {
	router := buildServer(t, testConfiguration(configuration.Production)).Router()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://example.com"+metricsPath, nil)
	req.RemoteAddr = "203.0.113.9:4000"
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "http://example.com"+metricsPath, nil)
	req.RemoteAddr = "203.0.113.9:4000"
	req.Header.Set("X-Ops-Token", "ops-secret")
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "http://example.com"+metricsPath, nil)
	req.RemoteAddr = "127.0.0.1:4000"
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestExposureBaseline_OpsGuard_Development_Open(t *testing.T) {
	router := buildServer(t, testConfiguration(configuration.Development)).Router()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://example.com"+metricsPath, nil)
	req.RemoteAddr = "203.0.113.9:4000"
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
