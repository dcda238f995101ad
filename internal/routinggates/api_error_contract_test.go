package routinggates

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ipsco/fleet/pkg/configuration"
	"github.com/ipsco/fleet/pkg/middleware"
)

func TestAPIErrorContracts_JSONOnly_For404And405(t *testing.T) {
	router := buildServer(t, testConfiguration(configuration.Production)).Router()

	t.Run("404_is_json", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/__nonexistent__", nil)
		req.Header.Set("X-Request-ID", "req-404")
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusNotFound, rr.Code)
		require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var payload apiError
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
		require.Equal(t, "NOT_FOUND", payload.Code)
		require.Equal(t, "not found", payload.Message)
		require.Equal(t, "/api/v1/__nonexistent__", payload.Meta["path"])
		require.Equal(t, "req-404", payload.Meta["request_id"])
	})

	t.Run("405_is_json", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "http://example.com/api/v1/missions", nil)
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
		require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var payload apiError
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
		require.Equal(t, "METHOD_NOT_ALLOWED", payload.Code)
		require.Equal(t, "method not allowed", payload.Message)
		require.Equal(t, http.MethodPut, payload.Meta["method"])
		require.Equal(t, "/api/v1/missions", payload.Meta["path"])
	})
}

func TestAPIErrorContracts_PanicRecovery_IsJSON(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	h := middleware.WithLogger(logger, middleware.DefaultLoggerOptions())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/panic", nil)
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var payload apiError
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
	require.Equal(t, "INTERNAL_SERVER_ERROR", payload.Code)
	require.Equal(t, "internal server error", payload.Message)
	require.NotEmpty(t, payload.Meta["request_id"])
}

type apiError struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta"`
}
