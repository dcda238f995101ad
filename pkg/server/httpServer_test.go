package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/httpapi"
	"github.com/ipsco/fleet/pkg/server"
)

type pingController struct{}

func (pingController) Key() string { return "ping" }

func (pingController) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/ping", func(w http.ResponseWriter, _ *http.Request) {
		_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"pong": "ok"})
	}).Methods(http.MethodGet)
}

func tagged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tagged", "1")
		next.ServeHTTP(w, r)
	})
}

func TestHTTPServer_RouterWrapsFallbacks(t *testing.T) {
	app := application.New(&application.ApplicationOptions{InMemory: true})
	app.RegisterControllers(pingController{})
	app.RegisterMiddleware(tagged)

	srv := server.NewHTTPServer(app, httpapi.NotFound(), httpapi.MethodNotAllowed())
	h := srv.Router()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-Tagged"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-Tagged"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHTTPServer_Gzip(t *testing.T) {
	app := application.New(&application.ApplicationOptions{InMemory: true})
	app.RegisterControllers(pingController{})
	srv := server.NewHTTPServer(app, httpapi.NotFound(), httpapi.MethodNotAllowed())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Accept-Encoding", rr.Header().Get("Vary"))
}
