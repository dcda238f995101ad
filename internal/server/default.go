package server

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/configuration"
	"github.com/ipsco/fleet/pkg/httpapi"
	"github.com/ipsco/fleet/pkg/metrics"
	"github.com/ipsco/fleet/pkg/middleware"
	"github.com/ipsco/fleet/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Primary       *pgxpool.Pool
	Secondary     *pgxpool.Pool
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, loggerOpts),
		middleware.WithPools(options.Primary, options.Secondary),
		metrics.HTTPMetrics(),
		middleware.Cors(conf.CORSOrigins),
	}

	if conf.Prometheus.Enabled {
		middlewares = append(middlewares, middleware.OpsGuard(middleware.OpsGuardOptions{
			Enabled:      conf.OpsGuard.Enabled && conf.GoAppEnvironment == configuration.Production,
			Paths:        []string{conf.Prometheus.Path},
			CIDRs:        conf.OpsGuard.CIDRs,
			Token:        conf.OpsGuard.Token,
			RealIPHeader: conf.RealIPHeader,
		}))
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store
		var err error

		switch conf.RateLimit.Storage {
		case "redis":
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}

		middlewares = append(middlewares, middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerPeriod: conf.RateLimit.GlobalRPS,
			Store:             store,
			RealIPHeader:      conf.RealIPHeader,
		}))
	}

	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(app, httpapi.NotFound(), httpapi.MethodNotAllowed()), nil
}
