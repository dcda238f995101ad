package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/ipsco/fleet/internal/server"
	"github.com/ipsco/fleet/modules"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/commands"
	"github.com/ipsco/fleet/pkg/configuration"
	"github.com/ipsco/fleet/pkg/routing"
	"github.com/ipsco/fleet/pkg/tracing"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Options{
		Enabled:     conf.Tracing.Enabled,
		Endpoint:    conf.Tracing.Endpoint,
		Insecure:    conf.Tracing.Insecure,
		ServiceName: conf.Tracing.ServiceName,
	})
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	if conf.Tracing.Enabled {
		logger.Info("OpenTelemetry tracing enabled, exporting to " + conf.Tracing.Endpoint)
	}

	pools, err := commands.OpenPools(ctx, conf)
	if err != nil {
		panic(err)
	}
	defer pools.Close()

	policy, err := conf.Routing.Policy()
	if err != nil {
		panic(err)
	}
	app := application.New(&application.ApplicationOptions{
		Primary:         pools.Primary,
		Secondary:       pools.Secondary,
		Router:          routing.NewRouter(policy),
		Logger:          logger,
		MigrationsTable: conf.MigrationsTable,
	})
	if err := modules.Load(app, modules.BuiltInModules(modules.OptionsFromConfig(conf))...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Primary:       pools.Primary,
		Secondary:     pools.Secondary,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := serverInstance.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("server shutdown")
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.WithError(err).Warn("tracing shutdown")
		}
	}()

	log.Printf("Listening on: %s\n", conf.SocketAddress)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
