package commands

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipsco/fleet/modules"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/configuration"
	"github.com/ipsco/fleet/pkg/routing"
)

// Pools holds the connections of both stores. Secondary is nil when no
// secondary database is configured.
type Pools struct {
	Primary   *pgxpool.Pool
	Secondary *pgxpool.Pool
}

func (p *Pools) Close() {
	if p.Secondary != nil {
		p.Secondary.Close()
	}
	if p.Primary != nil {
		p.Primary.Close()
	}
}

func OpenPools(ctx context.Context, conf *configuration.Configuration) (*Pools, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	primary, err := newPool(ctx, conf.Database.Opts, conf.Database.MaxConns)
	if err != nil {
		return nil, errors.Wrap(err, "connect primary")
	}
	pools := &Pools{Primary: primary}
	if conf.SecondaryDatabase.Enabled() {
		secondary, err := newPool(ctx, conf.SecondaryDatabase.Opts, conf.SecondaryDatabase.MaxConns)
		if err != nil {
			primary.Close()
			return nil, errors.Wrap(err, "connect secondary")
		}
		pools.Secondary = secondary
	}
	return pools, nil
}

func newPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// NewApplication builds an application over pools with the built-in modules
// registered, ready for migrations or seeding.
func NewApplication(conf *configuration.Configuration, pools *Pools) (application.Application, error) {
	policy, err := conf.Routing.Policy()
	if err != nil {
		return nil, err
	}
	app := application.New(&application.ApplicationOptions{
		Primary:         pools.Primary,
		Secondary:       pools.Secondary,
		Router:          routing.NewRouter(policy),
		Logger:          conf.Logger(),
		MigrationsTable: conf.MigrationsTable,
	})
	if err := modules.Load(app, modules.BuiltInModules(modules.OptionsFromConfig(conf))...); err != nil {
		return nil, errors.Wrap(err, "load modules")
	}
	return app, nil
}

func withApplication(ctx context.Context, fn func(context.Context, application.Application) error) error {
	conf := configuration.Use()
	pools, err := OpenPools(ctx, conf)
	if err != nil {
		return err
	}
	defer pools.Close()

	app, err := NewApplication(conf, pools)
	if err != nil {
		return err
	}
	return fn(ctx, app)
}
