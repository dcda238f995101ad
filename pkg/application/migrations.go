package application

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/pkg/routing"
)

var ErrNoPool = errors.New("no database pool configured for store")

// SchemaSource is one entity's goose migration directory.
type SchemaSource struct {
	Entity routing.Entity
	FS     fs.FS
	Dir    string
}

func NewMigrationManager(
	pools map[routing.Store]*pgxpool.Pool,
	router *routing.Router,
	table string,
	logger *logrus.Logger,
) MigrationManager {
	if table == "" {
		table = "goose_db_version"
	}
	return &migrationManager{
		pools:  pools,
		router: router,
		table:  table,
		logger: logger,
	}
}

type migrationManager struct {
	pools   map[routing.Store]*pgxpool.Pool
	router  *routing.Router
	table   string
	logger  *logrus.Logger
	schemas []SchemaSource
}

func (m *migrationManager) RegisterSchema(entity routing.Entity, fsys fs.FS, dir string) {
	m.schemas = append(m.schemas, SchemaSource{
		Entity: routing.NormalizeEntity(entity),
		FS:     fsys,
		Dir:    dir,
	})
}

// Plan returns the schemas the routing policy allows on store, in
// registration order.
func (m *migrationManager) Plan(store routing.Store) []SchemaSource {
	out := make([]SchemaSource, 0, len(m.schemas))
	for _, s := range m.schemas {
		if m.router.AllowMigrate(store, s.Entity) {
			out = append(out, s)
		}
	}
	return out
}

// Run applies every pending migration on store.
func (m *migrationManager) Run(ctx context.Context, store routing.Store) ([]*goose.MigrationResult, error) {
	var results []*goose.MigrationResult
	err := m.each(ctx, store, m.Plan(store), func(src SchemaSource, p *goose.Provider) error {
		res, err := p.Up(ctx)
		results = append(results, res...)
		if err != nil {
			return errors.Wrapf(err, "migrate %s up", src.Entity)
		}
		m.log(store, src).WithField("applied", len(res)).Info("migrations applied")
		return nil
	})
	return results, err
}

// Rollback reverts the latest migration of every entity on store, last
// registered first.
func (m *migrationManager) Rollback(ctx context.Context, store routing.Store) ([]*goose.MigrationResult, error) {
	plan := m.Plan(store)
	reversed := make([]SchemaSource, 0, len(plan))
	for i := len(plan) - 1; i >= 0; i-- {
		reversed = append(reversed, plan[i])
	}

	var results []*goose.MigrationResult
	err := m.each(ctx, store, reversed, func(src SchemaSource, p *goose.Provider) error {
		res, err := p.Down(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "migrate %s down", src.Entity)
		}
		if res == nil {
			return nil
		}
		results = append(results, res)
		m.log(store, src).WithField("version", res.Source.Version).Info("migration rolled back")
		return nil
	})
	return results, err
}

func (m *migrationManager) Status(ctx context.Context, store routing.Store) (map[routing.Entity][]*goose.MigrationStatus, error) {
	out := make(map[routing.Entity][]*goose.MigrationStatus)
	err := m.each(ctx, store, m.Plan(store), func(src SchemaSource, p *goose.Provider) error {
		st, err := p.Status(ctx)
		if err != nil {
			return errors.Wrapf(err, "status %s", src.Entity)
		}
		out[src.Entity] = st
		return nil
	})
	return out, err
}

func (m *migrationManager) each(
	ctx context.Context,
	store routing.Store,
	plan []SchemaSource,
	fn func(SchemaSource, *goose.Provider) error,
) error {
	pool := m.pools[store]
	if pool == nil {
		return errors.Wrap(ErrNoPool, string(store))
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	for _, src := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := m.provider(db, src)
		if err != nil {
			return err
		}
		if err := fn(src, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *migrationManager) provider(db *sql.DB, src SchemaSource) (*goose.Provider, error) {
	sub, err := fs.Sub(src.FS, src.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "schema dir for %s", src.Entity)
	}
	versions, err := database.NewStore(database.DialectPostgres, m.VersionTable(src.Entity))
	if err != nil {
		return nil, errors.Wrap(err, "goose store")
	}
	p, err := goose.NewProvider("", db, sub, goose.WithStore(versions))
	if err != nil {
		return nil, errors.Wrapf(err, "goose provider for %s", src.Entity)
	}
	return p, nil
}

// VersionTable keeps a separate goose history per entity so a store only
// tracks the schemas placed on it.
func (m *migrationManager) VersionTable(entity routing.Entity) string {
	return m.table + "_" + string(routing.NormalizeEntity(entity))
}

func (m *migrationManager) log(store routing.Store, src SchemaSource) *logrus.Entry {
	return m.logger.WithFields(logrus.Fields{
		"component": "migrations",
		"store":     store,
		"entity":    src.Entity,
	})
}
