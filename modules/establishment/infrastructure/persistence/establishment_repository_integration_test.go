//go:build integration

package persistence_test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corepersistence "github.com/ipsco/fleet/modules/core/infrastructure/persistence"
	"github.com/ipsco/fleet/modules/establishment/domain/aggregates/establishment"
	"github.com/ipsco/fleet/modules/establishment/infrastructure/persistence"
	"github.com/ipsco/fleet/modules/establishment/services"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/routing"
	"github.com/ipsco/fleet/pkg/serrors"
)

// openSchema connects to FLEET_TEST_DSN with a throwaway search_path and
// applies the establishment schema there.
func openSchema(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("FLEET_TEST_DSN")
	if dsn == "" {
		t.Skip("FLEET_TEST_DSN is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	admin, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(admin.Close)

	schema := "estab_it_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	_, err = admin.Exec(ctx, `CREATE SCHEMA `+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), `DROP SCHEMA IF EXISTS `+schema+` CASCADE`)
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	raw, err := os.ReadFile("schema/establishment/00001_establishments.sql")
	require.NoError(t, err)
	up, _, _ := strings.Cut(string(raw), "-- +goose Down")
	_, err = pool.Exec(ctx, strings.TrimPrefix(up, "-- +goose Up"))
	require.NoError(t, err)

	return composables.WithPools(ctx, pool, nil), pool
}

func TestEstablishmentRepository_Integration_ConstraintMapping(t *testing.T) {
	ctx, _ := openSchema(t)
	repo := persistence.NewEstablishmentRepository(routing.NewRouter(nil))

	root, err := repo.Create(ctx, establishment.New("HQ", establishment.TypeDirection).SetCode("HQ1"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, establishment.New("Other HQ", establishment.TypeDirection).SetCode("HQ1"))
	require.ErrorIs(t, err, establishment.ErrDuplicateCode)

	missing := uuid.New()
	_, err = repo.Create(ctx, establishment.New("Orphan", "", establishment.WithParent(&missing)).SetCode("ORP1"))
	require.ErrorIs(t, err, serrors.ErrNotFound)

	rootID := root.ID()
	child, err := repo.Create(ctx, establishment.New("Garage", "", establishment.WithParent(&rootID)).SetCode("GAR1"))
	require.NoError(t, err)

	err = repo.Delete(ctx, root.ID())
	require.ErrorIs(t, err, establishment.ErrHasDependents)

	require.NoError(t, repo.Delete(ctx, child.ID()))
	require.NoError(t, repo.Delete(ctx, root.ID()))
	require.ErrorIs(t, repo.Delete(ctx, root.ID()), serrors.ErrNotFound)
}

func TestHierarchyService_Integration_ConcurrentSwapUnderAdvisoryLock(t *testing.T) {
	ctx, _ := openSchema(t)
	router := routing.NewRouter(nil)
	hierarchy := services.NewHierarchyService(
		persistence.NewEstablishmentRepository(router),
		corepersistence.NewInmemActorRepository(),
		composables.NewStoreTransactor(router.WriteStore(routing.EntityEstablishment)),
	)

	for i := 0; i < 10; i++ {
		a, err := hierarchy.Create(ctx, &establishment.CreateDTO{Name: "Alpha"})
		require.NoError(t, err)
		b, err := hierarchy.Create(ctx, &establishment.CreateDTO{Name: "Beta"})
		require.NoError(t, err)
		aID, bID := a.ID(), b.ID()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = hierarchy.Reparent(ctx, aID, &bID)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = hierarchy.Reparent(ctx, bID, &aID)
		}()
		wg.Wait()

		cycles := 0
		for _, err := range errs {
			if err != nil {
				require.ErrorIs(t, err, establishment.ErrCycle)
				cycles++
			}
		}
		assert.Equal(t, 1, cycles)

		up, err := hierarchy.Ancestors(ctx, aID)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(up), 1)
	}
}
