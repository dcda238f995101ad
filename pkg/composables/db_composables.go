package composables

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipsco/fleet/pkg/constants"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/routing"
)

var (
	ErrNoTx   = errors.New("no transaction found in context")
	ErrNoPool = errors.New("no database pool found in context")
)

func poolKey(store routing.Store) constants.ContextKey {
	return constants.PoolKey + constants.ContextKey(":"+string(store))
}

func txKey(store routing.Store) constants.ContextKey {
	return constants.TxKey + constants.ContextKey(":"+string(store))
}

func WithPool(ctx context.Context, store routing.Store, pool *pgxpool.Pool) context.Context {
	return context.WithValue(ctx, poolKey(store), pool)
}

// WithPools attaches one pool per store. A nil secondary pool makes the
// secondary store share the primary connection.
func WithPools(ctx context.Context, primary, secondary *pgxpool.Pool) context.Context {
	if secondary == nil {
		secondary = primary
	}
	ctx = WithPool(ctx, routing.StorePrimary, primary)
	return WithPool(ctx, routing.StoreSecondary, secondary)
}

func UsePool(ctx context.Context, store routing.Store) (*pgxpool.Pool, error) {
	pool, ok := ctx.Value(poolKey(store)).(*pgxpool.Pool)
	if !ok || pool == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPool, store)
	}
	return pool, nil
}

func WithTx(ctx context.Context, store routing.Store, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey(store), tx)
}

// UseTx returns the open transaction for store, falling back to its pool.
func UseTx(ctx context.Context, store routing.Store) (repo.Tx, error) {
	if tx, ok := ctx.Value(txKey(store)).(pgx.Tx); ok && tx != nil {
		return tx, nil
	}
	return UsePool(ctx, store)
}

func HasTx(ctx context.Context, store routing.Store) bool {
	tx, ok := ctx.Value(txKey(store)).(pgx.Tx)
	return ok && tx != nil
}

// InTx runs fn inside a transaction on store. An already open transaction
// for the same store is reused and left for its owner to commit.
func InTx(ctx context.Context, store routing.Store, fn func(context.Context) error) error {
	if HasTx(ctx, store) {
		return fn(ctx)
	}

	pool, err := UsePool(ctx, store)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(WithTx(ctx, store, tx)); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

func InTxResult[T any](ctx context.Context, store routing.Store, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := InTx(ctx, store, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}

// StoreTransactor runs units of work in a transaction on one store.
type StoreTransactor struct {
	Store routing.Store
}

func NewStoreTransactor(store routing.Store) StoreTransactor {
	return StoreTransactor{Store: store}
}

func (t StoreTransactor) InTx(ctx context.Context, fn func(context.Context) error) error {
	return InTx(ctx, t.Store, fn)
}
