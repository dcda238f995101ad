package repo

import (
	"context"
	"sync"
)

// Transactor runs fn as one unit of work.
type Transactor interface {
	InTx(ctx context.Context, fn func(context.Context) error) error
}

type memTxKey struct{ t *MemTransactor }

// MemTransactor serializes units of work for in-memory repositories. Nested
// calls on the same context join the outer unit.
type MemTransactor struct {
	mu sync.Mutex
}

func NewMemTransactor() *MemTransactor {
	return &MemTransactor{}
}

func (t *MemTransactor) InTx(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(memTxKey{t}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{t}, true))
}
