package establishment

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	IDs        []uuid.UUID
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Repository is the Hierarchy Store. Implementations must be safe for
// concurrent use; mutating sequences are serialized by the caller through
// LockTree inside a transaction.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Establishment, error)
	GetByCode(ctx context.Context, code string) (Establishment, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, params *FindParams) ([]Establishment, error)
	// ListChildren returns the direct children of every id in parentIDs.
	ListChildren(ctx context.Context, parentIDs []uuid.UUID) ([]Establishment, error)
	CountChildren(ctx context.Context, id uuid.UUID) (int, error)
	// CodesWithPrefix lists the existing codes starting with prefix.
	CodesWithPrefix(ctx context.Context, prefix string) ([]string, error)
	Create(ctx context.Context, e Establishment) (Establishment, error)
	Update(ctx context.Context, e Establishment) (Establishment, error)
	UpdateParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	// LockTree serializes structural changes until the surrounding
	// transaction ends.
	LockTree(ctx context.Context) error
}
