package actionlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActionLog is one audit trail entry. Action is a dotted verb such as
// "establishment.reparent"; Method and Path are set for HTTP-sourced entries.
type ActionLog struct {
	ID        uuid.UUID
	ActorID   *uuid.UUID
	Action    string
	Details   string
	Method    string
	Path      string
	UserAgent string
	IP        string
	CreatedAt time.Time
}

type FindParams struct {
	ActorID *uuid.UUID
	Action  string
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*ActionLog, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, log *ActionLog) error
}
