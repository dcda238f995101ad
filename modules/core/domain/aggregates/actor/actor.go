package actor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/serrors"
)

// Actor is an authenticated principal. EstablishmentID is nil while the
// actor waits for a home node assignment.
type Actor struct {
	ID              uuid.UUID
	Username        string
	FirstName       string
	LastName        string
	Role            authz.Role
	EstablishmentID *uuid.UUID
	Phone           string
	Email           string
	IsStaff         bool
	IsSuperuser     bool
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Elevated actors bypass the hierarchy entirely.
func (a Actor) Elevated() bool {
	return a.IsStaff || a.IsSuperuser
}

func (a Actor) HasHome() bool {
	return a.EstablishmentID != nil && *a.EstablishmentID != uuid.Nil
}

func (a Actor) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

func NotFound(id uuid.UUID) *serrors.NotFoundError {
	return serrors.NewNotFoundError("actor", id)
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Actor, error)
	Create(ctx context.Context, a Actor) (Actor, error)
	// SetEstablishment assigns (or with nil clears) the actor's home node.
	SetEstablishment(ctx context.Context, id uuid.UUID, establishmentID *uuid.UUID) error
	CountByEstablishment(ctx context.Context, establishmentID uuid.UUID) (int, error)
	ListByEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]Actor, error)
}
