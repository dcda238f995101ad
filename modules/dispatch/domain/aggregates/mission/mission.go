package mission

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ipsco/fleet/pkg/serrors"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusValidated  Status = "validated"
	StatusRefused    Status = "refused"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusValidated, StatusRefused, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Mission is a vehicle request raised by a requester for one establishment.
type Mission struct {
	ID              uuid.UUID
	RequesterID     uuid.UUID
	DriverID        *uuid.UUID
	EstablishmentID uuid.UUID
	Purpose         string
	Origin          string
	Destination     string
	ScheduledAt     time.Time
	Status          Status
	ValidatedBy     *uuid.UUID
	ValidatedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate moves a pending mission to validated.
func (m Mission) Validate(by uuid.UUID, at time.Time) (Mission, error) {
	if m.Status != StatusPending {
		return Mission{}, serrors.Invalid("Status", "mission is "+string(m.Status)+", not pending")
	}
	m.Status = StatusValidated
	m.ValidatedBy = &by
	m.ValidatedAt = &at
	m.UpdatedAt = at
	return m, nil
}

// Refuse moves a pending mission to refused.
func (m Mission) Refuse(by uuid.UUID, at time.Time) (Mission, error) {
	if m.Status != StatusPending {
		return Mission{}, serrors.Invalid("Status", "mission is "+string(m.Status)+", not pending")
	}
	m.Status = StatusRefused
	m.ValidatedBy = &by
	m.ValidatedAt = &at
	m.UpdatedAt = at
	return m, nil
}

func NotFound(id uuid.UUID) *serrors.NotFoundError {
	return serrors.NewNotFoundError("mission", id)
}

type FindParams struct {
	// EstablishmentIDs restricts the result; nil means every establishment.
	EstablishmentIDs []uuid.UUID
	Status           Status
	Limit            int
	Offset           int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Mission, error)
	List(ctx context.Context, params *FindParams) ([]Mission, error)
	Create(ctx context.Context, m Mission) (Mission, error)
	// UpdateStatus persists the status and validation fields of m.
	UpdateStatus(ctx context.Context, m Mission) error
}
