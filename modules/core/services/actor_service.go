package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/serrors"
)

// AssignmentAuthorizer decides whether an actor may make a node someone's
// home establishment.
type AssignmentAuthorizer interface {
	AuthorizeAssignment(ctx context.Context, a actor.Actor, nodeID uuid.UUID) error
	// WithAssignableNode authorizes the assignment and runs fn while nodeID
	// is held against deletion.
	WithAssignableNode(ctx context.Context, a actor.Actor, nodeID uuid.UUID, fn func(context.Context) error) error
}

type ActorService struct {
	repo   actor.Repository
	access AssignmentAuthorizer
	tx     repo.Transactor
	logger *logrus.Entry
}

func NewActorService(repo actor.Repository, access AssignmentAuthorizer, tx repo.Transactor, logger *logrus.Logger) *ActorService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ActorService{
		repo:   repo,
		access: access,
		tx:     tx,
		logger: logger.WithField("component", "actors"),
	}
}

// SetAssignmentAuthorizer installs the hierarchy check once the
// establishment module is registered. Without one every assignment is denied.
func (s *ActorService) SetAssignmentAuthorizer(access AssignmentAuthorizer) {
	s.access = access
}

func (s *ActorService) Repository() actor.Repository {
	return s.repo
}

func (s *ActorService) authorizeAssignment(ctx context.Context, by actor.Actor, nodeID uuid.UUID) error {
	if s.access == nil {
		return serrors.NewAccessDeniedError(by.ID, nodeID, "no assignment authorizer")
	}
	return s.access.AuthorizeAssignment(ctx, by, nodeID)
}

func (s *ActorService) withAssignableNode(ctx context.Context, by actor.Actor, nodeID uuid.UUID, fn func(context.Context) error) error {
	if s.access == nil {
		return serrors.NewAccessDeniedError(by.ID, nodeID, "no assignment authorizer")
	}
	return s.access.WithAssignableNode(ctx, by, nodeID, func(lockedCtx context.Context) error {
		return s.tx.InTx(lockedCtx, fn)
	})
}

func (s *ActorService) GetByID(ctx context.Context, id uuid.UUID) (actor.Actor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ActorService) ListByEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]actor.Actor, error) {
	return s.repo.ListByEstablishment(ctx, establishmentID)
}

// Create registers an actor. A home establishment given up front is subject
// to the same check as AssignEstablishment.
func (s *ActorService) Create(ctx context.Context, by actor.Actor, dto *actor.CreateDTO) (actor.Actor, error) {
	if dto == nil {
		return actor.Actor{}, serrors.Invalid("Username", "required")
	}
	if errs, ok := dto.Ok(); !ok {
		return actor.Actor{}, serrors.NewValidationError(errs)
	}
	entity := dto.ToEntity()
	if (entity.IsStaff || entity.IsSuperuser) && !by.IsSuperuser {
		return actor.Actor{}, serrors.NewAccessDeniedError(by.ID, entity.ID, "only superusers grant elevated flags")
	}
	if !entity.HasHome() {
		return s.repo.Create(ctx, entity)
	}
	var created actor.Actor
	err := s.withAssignableNode(ctx, by, *entity.EstablishmentID, func(txCtx context.Context) error {
		var err error
		created, err = s.repo.Create(txCtx, entity)
		return err
	})
	if err != nil {
		return actor.Actor{}, err
	}
	return created, nil
}

// AssignEstablishment sets targetID's home node on behalf of by.
func (s *ActorService) AssignEstablishment(ctx context.Context, by actor.Actor, targetID, nodeID uuid.UUID) (actor.Actor, error) {
	var updated actor.Actor
	err := s.withAssignableNode(ctx, by, nodeID, func(txCtx context.Context) error {
		if err := s.repo.SetEstablishment(txCtx, targetID, &nodeID); err != nil {
			return err
		}
		var err error
		updated, err = s.repo.GetByID(txCtx, targetID)
		return err
	})
	if err != nil {
		return actor.Actor{}, err
	}
	s.logger.WithFields(logrus.Fields{
		"by":            by.ID,
		"actor":         targetID,
		"establishment": nodeID,
	}).Info("actor assigned")
	return updated, nil
}

// ClearEstablishment puts targetID back into pending assignment. by must be
// allowed to assign the node the target currently belongs to.
func (s *ActorService) ClearEstablishment(ctx context.Context, by actor.Actor, targetID uuid.UUID) (actor.Actor, error) {
	var updated actor.Actor
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		target, err := s.repo.GetByID(txCtx, targetID)
		if err != nil {
			return err
		}
		if !target.HasHome() {
			updated = target
			return nil
		}
		if err := s.authorizeAssignment(txCtx, by, *target.EstablishmentID); err != nil {
			return err
		}
		if err := s.repo.SetEstablishment(txCtx, targetID, nil); err != nil {
			return err
		}
		target.EstablishmentID = nil
		updated = target
		return nil
	})
	if err != nil {
		return actor.Actor{}, err
	}
	return updated, nil
}
