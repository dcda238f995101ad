package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/dispatch/domain/aggregates/mission"
	esservices "github.com/ipsco/fleet/modules/establishment/services"
	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/eventbus"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/serrors"
)

// NodeAccess is the part of the access resolver missions depend on.
type NodeAccess interface {
	Authorize(ctx context.Context, a actor.Actor, nodeID uuid.UUID) error
	VisibleNodes(ctx context.Context, a actor.Actor) (esservices.NodeSet, error)
}

type MissionService struct {
	repo      mission.Repository
	actors    actor.Repository
	access    NodeAccess
	caps      esservices.CapabilityChecker
	tx        repo.Transactor
	publisher eventbus.EventBus
	recorder  esservices.ActionRecorder
	logger    *logrus.Entry
	now       func() time.Time
}

type MissionServiceDeps struct {
	Repo      mission.Repository
	Actors    actor.Repository
	Access    NodeAccess
	Caps      esservices.CapabilityChecker
	Tx        repo.Transactor
	Publisher eventbus.EventBus
	Recorder  esservices.ActionRecorder
	Logger    *logrus.Logger
}

func NewMissionService(deps MissionServiceDeps) *MissionService {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MissionService{
		repo:      deps.Repo,
		actors:    deps.Actors,
		access:    deps.Access,
		caps:      deps.Caps,
		tx:        deps.Tx,
		publisher: deps.Publisher,
		recorder:  deps.Recorder,
		logger:    logger.WithField("component", "missions"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MissionService) Create(ctx context.Context, by actor.Actor, dto *mission.CreateDTO) (mission.Mission, error) {
	if dto == nil {
		return mission.Mission{}, serrors.Invalid("EstablishmentID", "required")
	}
	if errs, ok := dto.Ok(); !ok {
		return mission.Mission{}, serrors.NewValidationError(errs)
	}
	if err := s.access.Authorize(ctx, by, dto.EstablishmentID); err != nil {
		return mission.Mission{}, err
	}
	created, err := s.repo.Create(ctx, dto.ToEntity(by.ID))
	if err != nil {
		return mission.Mission{}, err
	}
	s.record(ctx, by, "mission.create", created.ID.String())
	return created, nil
}

// Get returns the mission when its establishment is visible to by.
func (s *MissionService) Get(ctx context.Context, by actor.Actor, id uuid.UUID) (mission.Mission, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mission.Mission{}, err
	}
	if err := s.access.Authorize(ctx, by, m.EstablishmentID); err != nil {
		return mission.Mission{}, err
	}
	return m, nil
}

// List returns the missions of every establishment visible to by.
func (s *MissionService) List(ctx context.Context, by actor.Actor, status mission.Status) ([]mission.Mission, error) {
	set, err := s.access.VisibleNodes(ctx, by)
	if err != nil {
		return nil, err
	}
	if set.Empty() {
		return []mission.Mission{}, nil
	}
	params := &mission.FindParams{Status: status}
	if !set.All {
		params.EstablishmentIDs = set.Slice()
	}
	return s.repo.List(ctx, params)
}

// Validate approves a pending mission. Notification is handed off through
// the event bus once the change is committed and never affects the result.
func (s *MissionService) Validate(ctx context.Context, by actor.Actor, id uuid.UUID) (mission.Mission, error) {
	return s.decide(ctx, by, id, "mission.validate", mission.Mission.Validate)
}

func (s *MissionService) Refuse(ctx context.Context, by actor.Actor, id uuid.UUID) (mission.Mission, error) {
	return s.decide(ctx, by, id, "mission.refuse", mission.Mission.Refuse)
}

func (s *MissionService) decide(
	ctx context.Context,
	by actor.Actor,
	id uuid.UUID,
	action string,
	transition func(mission.Mission, uuid.UUID, time.Time) (mission.Mission, error),
) (mission.Mission, error) {
	if !by.Elevated() {
		ok, err := s.caps.HasCapability(ctx, by.Role, authz.CapValidateMission)
		if err != nil {
			return mission.Mission{}, err
		}
		if !ok {
			return mission.Mission{}, serrors.NewAccessDeniedError(by.ID, id, "role cannot validate missions")
		}
	}

	var decided mission.Mission
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		m, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.access.Authorize(txCtx, by, m.EstablishmentID); err != nil {
			return err
		}
		decided, err = transition(m, by.ID, s.now())
		if err != nil {
			return err
		}
		return s.repo.UpdateStatus(txCtx, decided)
	})
	if err != nil {
		return mission.Mission{}, err
	}

	s.record(ctx, by, action, decided.ID.String())
	if decided.Status == mission.StatusValidated {
		s.publishValidated(ctx, by, decided)
	}
	return decided, nil
}

func (s *MissionService) publishValidated(ctx context.Context, by actor.Actor, m mission.Mission) {
	if s.publisher == nil {
		return
	}
	log := s.logger.WithField("mission", m.ID)
	requester, err := s.actors.GetByID(ctx, m.RequesterID)
	if err != nil {
		log.WithError(err).Warn("requester not found, skipping notification")
		return
	}
	ev := &mission.ValidatedEvent{Mission: m, Validator: by, Requester: requester}
	if m.DriverID != nil {
		if driver, err := s.actors.GetByID(ctx, *m.DriverID); err == nil {
			ev.Driver = &driver
		} else {
			log.WithError(err).Warn("driver not found")
		}
	}
	s.publisher.Publish(ev)
}

func (s *MissionService) record(ctx context.Context, by actor.Actor, action, details string) {
	if s.recorder == nil {
		return
	}
	id := by.ID
	s.recorder.Record(ctx, &id, action, details)
}
