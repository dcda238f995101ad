package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/logging/domain/entities/actionlog"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/serrors"
)

type LogsService struct {
	actionRepo actionlog.Repository
	tx         repo.Transactor
	logger     *logrus.Entry
}

func NewLogsService(actionRepo actionlog.Repository, tx repo.Transactor, logger *logrus.Logger) *LogsService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogsService{
		actionRepo: actionRepo,
		tx:         tx,
		logger:     logger.WithField("component", "action-log"),
	}
}

// ListActionLogs is reserved to elevated actors.
func (s *LogsService) ListActionLogs(
	ctx context.Context,
	by actor.Actor,
	params *actionlog.FindParams,
) ([]*actionlog.ActionLog, int64, error) {
	if !by.Elevated() {
		return nil, 0, serrors.NewAccessDeniedError(by.ID, uuid.Nil, "action logs require elevated privileges")
	}
	if params == nil {
		params = &actionlog.FindParams{}
	}

	logs, err := s.actionRepo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.actionRepo.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return logs, count, nil
}

func (s *LogsService) CreateActionLog(ctx context.Context, log *actionlog.ActionLog) error {
	if log == nil {
		return errors.New("missing action log")
	}
	return s.tx.InTx(ctx, func(txCtx context.Context) error {
		return s.actionRepo.Create(txCtx, log)
	})
}

// Record writes an entry and only logs failures. Cancellation of ctx does not
// abort the write.
func (s *LogsService) Record(ctx context.Context, actorID *uuid.UUID, action, details string) {
	entry := &actionlog.ActionLog{ActorID: actorID, Action: action, Details: details}
	if err := s.CreateActionLog(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("failed to persist action log")
	}
}
