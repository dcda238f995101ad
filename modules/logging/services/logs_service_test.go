package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/logging/domain/entities/actionlog"
	"github.com/ipsco/fleet/modules/logging/infrastructure/persistence"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/serrors"
)

type failingActionLogRepo struct {
	calledCreate bool
}

func (m *failingActionLogRepo) List(context.Context, *actionlog.FindParams) ([]*actionlog.ActionLog, error) {
	return nil, nil
}

func (m *failingActionLogRepo) Count(context.Context, *actionlog.FindParams) (int64, error) {
	return 0, nil
}

func (m *failingActionLogRepo) Create(context.Context, *actionlog.ActionLog) error {
	m.calledCreate = true
	return errors.New("secondary store unavailable")
}

func TestLogsService_RecordAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewLogsService(persistence.NewInmemActionLogRepository(), repo.NewMemTransactor(), nil)

	actorID := uuid.New()
	svc.Record(ctx, &actorID, "establishment.create", "HQ01")
	svc.Record(ctx, nil, "mission.validate", "m-1")

	staff := actor.Actor{ID: uuid.New(), IsStaff: true}
	logs, count, err := svc.ListActionLogs(ctx, staff, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.Len(t, logs, 2)

	logs, count, err = svc.ListActionLogs(ctx, staff, &actionlog.FindParams{ActorID: &actorID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, "establishment.create", logs[0].Action)
}

func TestLogsService_ListRequiresElevation(t *testing.T) {
	svc := NewLogsService(persistence.NewInmemActionLogRepository(), repo.NewMemTransactor(), nil)
	_, _, err := svc.ListActionLogs(context.Background(), actor.Actor{ID: uuid.New()}, nil)
	require.ErrorIs(t, err, serrors.ErrAccessDenied)
}

func TestLogsService_RecordSwallowsErrors(t *testing.T) {
	failing := &failingActionLogRepo{}
	svc := NewLogsService(failing, repo.NewMemTransactor(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NotPanics(t, func() { svc.Record(ctx, nil, "x", "y") })
	assert.True(t, failing.calledCreate)

	require.Error(t, svc.CreateActionLog(context.Background(), &actionlog.ActionLog{Action: "x"}))
	require.Error(t, svc.CreateActionLog(context.Background(), nil))
}
