package persistence

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ipsco/fleet/modules/logging/domain/entities/actionlog"
	"github.com/ipsco/fleet/pkg/repo"
)

type InmemActionLogRepository struct {
	storage *repo.SafeMap[uuid.UUID, actionlog.ActionLog]
}

func NewInmemActionLogRepository() *InmemActionLogRepository {
	return &InmemActionLogRepository{storage: repo.NewSafeMap[uuid.UUID, actionlog.ActionLog]()}
}

func (r *InmemActionLogRepository) matching(params *actionlog.FindParams) []actionlog.ActionLog {
	var out []actionlog.ActionLog
	for _, l := range r.storage.Values() {
		if params != nil {
			if params.ActorID != nil && (l.ActorID == nil || *l.ActorID != *params.ActorID) {
				continue
			}
			if params.Action != "" && !strings.HasPrefix(strings.ToLower(l.Action), strings.ToLower(params.Action)) {
				continue
			}
			if params.From != nil && l.CreatedAt.Before(*params.From) {
				continue
			}
			if params.To != nil && l.CreatedAt.After(*params.To) {
				continue
			}
		}
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b actionlog.ActionLog) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (r *InmemActionLogRepository) List(_ context.Context, params *actionlog.FindParams) ([]*actionlog.ActionLog, error) {
	logs := r.matching(params)
	if params != nil {
		if params.Offset > 0 {
			logs = logs[min(params.Offset, len(logs)):]
		}
		if params.Limit > 0 && len(logs) > params.Limit {
			logs = logs[:params.Limit]
		}
	}
	out := make([]*actionlog.ActionLog, 0, len(logs))
	for i := range logs {
		out = append(out, &logs[i])
	}
	return out, nil
}

func (r *InmemActionLogRepository) Count(_ context.Context, params *actionlog.FindParams) (int64, error) {
	return int64(len(r.matching(params))), nil
}

func (r *InmemActionLogRepository) Create(_ context.Context, log *actionlog.ActionLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	r.storage.Set(log.ID, *log)
	return nil
}
