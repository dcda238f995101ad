package persistence

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/ipsco/fleet/modules/dispatch/domain/aggregates/mission"
	"github.com/ipsco/fleet/pkg/repo"
)

type InmemMissionRepository struct {
	storage *repo.SafeMap[uuid.UUID, mission.Mission]
}

func NewInmemMissionRepository() *InmemMissionRepository {
	return &InmemMissionRepository{storage: repo.NewSafeMap[uuid.UUID, mission.Mission]()}
}

func (r *InmemMissionRepository) GetByID(_ context.Context, id uuid.UUID) (mission.Mission, error) {
	m, ok := r.storage.Get(id)
	if !ok {
		return mission.Mission{}, mission.NotFound(id)
	}
	return m, nil
}

func (r *InmemMissionRepository) List(_ context.Context, params *mission.FindParams) ([]mission.Mission, error) {
	if params == nil {
		params = &mission.FindParams{}
	}
	out := []mission.Mission{}
	for _, m := range r.storage.Values() {
		if params.EstablishmentIDs != nil && !slices.Contains(params.EstablishmentIDs, m.EstablishmentID) {
			continue
		}
		if params.Status != "" && m.Status != params.Status {
			continue
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b mission.Mission) int {
		if c := b.ScheduledAt.Compare(a.ScheduledAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	if params.Offset > 0 {
		out = out[min(params.Offset, len(out)):]
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *InmemMissionRepository) Create(_ context.Context, m mission.Mission) (mission.Mission, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = mission.StatusPending
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	r.storage.Set(m.ID, m)
	return m, nil
}

func (r *InmemMissionRepository) UpdateStatus(_ context.Context, m mission.Mission) error {
	if !r.storage.Update(m.ID, func(cur mission.Mission) mission.Mission {
		cur.Status = m.Status
		cur.ValidatedBy = m.ValidatedBy
		cur.ValidatedAt = m.ValidatedAt
		cur.UpdatedAt = time.Now().UTC()
		return cur
	}) {
		return mission.NotFound(m.ID)
	}
	return nil
}
