package persistence

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/pkg/repo"
)

type InmemActorRepository struct {
	storage *repo.SafeMap[uuid.UUID, actor.Actor]
}

func NewInmemActorRepository() *InmemActorRepository {
	return &InmemActorRepository{
		storage: repo.NewSafeMap[uuid.UUID, actor.Actor](),
	}
}

func (r *InmemActorRepository) GetByID(_ context.Context, id uuid.UUID) (actor.Actor, error) {
	a, ok := r.storage.Get(id)
	if !ok {
		return actor.Actor{}, actor.NotFound(id)
	}
	return a, nil
}

func (r *InmemActorRepository) Create(_ context.Context, a actor.Actor) (actor.Actor, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	r.storage.Set(a.ID, a)
	return a, nil
}

func (r *InmemActorRepository) SetEstablishment(_ context.Context, id uuid.UUID, establishmentID *uuid.UUID) error {
	var home *uuid.UUID
	if establishmentID != nil {
		v := *establishmentID
		home = &v
	}
	if !r.storage.Update(id, func(a actor.Actor) actor.Actor {
		a.EstablishmentID = home
		a.UpdatedAt = time.Now().UTC()
		return a
	}) {
		return actor.NotFound(id)
	}
	return nil
}

func (r *InmemActorRepository) CountByEstablishment(ctx context.Context, establishmentID uuid.UUID) (int, error) {
	list, err := r.ListByEstablishment(ctx, establishmentID)
	return len(list), err
}

func (r *InmemActorRepository) ListByEstablishment(_ context.Context, establishmentID uuid.UUID) ([]actor.Actor, error) {
	var out []actor.Actor
	for _, a := range r.storage.Values() {
		if a.EstablishmentID != nil && *a.EstablishmentID == establishmentID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b actor.Actor) int { return cmp.Compare(a.Username, b.Username) })
	return out, nil
}
