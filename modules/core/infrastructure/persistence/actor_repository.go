package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/core/infrastructure/persistence/models"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/routing"
)

const (
	actorFindQuery = `
        SELECT
            a.id,
            a.username,
            a.first_name,
            a.last_name,
            a.role,
            a.establishment_id,
            a.phone,
            a.email,
            a.is_staff,
            a.is_superuser,
            a.is_active,
            a.created_at,
            a.updated_at
        FROM actors a`

	actorInsertQuery = `
        INSERT INTO actors (id, username, first_name, last_name, role, establishment_id, phone, email, is_staff, is_superuser, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING created_at, updated_at`

	actorSetEstablishmentQuery = `UPDATE actors SET establishment_id = $2, updated_at = now() WHERE id = $1`

	actorCountByEstablishmentQuery = `SELECT COUNT(*) FROM actors WHERE establishment_id = $1`
)

type ActorRepository struct {
	router *routing.Router
}

func NewActorRepository(router *routing.Router) actor.Repository {
	return &ActorRepository{router: router}
}

func (r *ActorRepository) tx(ctx context.Context, op routing.Operation) (repo.Tx, error) {
	store, err := r.router.StoreFor(routing.EntityActor, op)
	if err != nil {
		return nil, err
	}
	return composables.UseTx(ctx, store)
}

func (r *ActorRepository) queryActors(ctx context.Context, query string, args ...any) ([]actor.Actor, error) {
	tx, err := r.tx(ctx, routing.OpRead)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query actors")
	}
	defer rows.Close()

	var out []actor.Actor
	for rows.Next() {
		var m models.Actor
		if err := rows.Scan(
			&m.ID,
			&m.Username,
			&m.FirstName,
			&m.LastName,
			&m.Role,
			&m.EstablishmentID,
			&m.Phone,
			&m.Email,
			&m.IsStaff,
			&m.IsSuperuser,
			&m.IsActive,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan actor")
		}
		out = append(out, toDomainActor(m))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate actors")
	}
	return out, nil
}

func (r *ActorRepository) GetByID(ctx context.Context, id uuid.UUID) (actor.Actor, error) {
	list, err := r.queryActors(ctx, actorFindQuery+` WHERE a.id = $1`, pgUUID(id))
	if err != nil {
		return actor.Actor{}, err
	}
	if len(list) == 0 {
		return actor.Actor{}, actor.NotFound(id)
	}
	return list[0], nil
}

func (r *ActorRepository) ListByEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]actor.Actor, error) {
	return r.queryActors(ctx, actorFindQuery+` WHERE a.establishment_id = $1 ORDER BY a.username`, pgUUID(establishmentID))
}

func (r *ActorRepository) Create(ctx context.Context, a actor.Actor) (actor.Actor, error) {
	tx, err := r.tx(ctx, routing.OpWrite)
	if err != nil {
		return actor.Actor{}, err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := tx.QueryRow(ctx, actorInsertQuery,
		pgUUID(a.ID),
		a.Username,
		a.FirstName,
		a.LastName,
		string(a.Role),
		pgUUIDPtr(a.EstablishmentID),
		a.Phone,
		a.Email,
		a.IsStaff,
		a.IsSuperuser,
		a.IsActive,
	).Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return actor.Actor{}, errors.Wrap(err, "insert actor")
	}
	return a, nil
}

func (r *ActorRepository) SetEstablishment(ctx context.Context, id uuid.UUID, establishmentID *uuid.UUID) error {
	tx, err := r.tx(ctx, routing.OpWrite)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, actorSetEstablishmentQuery, pgUUID(id), pgUUIDPtr(establishmentID))
	if err != nil {
		return errors.Wrap(err, "set actor establishment")
	}
	if tag.RowsAffected() == 0 {
		return actor.NotFound(id)
	}
	return nil
}

func (r *ActorRepository) CountByEstablishment(ctx context.Context, establishmentID uuid.UUID) (int, error) {
	tx, err := r.tx(ctx, routing.OpRead)
	if err != nil {
		return 0, err
	}
	var n int
	if err := tx.QueryRow(ctx, actorCountByEstablishmentQuery, pgUUID(establishmentID)).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "count actors")
	}
	return n, nil
}
