package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ipsco/fleet/modules/dispatch/domain/aggregates/mission"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/routing"
)

const (
	missionFindQuery = `
        SELECT
            m.id,
            m.requester_id,
            m.driver_id,
            m.establishment_id,
            m.purpose,
            m.origin,
            m.destination,
            m.scheduled_at,
            m.status,
            m.validated_by,
            m.validated_at,
            m.created_at,
            m.updated_at
        FROM missions m`

	missionInsertQuery = `
        INSERT INTO missions (id, requester_id, driver_id, establishment_id, purpose, origin, destination, scheduled_at, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at, updated_at`

	missionUpdateStatusQuery = `
        UPDATE missions
        SET status = $2, validated_by = $3, validated_at = $4, updated_at = now()
        WHERE id = $1`
)

type missionRow struct {
	ID              pgtype.UUID
	RequesterID     pgtype.UUID
	DriverID        pgtype.UUID
	EstablishmentID pgtype.UUID
	Purpose         string
	Origin          string
	Destination     string
	ScheduledAt     time.Time
	Status          string
	ValidatedBy     pgtype.UUID
	ValidatedAt     pgtype.Timestamptz
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r missionRow) toDomain() mission.Mission {
	m := mission.Mission{
		ID:              r.ID.Bytes,
		RequesterID:     r.RequesterID.Bytes,
		EstablishmentID: r.EstablishmentID.Bytes,
		Purpose:         r.Purpose,
		Origin:          r.Origin,
		Destination:     r.Destination,
		ScheduledAt:     r.ScheduledAt,
		Status:          mission.Status(r.Status),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.DriverID.Valid {
		id := uuid.UUID(r.DriverID.Bytes)
		m.DriverID = &id
	}
	if r.ValidatedBy.Valid {
		id := uuid.UUID(r.ValidatedBy.Bytes)
		m.ValidatedBy = &id
	}
	if r.ValidatedAt.Valid {
		at := r.ValidatedAt.Time
		m.ValidatedAt = &at
	}
	return m
}

func pgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

type MissionRepository struct {
	router *routing.Router
}

func NewMissionRepository(router *routing.Router) mission.Repository {
	return &MissionRepository{router: router}
}

func (r *MissionRepository) readTx(ctx context.Context) (repo.Tx, error) {
	return composables.UseTx(ctx, r.router.ReadStore(routing.EntityMission))
}

func (r *MissionRepository) writeTx(ctx context.Context) (repo.Tx, error) {
	return composables.UseTx(ctx, r.router.WriteStore(routing.EntityMission))
}

func (r *MissionRepository) query(ctx context.Context, query string, args ...any) ([]mission.Mission, error) {
	tx, err := r.readTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query missions")
	}
	defer rows.Close()

	var out []mission.Mission
	for rows.Next() {
		var row missionRow
		if err := rows.Scan(
			&row.ID,
			&row.RequesterID,
			&row.DriverID,
			&row.EstablishmentID,
			&row.Purpose,
			&row.Origin,
			&row.Destination,
			&row.ScheduledAt,
			&row.Status,
			&row.ValidatedBy,
			&row.ValidatedAt,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan mission")
		}
		out = append(out, row.toDomain())
	}
	return out, errors.Wrap(rows.Err(), "iterate missions")
}

func (r *MissionRepository) GetByID(ctx context.Context, id uuid.UUID) (mission.Mission, error) {
	list, err := r.query(ctx, missionFindQuery+` WHERE m.id = $1`, id)
	if err != nil {
		return mission.Mission{}, err
	}
	if len(list) == 0 {
		return mission.Mission{}, mission.NotFound(id)
	}
	return list[0], nil
}

func (r *MissionRepository) List(ctx context.Context, params *mission.FindParams) ([]mission.Mission, error) {
	if params == nil {
		params = &mission.FindParams{}
	}
	var (
		where []string
		args  []any
	)
	if params.EstablishmentIDs != nil {
		ids := make([]pgtype.UUID, 0, len(params.EstablishmentIDs))
		for _, id := range params.EstablishmentIDs {
			ids = append(ids, pgUUID(&id))
		}
		args = append(args, ids)
		where = append(where, fmt.Sprintf("m.establishment_id = ANY($%d)", len(args)))
	}
	if params.Status != "" {
		args = append(args, string(params.Status))
		where = append(where, fmt.Sprintf("m.status = $%d", len(args)))
	}
	q := missionFindQuery
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY m.scheduled_at DESC, m.id " + repo.FormatLimitOffset(params.Limit, params.Offset)
	return r.query(ctx, q, args...)
}

func (r *MissionRepository) Create(ctx context.Context, m mission.Mission) (mission.Mission, error) {
	tx, err := r.writeTx(ctx)
	if err != nil {
		return mission.Mission{}, err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = mission.StatusPending
	}
	if err := tx.QueryRow(ctx, missionInsertQuery,
		m.ID,
		m.RequesterID,
		pgUUID(m.DriverID),
		m.EstablishmentID,
		m.Purpose,
		m.Origin,
		m.Destination,
		m.ScheduledAt,
		string(m.Status),
	).Scan(&m.CreatedAt, &m.UpdatedAt); err != nil {
		return mission.Mission{}, errors.Wrap(err, "insert mission")
	}
	return m, nil
}

func (r *MissionRepository) UpdateStatus(ctx context.Context, m mission.Mission) error {
	tx, err := r.writeTx(ctx)
	if err != nil {
		return err
	}
	validatedAt := pgtype.Timestamptz{}
	if m.ValidatedAt != nil {
		validatedAt = pgtype.Timestamptz{Time: *m.ValidatedAt, Valid: true}
	}
	tag, err := tx.Exec(ctx, missionUpdateStatusQuery, m.ID, string(m.Status), pgUUID(m.ValidatedBy), validatedAt)
	if err != nil {
		return errors.Wrap(err, "update mission status")
	}
	if tag.RowsAffected() == 0 {
		return mission.NotFound(m.ID)
	}
	return nil
}
