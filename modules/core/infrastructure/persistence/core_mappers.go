package persistence

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/core/infrastructure/persistence/models"
	"github.com/ipsco/fleet/pkg/authz"
)

func toDomainActor(m models.Actor) actor.Actor {
	var home *uuid.UUID
	if m.EstablishmentID.Valid {
		id := uuid.UUID(m.EstablishmentID.Bytes)
		home = &id
	}
	return actor.Actor{
		ID:              m.ID.Bytes,
		Username:        m.Username,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		Role:            authz.Role(m.Role),
		EstablishmentID: home,
		Phone:           m.Phone,
		Email:           m.Email,
		IsStaff:         m.IsStaff,
		IsSuperuser:     m.IsSuperuser,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgUUIDPtr(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgUUID(*id)
}
