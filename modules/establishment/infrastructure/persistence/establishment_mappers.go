package persistence

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ipsco/fleet/modules/establishment/domain/aggregates/establishment"
)

func toDomainEstablishment(row establishmentRow) establishment.Establishment {
	return establishment.New(row.Name, establishment.Type(row.Type),
		establishment.WithID(row.ID.Bytes),
		establishment.WithCode(row.Code),
		establishment.WithParent(uuidPtrFromPg(row.ParentID)),
		establishment.WithContact(establishment.Contact{
			Address: row.Address,
			Phone:   row.Phone,
			Email:   row.Email,
		}),
		establishment.WithResponsible(uuidPtrFromPg(row.ResponsibleID)),
		establishment.WithActive(row.Active),
		establishment.WithTimestamps(row.CreatedAt, row.UpdatedAt),
	)
}

func pgUUIDFromUUID(id [16]byte) pgtype.UUID {
	return pgtype.UUID{
		Bytes: id,
		Valid: true,
	}
}

func pgUUIDFromPtr(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgUUIDFromUUID(*id)
}

func uuidPtrFromPg(v pgtype.UUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := uuid.UUID(v.Bytes)
	return &id
}

func pgUUIDs(ids []uuid.UUID) []pgtype.UUID {
	out := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		out = append(out, pgUUIDFromUUID(id))
	}
	return out
}
