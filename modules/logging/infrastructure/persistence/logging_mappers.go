package persistence

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ipsco/fleet/modules/logging/domain/entities/actionlog"
	"github.com/ipsco/fleet/modules/logging/infrastructure/persistence/models"
)

func toDBActionLog(log *actionlog.ActionLog) *models.ActionLog {
	row := &models.ActionLog{
		ID:        pgtype.UUID{Bytes: log.ID, Valid: true},
		Action:    log.Action,
		Details:   log.Details,
		Method:    log.Method,
		Path:      log.Path,
		UserAgent: log.UserAgent,
		IP:        log.IP,
		CreatedAt: log.CreatedAt,
	}
	if log.ActorID != nil {
		row.ActorID = pgtype.UUID{Bytes: *log.ActorID, Valid: true}
	}
	return row
}

func toDomainActionLog(dbLog *models.ActionLog) *actionlog.ActionLog {
	out := &actionlog.ActionLog{
		ID:        dbLog.ID.Bytes,
		Action:    dbLog.Action,
		Details:   dbLog.Details,
		Method:    dbLog.Method,
		Path:      dbLog.Path,
		UserAgent: dbLog.UserAgent,
		IP:        dbLog.IP,
		CreatedAt: dbLog.CreatedAt,
	}
	if dbLog.ActorID.Valid {
		id := uuid.UUID(dbLog.ActorID.Bytes)
		out.ActorID = &id
	}
	return out
}
