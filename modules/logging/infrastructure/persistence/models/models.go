package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type ActionLog struct {
	ID        pgtype.UUID
	ActorID   pgtype.UUID
	Action    string
	Details   string
	Method    string
	Path      string
	UserAgent string
	IP        string
	CreatedAt time.Time
}
