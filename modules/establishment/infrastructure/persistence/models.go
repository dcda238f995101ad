package persistence

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type establishmentRow struct {
	ID            pgtype.UUID
	Name          string
	Type          string
	Code          string
	ParentID      pgtype.UUID
	Address       string
	Phone         string
	Email         string
	ResponsibleID pgtype.UUID
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
