package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type Actor struct {
	ID              pgtype.UUID
	Username        string
	FirstName       string
	LastName        string
	Role            string
	EstablishmentID pgtype.UUID
	Phone           string
	Email           string
	IsStaff         bool
	IsSuperuser     bool
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
