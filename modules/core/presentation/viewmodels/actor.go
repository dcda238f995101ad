package viewmodels

import (
	"time"

	"github.com/google/uuid"
)

type Actor struct {
	ID              uuid.UUID  `json:"id"`
	Username        string     `json:"username"`
	FullName        string     `json:"full_name,omitempty"`
	Role            string     `json:"role"`
	EstablishmentID *uuid.UUID `json:"establishment_id"`
	Phone           string     `json:"phone,omitempty"`
	Email           string     `json:"email,omitempty"`
	IsStaff         bool       `json:"is_staff"`
	IsSuperuser     bool       `json:"is_superuser"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
}
