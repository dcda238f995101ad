package viewmodels

import (
	"time"

	"github.com/google/uuid"
)

type Mission struct {
	ID              uuid.UUID  `json:"id"`
	RequesterID     uuid.UUID  `json:"requester_id"`
	DriverID        *uuid.UUID `json:"driver_id"`
	EstablishmentID uuid.UUID  `json:"establishment_id"`
	Purpose         string     `json:"purpose,omitempty"`
	Origin          string     `json:"origin"`
	Destination     string     `json:"destination"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	Status          string     `json:"status"`
	ValidatedBy     *uuid.UUID `json:"validated_by,omitempty"`
	ValidatedAt     *time.Time `json:"validated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type MissionList struct {
	Items []*Mission `json:"items"`
}
