package mission

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ipsco/fleet/pkg/constants"
	"github.com/ipsco/fleet/pkg/serrors"
)

type CreateDTO struct {
	EstablishmentID uuid.UUID  `json:"establishment_id" validate:"required"`
	DriverID        *uuid.UUID `json:"driver_id"`
	Purpose         string     `json:"purpose" validate:"max=255"`
	Origin          string     `json:"origin" validate:"required,max=255"`
	Destination     string     `json:"destination" validate:"required,max=255"`
	ScheduledAt     time.Time  `json:"scheduled_at" validate:"required"`
}

func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Purpose = strings.TrimSpace(d.Purpose)
	d.Origin = strings.TrimSpace(d.Origin)
	d.Destination = strings.TrimSpace(d.Destination)

	err := constants.Validate.Struct(d)
	if err == nil {
		return nil, true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return serrors.ValidationErrors{"": err.Error()}, false
	}
	return serrors.ProcessValidatorErrors(verrs), false
}

func (d *CreateDTO) ToEntity(requesterID uuid.UUID) Mission {
	return Mission{
		ID:              uuid.New(),
		RequesterID:     requesterID,
		DriverID:        d.DriverID,
		EstablishmentID: d.EstablishmentID,
		Purpose:         d.Purpose,
		Origin:          d.Origin,
		Destination:     d.Destination,
		ScheduledAt:     d.ScheduledAt.UTC(),
		Status:          StatusPending,
	}
}
