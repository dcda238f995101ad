package actor

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/constants"
	"github.com/ipsco/fleet/pkg/serrors"
)

type CreateDTO struct {
	Username        string     `json:"username" validate:"required,max=150"`
	FirstName       string     `json:"first_name" validate:"max=150"`
	LastName        string     `json:"last_name" validate:"max=150"`
	Role            string     `json:"role" validate:"required,oneof=requester dispatcher driver security administrator"`
	EstablishmentID *uuid.UUID `json:"establishment_id"`
	Phone           string     `json:"phone" validate:"omitempty,max=20"`
	Email           string     `json:"email" validate:"omitempty,email"`
	IsStaff         bool       `json:"is_staff"`
	IsSuperuser     bool       `json:"is_superuser"`
}

func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Username = strings.TrimSpace(d.Username)
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Role = strings.ToLower(strings.TrimSpace(d.Role))
	d.Phone = strings.TrimSpace(d.Phone)
	d.Email = strings.TrimSpace(d.Email)

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

func (d *CreateDTO) ToEntity() Actor {
	return Actor{
		ID:              uuid.New(),
		Username:        d.Username,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Role:            authz.Role(d.Role),
		EstablishmentID: d.EstablishmentID,
		Phone:           d.Phone,
		Email:           d.Email,
		IsStaff:         d.IsStaff,
		IsSuperuser:     d.IsSuperuser,
		IsActive:        true,
	}
}
