package establishment

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ipsco/fleet/pkg/constants"
	"github.com/ipsco/fleet/pkg/serrors"
)

type CreateDTO struct {
	Name          string     `json:"name" validate:"required,max=100"`
	Type          string     `json:"type" validate:"omitempty,oneof=departement direction service"`
	Code          string     `json:"code" validate:"omitempty,max=10"`
	ParentID      *uuid.UUID `json:"parent_id"`
	Address       string     `json:"address"`
	Phone         string     `json:"phone" validate:"omitempty,max=20"`
	Email         string     `json:"email" validate:"omitempty,email"`
	ResponsibleID *uuid.UUID `json:"responsible_id"`
	Inactive      bool       `json:"inactive"`
}

func (d *CreateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Type = strings.ToLower(strings.TrimSpace(d.Type))
	d.Code = strings.TrimSpace(d.Code)
	d.Address = strings.TrimSpace(d.Address)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Email = strings.TrimSpace(d.Email)
}

// Ok normalizes the dto and returns the field errors, if any.
func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Normalize()
	return validate(d)
}

func (d *CreateDTO) ToEntity() Establishment {
	return New(d.Name, Type(d.Type),
		WithCode(d.Code),
		WithParent(d.ParentID),
		WithContact(Contact{Address: d.Address, Phone: d.Phone, Email: d.Email}),
		WithResponsible(d.ResponsibleID),
		WithActive(!d.Inactive),
	)
}

// UpdateDTO changes only the fields that are set. The parent is changed
// through Reparent, never here.
type UpdateDTO struct {
	Name             *string    `json:"name" validate:"omitempty,min=1,max=100"`
	Type             *string    `json:"type" validate:"omitempty,oneof=departement direction service"`
	Code             *string    `json:"code" validate:"omitempty,min=1,max=10"`
	Address          *string    `json:"address"`
	Phone            *string    `json:"phone" validate:"omitempty,max=20"`
	Email            *string    `json:"email" validate:"omitempty,email"`
	ResponsibleID    *uuid.UUID `json:"responsible_id"`
	ClearResponsible bool       `json:"clear_responsible"`
	Active           *bool      `json:"active"`
}

func (d *UpdateDTO) Normalize() {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(d.Name)
	trim(d.Code)
	trim(d.Address)
	trim(d.Phone)
	trim(d.Email)
	if d.Type != nil {
		*d.Type = strings.ToLower(strings.TrimSpace(*d.Type))
	}
}

func (d *UpdateDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Normalize()
	return validate(d)
}

func validate(v any) (serrors.ValidationErrors, bool) {
	err := constants.Validate.Struct(v)
	if err == nil {
		return nil, true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return serrors.ValidationErrors{"": err.Error()}, false
	}
	return serrors.ProcessValidatorErrors(verrs), false
}
