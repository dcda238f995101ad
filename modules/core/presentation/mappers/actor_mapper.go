package mappers

import (
	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/core/presentation/viewmodels"
)

func ActorToViewModel(a actor.Actor) *viewmodels.Actor {
	return &viewmodels.Actor{
		ID:              a.ID,
		Username:        a.Username,
		FullName:        a.FullName(),
		Role:            string(a.Role),
		EstablishmentID: a.EstablishmentID,
		Phone:           a.Phone,
		Email:           a.Email,
		IsStaff:         a.IsStaff,
		IsSuperuser:     a.IsSuperuser,
		IsActive:        a.IsActive,
		CreatedAt:       a.CreatedAt,
	}
}
