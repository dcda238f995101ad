package mappers

import (
	"github.com/ipsco/fleet/modules/establishment/domain/aggregates/establishment"
	"github.com/ipsco/fleet/modules/establishment/presentation/viewmodels"
)

func EstablishmentToViewModel(e establishment.Establishment) *viewmodels.Establishment {
	c := e.Contact()
	return &viewmodels.Establishment{
		ID:            e.ID(),
		Name:          e.Name(),
		Type:          string(e.Type()),
		Code:          e.Code(),
		ParentID:      e.ParentID(),
		Address:       c.Address,
		Phone:         c.Phone,
		Email:         c.Email,
		ResponsibleID: e.ResponsibleID(),
		Active:        e.Active(),
		CreatedAt:     e.CreatedAt(),
		UpdatedAt:     e.UpdatedAt(),
	}
}

func EstablishmentsToViewModels(items []establishment.Establishment) []*viewmodels.Establishment {
	out := make([]*viewmodels.Establishment, 0, len(items))
	for _, e := range items {
		out = append(out, EstablishmentToViewModel(e))
	}
	return out
}
