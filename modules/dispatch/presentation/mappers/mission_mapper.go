package mappers

import (
	"github.com/ipsco/fleet/modules/dispatch/domain/aggregates/mission"
	"github.com/ipsco/fleet/modules/dispatch/presentation/viewmodels"
)

func MissionToViewModel(m mission.Mission) *viewmodels.Mission {
	return &viewmodels.Mission{
		ID:              m.ID,
		RequesterID:     m.RequesterID,
		DriverID:        m.DriverID,
		EstablishmentID: m.EstablishmentID,
		Purpose:         m.Purpose,
		Origin:          m.Origin,
		Destination:     m.Destination,
		ScheduledAt:     m.ScheduledAt,
		Status:          string(m.Status),
		ValidatedBy:     m.ValidatedBy,
		ValidatedAt:     m.ValidatedAt,
		CreatedAt:       m.CreatedAt,
	}
}

func MissionsToViewModels(items []mission.Mission) []*viewmodels.Mission {
	out := make([]*viewmodels.Mission, 0, len(items))
	for _, m := range items {
		out = append(out, MissionToViewModel(m))
	}
	return out
}
