package mappers

import (
	"github.com/ipsco/fleet/modules/logging/domain/entities/actionlog"
	"github.com/ipsco/fleet/modules/logging/presentation/viewmodels"
)

func ActionLogToViewModel(l *actionlog.ActionLog) *viewmodels.ActionLog {
	return &viewmodels.ActionLog{
		ID:        l.ID,
		ActorID:   l.ActorID,
		Action:    l.Action,
		Details:   l.Details,
		Method:    l.Method,
		Path:      l.Path,
		UserAgent: l.UserAgent,
		IP:        l.IP,
		CreatedAt: l.CreatedAt,
	}
}
