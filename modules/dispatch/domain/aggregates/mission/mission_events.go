package mission

import (
	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
)

// ValidatedEvent is published after the validating transaction commits.
type ValidatedEvent struct {
	Mission   Mission
	Validator actor.Actor
	Requester actor.Actor
	Driver    *actor.Actor
}
