package viewmodels

import (
	"time"

	"github.com/google/uuid"
)

type ActionLog struct {
	ID        uuid.UUID  `json:"id"`
	ActorID   *uuid.UUID `json:"actor_id"`
	Action    string     `json:"action"`
	Details   string     `json:"details,omitempty"`
	Method    string     `json:"method,omitempty"`
	Path      string     `json:"path,omitempty"`
	UserAgent string     `json:"user_agent,omitempty"`
	IP        string     `json:"ip,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type ActionLogPage struct {
	Items []*ActionLog `json:"items"`
	Total int64        `json:"total"`
}
