package viewmodels

import (
	"time"

	"github.com/google/uuid"
)

type Establishment struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type,omitempty"`
	Code          string     `json:"code"`
	ParentID      *uuid.UUID `json:"parent_id"`
	Address       string     `json:"address,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Email         string     `json:"email,omitempty"`
	ResponsibleID *uuid.UUID `json:"responsible_id,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type EstablishmentList struct {
	Items []*Establishment `json:"items"`
}

// Hierarchy is a node with its path from the root and its subtree.
type Hierarchy struct {
	Ancestors   []*Establishment `json:"ancestors"`
	Node        *Establishment   `json:"node"`
	Descendants []*Establishment `json:"descendants"`
}
