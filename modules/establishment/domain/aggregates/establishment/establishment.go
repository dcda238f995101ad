package establishment

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

type Type string

const (
	TypeDepartment Type = "departement"
	TypeDirection  Type = "direction"
	TypeService    Type = "service"
)

func (t Type) Valid() bool {
	switch t {
	case TypeDepartment, TypeDirection, TypeService:
		return true
	default:
		return false
	}
}

const MaxCodeLength = 10

// Contact groups the optional reachability fields of a node.
type Contact struct {
	Address string
	Phone   string
	Email   string
}

// Establishment is a node of the organizational forest. Children are never
// stored on the node; they are derived by querying on ParentID.
type Establishment struct {
	id            uuid.UUID
	name          string
	kind          Type
	code          string
	contact       Contact
	responsibleID *uuid.UUID
	active        bool
	parentID      *uuid.UUID
	createdAt     time.Time
	updatedAt     time.Time
}

type Option func(*Establishment)

func WithID(id uuid.UUID) Option {
	return func(e *Establishment) { e.id = id }
}

func WithCode(code string) Option {
	return func(e *Establishment) { e.code = normalizeCode(code) }
}

func WithParent(parentID *uuid.UUID) Option {
	return func(e *Establishment) { e.parentID = cloneID(parentID) }
}

func WithContact(c Contact) Option {
	return func(e *Establishment) { e.contact = normalizeContact(c) }
}

func WithResponsible(actorID *uuid.UUID) Option {
	return func(e *Establishment) { e.responsibleID = cloneID(actorID) }
}

func WithActive(active bool) Option {
	return func(e *Establishment) { e.active = active }
}

func WithTimestamps(createdAt, updatedAt time.Time) Option {
	return func(e *Establishment) {
		e.createdAt = createdAt
		e.updatedAt = updatedAt
	}
}

func New(name string, kind Type, opts ...Option) Establishment {
	if kind == "" {
		kind = TypeDepartment
	}
	e := Establishment{
		id:     uuid.New(),
		name:   strings.TrimSpace(name),
		kind:   kind,
		active: true,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (e Establishment) ID() uuid.UUID             { return e.id }
func (e Establishment) Name() string              { return e.name }
func (e Establishment) Type() Type                { return e.kind }
func (e Establishment) Code() string              { return e.code }
func (e Establishment) Contact() Contact          { return e.contact }
func (e Establishment) ResponsibleID() *uuid.UUID { return cloneID(e.responsibleID) }
func (e Establishment) Active() bool              { return e.active }
func (e Establishment) ParentID() *uuid.UUID      { return cloneID(e.parentID) }
func (e Establishment) CreatedAt() time.Time      { return e.createdAt }
func (e Establishment) UpdatedAt() time.Time      { return e.updatedAt }
func (e Establishment) IsRoot() bool              { return e.parentID == nil }
func (e Establishment) IsZero() bool              { return e.id == uuid.Nil }

// HasParent reports whether the node's parent is id.
func (e Establishment) HasParent(id uuid.UUID) bool {
	return e.parentID != nil && *e.parentID == id
}

func (e Establishment) SetParent(parentID *uuid.UUID, at time.Time) Establishment {
	e.parentID = cloneID(parentID)
	e.updatedAt = at
	return e
}

func (e Establishment) SetCode(code string) Establishment {
	e.code = normalizeCode(code)
	return e
}

// Apply copies the set fields of dto onto the node.
func (e Establishment) Apply(dto *UpdateDTO, at time.Time) Establishment {
	if dto.Name != nil {
		e.name = strings.TrimSpace(*dto.Name)
	}
	if dto.Type != nil {
		e.kind = Type(*dto.Type)
	}
	if dto.Code != nil {
		e.code = normalizeCode(*dto.Code)
	}
	if dto.Address != nil {
		e.contact.Address = strings.TrimSpace(*dto.Address)
	}
	if dto.Phone != nil {
		e.contact.Phone = strings.TrimSpace(*dto.Phone)
	}
	if dto.Email != nil {
		e.contact.Email = strings.TrimSpace(*dto.Email)
	}
	if dto.ClearResponsible {
		e.responsibleID = nil
	} else if dto.ResponsibleID != nil {
		e.responsibleID = cloneID(dto.ResponsibleID)
	}
	if dto.Active != nil {
		e.active = *dto.Active
	}
	e.updatedAt = at
	return e
}

// CodePrefix derives the generated-code base from a node name: the first
// three letters or digits, upper-cased.
func CodePrefix(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.ToUpper(name) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(r)
		n++
		if n == 3 {
			break
		}
	}
	return b.String()
}

func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}

func normalizeContact(c Contact) Contact {
	return Contact{
		Address: strings.TrimSpace(c.Address),
		Phone:   strings.TrimSpace(c.Phone),
		Email:   strings.TrimSpace(c.Email),
	}
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
