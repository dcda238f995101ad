package routing

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Store identifies one physical datastore.
type Store string

const (
	StorePrimary   Store = "primary"
	StoreSecondary Store = "secondary"
)

// Operation is the kind of access a caller asks the router about.
type Operation string

const (
	OpRead    Operation = "read"
	OpWrite   Operation = "write"
	OpMigrate Operation = "migrate"
)

// Entity is a logical entity-type name.
type Entity string

const (
	EntityEstablishment Entity = "establishment"
	EntityActor         Entity = "actor"
	EntityMission       Entity = "mission"
	EntityVehicle       Entity = "vehicle"
	EntityReport        Entity = "report"
	EntityNotification  Entity = "notification"
	EntityActionLog     Entity = "action_log"
	EntityPermission    Entity = "permission"
	EntityContentType   Entity = "content_type"
	EntitySession       Entity = "session"
	EntityAdminLog      Entity = "admin_log"
)

var (
	ErrUnknownStore     = errors.New("routing: unknown store")
	ErrInvalidOperation = errors.New("routing: invalid operation")
	ErrEmptyEntity      = errors.New("routing: empty entity name")
)

var (
	defaultSecondary = []Entity{
		EntityReport,
		EntityNotification,
		EntityActionLog,
		EntityPermission,
		EntityContentType,
	}
	defaultPriority = []Entity{
		EntityContentType,
		EntityPermission,
		EntityAdminLog,
		EntitySession,
	}
)

// Stores lists every store known to the router, primary first.
func Stores() []Store {
	return []Store{StorePrimary, StoreSecondary}
}

func ParseStore(s string) (Store, error) {
	switch Store(strings.ToLower(strings.TrimSpace(s))) {
	case StorePrimary:
		return StorePrimary, nil
	case StoreSecondary:
		return StoreSecondary, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStore, s)
	}
}

// NormalizeEntity lowercases and trims an entity name.
func NormalizeEntity(e Entity) Entity {
	return Entity(strings.ToLower(strings.TrimSpace(string(e))))
}

// ParseEntityList splits a comma/space separated list into entity names.
func ParseEntityList(raw string) []Entity {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]Entity, 0, len(parts))
	for _, part := range parts {
		if e := NormalizeEntity(Entity(part)); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Policy is the immutable entity → store placement table.
// Construct it once at startup and hand it to NewRouter.
type Policy struct {
	secondary map[Entity]struct{}
	priority  map[Entity]struct{}
}

func NewPolicy(secondary, priority []Entity) (*Policy, error) {
	p := &Policy{
		secondary: make(map[Entity]struct{}, len(secondary)),
		priority:  make(map[Entity]struct{}, len(priority)),
	}
	for i, e := range secondary {
		e = NormalizeEntity(e)
		if e == "" {
			return nil, fmt.Errorf("%w: secondary[%d]", ErrEmptyEntity, i)
		}
		p.secondary[e] = struct{}{}
	}
	for i, e := range priority {
		e = NormalizeEntity(e)
		if e == "" {
			return nil, fmt.Errorf("%w: priority[%d]", ErrEmptyEntity, i)
		}
		p.priority[e] = struct{}{}
	}
	return p, nil
}

// DefaultPolicy keeps actors, establishments and missions together on the
// primary store. Audit, report, notification and permission metadata live in
// the secondary store. Listing actor and establishment in the secondary set
// reproduces the legacy placement of the core tables.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(defaultSecondary, defaultPriority)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Policy) IsSecondary(e Entity) bool {
	_, ok := p.secondary[NormalizeEntity(e)]
	return ok
}

func (p *Policy) IsPriority(e Entity) bool {
	_, ok := p.priority[NormalizeEntity(e)]
	return ok
}

func (p *Policy) Secondary() []Entity {
	return sortedKeys(p.secondary)
}

func (p *Policy) Priority() []Entity {
	return sortedKeys(p.priority)
}

func sortedKeys(m map[Entity]struct{}) []Entity {
	out := make([]Entity, 0, len(m))
	for e := range m {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}
