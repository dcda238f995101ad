package persistence

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ipsco/fleet/modules/establishment/domain/aggregates/establishment"
	"github.com/ipsco/fleet/pkg/repo"
)

// InmemEstablishmentRepository keeps the forest in memory. Structural
// changes are serialized by repo.MemTransactor, so LockTree is a no-op.
type InmemEstablishmentRepository struct {
	storage *repo.SafeMap[uuid.UUID, establishment.Establishment]
	writeMu sync.Mutex
	now     func() time.Time
}

func NewInmemEstablishmentRepository() *InmemEstablishmentRepository {
	return &InmemEstablishmentRepository{
		storage: repo.NewSafeMap[uuid.UUID, establishment.Establishment](),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func compareListing(a, b establishment.Establishment) int {
	return cmp.Or(
		cmp.Compare(a.Type(), b.Type()),
		cmp.Compare(a.Name(), b.Name()),
		cmp.Compare(a.Code(), b.Code()),
	)
}

func compareSiblings(a, b establishment.Establishment) int {
	return cmp.Or(
		cmp.Compare(a.Name(), b.Name()),
		cmp.Compare(a.Code(), b.Code()),
	)
}

func (r *InmemEstablishmentRepository) GetByID(_ context.Context, id uuid.UUID) (establishment.Establishment, error) {
	e, ok := r.storage.Get(id)
	if !ok {
		return establishment.Establishment{}, establishment.NotFound(id)
	}
	return e, nil
}

func (r *InmemEstablishmentRepository) GetByCode(_ context.Context, code string) (establishment.Establishment, error) {
	code = strings.TrimSpace(code)
	for _, e := range r.storage.Values() {
		if e.Code() == code {
			return e, nil
		}
	}
	return establishment.Establishment{}, establishment.NotFound(uuid.Nil)
}

func (r *InmemEstablishmentRepository) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.storage.Get(id)
	return ok, nil
}

func (r *InmemEstablishmentRepository) List(_ context.Context, params *establishment.FindParams) ([]establishment.Establishment, error) {
	if params == nil {
		params = &establishment.FindParams{}
	}
	var wanted map[uuid.UUID]struct{}
	if params.IDs != nil {
		wanted = make(map[uuid.UUID]struct{}, len(params.IDs))
		for _, id := range params.IDs {
			wanted[id] = struct{}{}
		}
	}

	out := make([]establishment.Establishment, 0, r.storage.Len())
	for _, e := range r.storage.Values() {
		if wanted != nil {
			if _, ok := wanted[e.ID()]; !ok {
				continue
			}
		}
		if params.ActiveOnly && !e.Active() {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, compareListing)

	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *InmemEstablishmentRepository) ListChildren(_ context.Context, parentIDs []uuid.UUID) ([]establishment.Establishment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	parents := make(map[uuid.UUID]struct{}, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = struct{}{}
	}
	var out []establishment.Establishment
	for _, e := range r.storage.Values() {
		parent := e.ParentID()
		if parent == nil {
			continue
		}
		if _, ok := parents[*parent]; ok {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, compareSiblings)
	return out, nil
}

func (r *InmemEstablishmentRepository) CountChildren(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, e := range r.storage.Values() {
		if e.HasParent(id) {
			n++
		}
	}
	return n, nil
}

func (r *InmemEstablishmentRepository) CodesWithPrefix(_ context.Context, prefix string) ([]string, error) {
	var codes []string
	for _, e := range r.storage.Values() {
		if strings.HasPrefix(e.Code(), prefix) {
			codes = append(codes, e.Code())
		}
	}
	return codes, nil
}

func (r *InmemEstablishmentRepository) codeTakenLocked(code string, except uuid.UUID) bool {
	for _, e := range r.storage.Values() {
		if e.Code() == code && e.ID() != except {
			return true
		}
	}
	return false
}

func (r *InmemEstablishmentRepository) Create(_ context.Context, e establishment.Establishment) (establishment.Establishment, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if r.codeTakenLocked(e.Code(), uuid.Nil) {
		return establishment.Establishment{}, establishment.NewDuplicateCodeError(e.Code())
	}
	if parent := e.ParentID(); parent != nil {
		if _, ok := r.storage.Get(*parent); !ok {
			return establishment.Establishment{}, establishment.NotFound(*parent)
		}
	}
	now := r.now()
	stored := establishment.New(e.Name(), e.Type(),
		establishment.WithID(e.ID()),
		establishment.WithCode(e.Code()),
		establishment.WithParent(e.ParentID()),
		establishment.WithContact(e.Contact()),
		establishment.WithResponsible(e.ResponsibleID()),
		establishment.WithActive(e.Active()),
		establishment.WithTimestamps(now, now),
	)
	r.storage.Set(stored.ID(), stored)
	return stored, nil
}

func (r *InmemEstablishmentRepository) Update(_ context.Context, e establishment.Establishment) (establishment.Establishment, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	current, ok := r.storage.Get(e.ID())
	if !ok {
		return establishment.Establishment{}, establishment.NotFound(e.ID())
	}
	if r.codeTakenLocked(e.Code(), e.ID()) {
		return establishment.Establishment{}, establishment.NewDuplicateCodeError(e.Code())
	}
	stored := establishment.New(e.Name(), e.Type(),
		establishment.WithID(e.ID()),
		establishment.WithCode(e.Code()),
		establishment.WithParent(current.ParentID()),
		establishment.WithContact(e.Contact()),
		establishment.WithResponsible(e.ResponsibleID()),
		establishment.WithActive(e.Active()),
		establishment.WithTimestamps(current.CreatedAt(), r.now()),
	)
	r.storage.Set(stored.ID(), stored)
	return stored, nil
}

func (r *InmemEstablishmentRepository) UpdateParent(_ context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	now := r.now()
	if !r.storage.Update(id, func(e establishment.Establishment) establishment.Establishment {
		return e.SetParent(parentID, now)
	}) {
		return establishment.NotFound(id)
	}
	return nil
}

func (r *InmemEstablishmentRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if _, ok := r.storage.Get(id); !ok {
		return establishment.NotFound(id)
	}
	r.storage.Delete(id)
	return nil
}

func (r *InmemEstablishmentRepository) LockTree(context.Context) error {
	return nil
}
