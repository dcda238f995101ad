package services

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/establishment/domain/aggregates/establishment"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/serrors"
)

// ActionRecorder receives a best-effort trace of every hierarchy mutation.
type ActionRecorder interface {
	Record(ctx context.Context, actorID *uuid.UUID, action, details string)
}

type HierarchyService struct {
	repo     establishment.Repository
	actors   actor.Repository
	tx       repo.Transactor
	recorder ActionRecorder
	logger   *logrus.Entry
	now      func() time.Time
}

type HierarchyOption func(*HierarchyService)

func WithActionRecorder(r ActionRecorder) HierarchyOption {
	return func(s *HierarchyService) { s.recorder = r }
}

func WithHierarchyLogger(l *logrus.Logger) HierarchyOption {
	return func(s *HierarchyService) { s.logger = l.WithField("component", "hierarchy") }
}

func WithClock(now func() time.Time) HierarchyOption {
	return func(s *HierarchyService) { s.now = now }
}

func NewHierarchyService(
	repo establishment.Repository,
	actors actor.Repository,
	tx repo.Transactor,
	opts ...HierarchyOption,
) *HierarchyService {
	s := &HierarchyService{
		repo:   repo,
		actors: actors,
		tx:     tx,
		logger: logrus.StandardLogger().WithField("component", "hierarchy"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hierarchy is a node with the path above it and the subtree below it.
type Hierarchy struct {
	Ancestors   []establishment.Establishment
	Node        establishment.Establishment
	Descendants []establishment.Establishment
}

func (s *HierarchyService) Get(ctx context.Context, id uuid.UUID) (establishment.Establishment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *HierarchyService) List(ctx context.Context, params *establishment.FindParams) ([]establishment.Establishment, error) {
	return s.repo.List(ctx, params)
}

func (s *HierarchyService) Create(ctx context.Context, dto *establishment.CreateDTO) (establishment.Establishment, error) {
	if dto == nil {
		return establishment.Establishment{}, serrors.Invalid("Name", "required")
	}
	if errs, ok := dto.Ok(); !ok {
		return establishment.Establishment{}, serrors.NewValidationError(errs)
	}

	var created establishment.Establishment
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockTree(txCtx); err != nil {
			return err
		}
		entity := dto.ToEntity()
		if parent := entity.ParentID(); parent != nil {
			if err := s.mustExist(txCtx, *parent); err != nil {
				return err
			}
		}
		if entity.Code() == "" {
			code, err := s.generateCode(txCtx, entity.Name())
			if err != nil {
				return err
			}
			entity = entity.SetCode(code)
		}
		var err error
		created, err = s.repo.Create(txCtx, entity)
		return err
	})
	recordOperation("create", err)
	if err != nil {
		return establishment.Establishment{}, err
	}
	s.record(ctx, "establishment.create", created.ID().String()+" "+created.Code())
	return created, nil
}

func (s *HierarchyService) Update(ctx context.Context, id uuid.UUID, dto *establishment.UpdateDTO) (establishment.Establishment, error) {
	if dto == nil {
		return s.repo.GetByID(ctx, id)
	}
	if errs, ok := dto.Ok(); !ok {
		return establishment.Establishment{}, serrors.NewValidationError(errs)
	}

	var updated establishment.Establishment
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		updated, err = s.repo.Update(txCtx, current.Apply(dto, s.now()))
		return err
	})
	recordOperation("update", err)
	if err != nil {
		return establishment.Establishment{}, err
	}
	s.record(ctx, "establishment.update", updated.ID().String())
	return updated, nil
}

// Reparent moves nodeID under newParentID, or makes it a root when
// newParentID is nil. The cycle check and the write share one locked
// transaction.
func (s *HierarchyService) Reparent(ctx context.Context, nodeID uuid.UUID, newParentID *uuid.UUID) (establishment.Establishment, error) {
	var moved establishment.Establishment
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockTree(txCtx); err != nil {
			return err
		}
		node, err := s.repo.GetByID(txCtx, nodeID)
		if err != nil {
			return err
		}
		if newParentID != nil {
			if *newParentID == nodeID {
				return establishment.NewCycleError(nodeID, *newParentID)
			}
			if err := s.mustExist(txCtx, *newParentID); err != nil {
				return err
			}
			under, err := s.isDescendant(txCtx, nodeID, *newParentID)
			if err != nil {
				return err
			}
			if under {
				return establishment.NewCycleError(nodeID, *newParentID)
			}
		}
		if err := s.repo.UpdateParent(txCtx, nodeID, newParentID); err != nil {
			return err
		}
		moved = node.SetParent(newParentID, s.now())
		return nil
	})
	recordOperation("reparent", err)
	if err != nil {
		return establishment.Establishment{}, err
	}
	details := nodeID.String() + " -> root"
	if newParentID != nil {
		details = nodeID.String() + " -> " + newParentID.String()
	}
	s.record(ctx, "establishment.reparent", details)
	return moved, nil
}

// Descendants returns the transitive closure of children of nodeID, level by
// level, each level ordered by name then code.
func (s *HierarchyService) Descendants(ctx context.Context, nodeID uuid.UUID) ([]establishment.Establishment, error) {
	if err := s.mustExist(ctx, nodeID); err != nil {
		return nil, err
	}
	out, err := s.descendants(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	hierarchyTraversalSize.WithLabelValues("descendants").Observe(float64(len(out)))
	return out, nil
}

func (s *HierarchyService) descendants(ctx context.Context, nodeID uuid.UUID) ([]establishment.Establishment, error) {
	visited := map[uuid.UUID]struct{}{nodeID: {}}
	frontier := []uuid.UUID{nodeID}
	var out []establishment.Establishment
	for len(frontier) > 0 {
		children, err := s.repo.ListChildren(ctx, frontier)
		if err != nil {
			return nil, err
		}
		slices.SortFunc(children, compareSiblings)
		frontier = frontier[:0]
		for _, child := range children {
			if _, seen := visited[child.ID()]; seen {
				continue
			}
			visited[child.ID()] = struct{}{}
			out = append(out, child)
			frontier = append(frontier, child.ID())
		}
	}
	return out, nil
}

// Ancestors returns the path from nodeID's parent up to the root.
func (s *HierarchyService) Ancestors(ctx context.Context, nodeID uuid.UUID) ([]establishment.Establishment, error) {
	node, err := s.repo.GetByID(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	out, err := s.ancestors(ctx, node)
	if err != nil {
		return nil, err
	}
	hierarchyTraversalSize.WithLabelValues("ancestors").Observe(float64(len(out)))
	return out, nil
}

func (s *HierarchyService) ancestors(ctx context.Context, node establishment.Establishment) ([]establishment.Establishment, error) {
	visited := map[uuid.UUID]struct{}{node.ID(): {}}
	var out []establishment.Establishment
	for parent := node.ParentID(); parent != nil; {
		if _, seen := visited[*parent]; seen {
			s.logger.WithField("node", node.ID()).Error("cycle detected while walking ancestors")
			break
		}
		visited[*parent] = struct{}{}
		p, err := s.repo.GetByID(ctx, *parent)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		parent = p.ParentID()
	}
	return out, nil
}

func (s *HierarchyService) Hierarchy(ctx context.Context, nodeID uuid.UUID) (Hierarchy, error) {
	node, err := s.repo.GetByID(ctx, nodeID)
	if err != nil {
		return Hierarchy{}, err
	}
	up, err := s.ancestors(ctx, node)
	if err != nil {
		return Hierarchy{}, err
	}
	slices.Reverse(up)
	down, err := s.descendants(ctx, nodeID)
	if err != nil {
		return Hierarchy{}, err
	}
	return Hierarchy{Ancestors: up, Node: node, Descendants: down}, nil
}

// Delete removes a node with no actors and no children. It never cascades.
func (s *HierarchyService) Delete(ctx context.Context, nodeID uuid.UUID) error {
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockTree(txCtx); err != nil {
			return err
		}
		if err := s.mustExist(txCtx, nodeID); err != nil {
			return err
		}
		children, err := s.repo.CountChildren(txCtx, nodeID)
		if err != nil {
			return err
		}
		actors, err := s.actors.CountByEstablishment(txCtx, nodeID)
		if err != nil {
			return err
		}
		if children > 0 || actors > 0 {
			return establishment.NewHasDependentsError(nodeID, actors, children)
		}
		return s.repo.Delete(txCtx, nodeID)
	})
	recordOperation("delete", err)
	if err != nil {
		return err
	}
	s.record(ctx, "establishment.delete", nodeID.String())
	return nil
}

// IsDescendant reports whether candidate lies strictly below ancestorID.
func (s *HierarchyService) IsDescendant(ctx context.Context, ancestorID, candidate uuid.UUID) (bool, error) {
	return s.isDescendant(ctx, ancestorID, candidate)
}

func (s *HierarchyService) isDescendant(ctx context.Context, ancestorID, candidate uuid.UUID) (bool, error) {
	node, err := s.repo.GetByID(ctx, candidate)
	if err != nil {
		return false, err
	}
	up, err := s.ancestors(ctx, node)
	if err != nil {
		return false, err
	}
	for _, a := range up {
		if a.ID() == ancestorID {
			return true, nil
		}
	}
	return false, nil
}

func (s *HierarchyService) withTreeLock(ctx context.Context, fn func(context.Context) error) error {
	return s.tx.InTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockTree(txCtx); err != nil {
			return err
		}
		return fn(txCtx)
	})
}

func (s *HierarchyService) mustExist(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return establishment.NotFound(id)
	}
	return nil
}

// generateCode returns the name prefix followed by the smallest counter not
// already taken.
func (s *HierarchyService) generateCode(ctx context.Context, name string) (string, error) {
	prefix := establishment.CodePrefix(name)
	codes, err := s.repo.CodesWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	taken := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		taken[c] = struct{}{}
	}
	for i := 1; ; i++ {
		code := prefix + strconv.Itoa(i)
		if _, ok := taken[code]; !ok {
			return code, nil
		}
	}
}

func (s *HierarchyService) record(ctx context.Context, action, details string) {
	if s.recorder == nil {
		return
	}
	var actorID *uuid.UUID
	if a, err := composables.UseActor(ctx); err == nil {
		id := a.ID
		actorID = &id
	}
	s.recorder.Record(ctx, actorID, action, details)
}

func compareSiblings(a, b establishment.Establishment) int {
	return cmp.Or(
		cmp.Compare(a.Name(), b.Name()),
		cmp.Compare(a.Code(), b.Code()),
	)
}
