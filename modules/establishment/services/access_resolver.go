package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/establishment/domain/aggregates/establishment"
	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/serrors"
)

// CapabilityChecker answers role capability questions. *authz.Service
// satisfies it.
type CapabilityChecker interface {
	HasCapability(ctx context.Context, role authz.Role, c authz.Capability) (bool, error)
}

// NodeSet is the set of establishments an actor may see. All is set for
// elevated actors, in which case IDs is empty and every node is a member.
type NodeSet struct {
	All bool
	IDs map[uuid.UUID]struct{}
}

func (n NodeSet) Contains(id uuid.UUID) bool {
	if n.All {
		return true
	}
	_, ok := n.IDs[id]
	return ok
}

func (n NodeSet) Empty() bool {
	return !n.All && len(n.IDs) == 0
}

func (n NodeSet) Slice() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(n.IDs))
	for id := range n.IDs {
		out = append(out, id)
	}
	return out
}

// AccessResolver is the single authority for node-scoped visibility. It holds
// no per-actor state and is safe for concurrent use.
type AccessResolver struct {
	hierarchy *HierarchyService
	caps      CapabilityChecker
	logger    *logrus.Entry
}

func NewAccessResolver(hierarchy *HierarchyService, caps CapabilityChecker, logger *logrus.Logger) *AccessResolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AccessResolver{
		hierarchy: hierarchy,
		caps:      caps,
		logger:    logger.WithField("component", "access-resolver"),
	}
}

// VisibleNodes returns the nodes a may see. Inactive actors see nothing.
func (r *AccessResolver) VisibleNodes(ctx context.Context, a actor.Actor) (NodeSet, error) {
	if !a.IsActive {
		return NodeSet{IDs: map[uuid.UUID]struct{}{}}, nil
	}
	if a.Elevated() {
		return NodeSet{All: true}, nil
	}
	set := NodeSet{IDs: map[uuid.UUID]struct{}{}}
	if !a.HasHome() {
		return set, nil
	}
	home := *a.EstablishmentID
	if ok, err := r.hierarchy.repo.Exists(ctx, home); err != nil {
		return NodeSet{}, err
	} else if !ok {
		r.logger.WithFields(logrus.Fields{"actor": a.ID, "establishment": home}).
			Warn("actor home establishment does not exist")
		return set, nil
	}
	set.IDs[home] = struct{}{}

	manages, err := r.caps.HasCapability(ctx, a.Role, authz.CapManageSubtree)
	if err != nil {
		return NodeSet{}, err
	}
	if !manages {
		return set, nil
	}
	below, err := r.hierarchy.descendants(ctx, home)
	if err != nil {
		return NodeSet{}, err
	}
	for _, e := range below {
		set.IDs[e.ID()] = struct{}{}
	}
	return set, nil
}

// VisibleEstablishments materialises VisibleNodes for listings.
func (r *AccessResolver) VisibleEstablishments(ctx context.Context, a actor.Actor) ([]establishment.Establishment, error) {
	set, err := r.VisibleNodes(ctx, a)
	if err != nil {
		return nil, err
	}
	if set.All {
		return r.hierarchy.repo.List(ctx, &establishment.FindParams{})
	}
	if set.Empty() {
		return []establishment.Establishment{}, nil
	}
	return r.hierarchy.repo.List(ctx, &establishment.FindParams{IDs: set.Slice()})
}

func (r *AccessResolver) CanAccess(ctx context.Context, a actor.Actor, nodeID uuid.UUID) (bool, error) {
	set, err := r.VisibleNodes(ctx, a)
	if err != nil {
		return false, err
	}
	allowed := set.Contains(nodeID)
	if set.All {
		exists, err := r.hierarchy.repo.Exists(ctx, nodeID)
		if err != nil {
			return false, err
		}
		allowed = exists
	}
	recordDecision("access", allowed)
	return allowed, nil
}

// Authorize fails with AccessDeniedError unless nodeID is visible to a.
// Unknown nodes are denied the same way.
func (r *AccessResolver) Authorize(ctx context.Context, a actor.Actor, nodeID uuid.UUID) error {
	ok, err := r.CanAccess(ctx, a, nodeID)
	if err != nil {
		return err
	}
	if !ok {
		r.deny(a, nodeID, "node not visible")
		return serrors.NewAccessDeniedError(a.ID, nodeID, "node not visible")
	}
	return nil
}

// AuthorizeCapability requires c for non elevated actors and, when nodeID is
// set, that the node is visible. A nil nodeID targets the forest root level,
// which only elevated actors may change.
func (r *AccessResolver) AuthorizeCapability(ctx context.Context, a actor.Actor, c authz.Capability, nodeID *uuid.UUID) error {
	target := uuid.Nil
	if nodeID != nil {
		target = *nodeID
	}
	if !a.IsActive {
		r.deny(a, target, "actor inactive")
		return serrors.NewAccessDeniedError(a.ID, target, "actor inactive")
	}
	if !a.Elevated() {
		if nodeID == nil {
			r.deny(a, target, "root level requires elevation")
			return serrors.NewAccessDeniedError(a.ID, target, "root level requires elevation")
		}
		can, err := r.caps.HasCapability(ctx, a.Role, c)
		if err != nil {
			return err
		}
		recordDecision("capability", can)
		if !can {
			r.deny(a, target, "missing capability "+c.String())
			return serrors.NewAccessDeniedError(a.ID, target, "missing capability")
		}
	}
	if nodeID == nil {
		return nil
	}
	return r.Authorize(ctx, a, target)
}

// CanAssignNode reports whether a may make nodeID another actor's home.
func (r *AccessResolver) CanAssignNode(ctx context.Context, a actor.Actor, nodeID uuid.UUID) (bool, error) {
	allowed, err := r.canAssign(ctx, a, nodeID)
	if err != nil {
		return false, err
	}
	recordDecision("assign", allowed)
	return allowed, nil
}

func (r *AccessResolver) canAssign(ctx context.Context, a actor.Actor, nodeID uuid.UUID) (bool, error) {
	if !a.IsActive {
		return false, nil
	}
	exists, err := r.hierarchy.repo.Exists(ctx, nodeID)
	if err != nil || !exists {
		return false, err
	}
	if a.Elevated() {
		return true, nil
	}
	if !a.HasHome() {
		return false, nil
	}
	can, err := r.caps.HasCapability(ctx, a.Role, authz.CapAssignEstablishment)
	if err != nil || !can {
		return false, err
	}
	home := *a.EstablishmentID
	if home == nodeID {
		return true, nil
	}
	return r.hierarchy.isDescendant(ctx, home, nodeID)
}

func (r *AccessResolver) AuthorizeAssignment(ctx context.Context, a actor.Actor, nodeID uuid.UUID) error {
	ok, err := r.CanAssignNode(ctx, a, nodeID)
	if err != nil {
		return err
	}
	if !ok {
		r.deny(a, nodeID, "cannot assign node")
		return serrors.NewAccessDeniedError(a.ID, nodeID, "cannot assign node")
	}
	return nil
}

// WithAssignableNode runs fn inside the hierarchy unit of work, holding the
// tree lock, once a may assign nodeID. Delete takes the same lock, so nodeID
// cannot disappear before fn commits.
func (r *AccessResolver) WithAssignableNode(
	ctx context.Context,
	a actor.Actor,
	nodeID uuid.UUID,
	fn func(context.Context) error,
) error {
	return r.hierarchy.withTreeLock(ctx, func(txCtx context.Context) error {
		if err := r.AuthorizeAssignment(txCtx, a, nodeID); err != nil {
			return err
		}
		return fn(txCtx)
	})
}

func (r *AccessResolver) deny(a actor.Actor, nodeID uuid.UUID, reason string) {
	r.logger.WithFields(logrus.Fields{
		"actor":         a.ID,
		"role":          a.Role,
		"establishment": nodeID,
		"reason":        reason,
	}).Info("access denied")
}
