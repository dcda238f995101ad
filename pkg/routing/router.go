package routing

import (
	"fmt"
)

// Router decides which store serves an entity type. It only reads its
// Policy, so a single instance is shared by every request.
type Router struct {
	policy *Policy
}

func NewRouter(policy *Policy) *Router {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Router{policy: policy}
}

func (r *Router) Policy() *Policy {
	return r.policy
}

// StoreFor returns the authoritative store for a read or write of entity.
// Reads always go to the authoritative store.
func (r *Router) StoreFor(entity Entity, op Operation) (Store, error) {
	switch op {
	case OpRead, OpWrite:
	default:
		return "", fmt.Errorf("%w: %q (use AllowMigrate for schema changes)", ErrInvalidOperation, op)
	}
	store := r.authoritative(entity)
	recordLookup(entity, op, store)
	return store, nil
}

// ReadStore is StoreFor(entity, OpRead) for callers that cannot get an invalid op.
func (r *Router) ReadStore(entity Entity) Store {
	store := r.authoritative(entity)
	recordLookup(entity, OpRead, store)
	return store
}

// WriteStore is StoreFor(entity, OpWrite) for callers that cannot get an invalid op.
func (r *Router) WriteStore(entity Entity) Store {
	store := r.authoritative(entity)
	recordLookup(entity, OpWrite, store)
	return store
}

// AllowMigrate reports whether schema for entity may be applied to store.
// Priority entities are carried by both stores so each can resolve its
// foreign keys locally.
func (r *Router) AllowMigrate(store Store, entity Entity) bool {
	if r.policy.IsPriority(entity) {
		return true
	}
	return r.authoritative(entity) == store
}

// AllowRelation always permits relations. Cross-store referential integrity
// is the application layer's job.
func (r *Router) AllowRelation(_, _ Entity) bool {
	return true
}

func (r *Router) authoritative(entity Entity) Store {
	if r.policy.IsSecondary(entity) {
		return StoreSecondary
	}
	return StorePrimary
}
