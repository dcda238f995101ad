package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	corepersistence "github.com/ipsco/fleet/modules/core/infrastructure/persistence"
	coreservices "github.com/ipsco/fleet/modules/core/services"
	"github.com/ipsco/fleet/modules/establishment/domain/aggregates/establishment"
	"github.com/ipsco/fleet/modules/establishment/infrastructure/persistence"
	"github.com/ipsco/fleet/modules/establishment/services"
	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/serrors"
)

type fixture struct {
	hierarchy *services.HierarchyService
	resolver  *services.AccessResolver
	actors    *corepersistence.InmemActorRepository
	recorder  *recorder
}

type recorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *recorder) Record(_ context.Context, _ *uuid.UUID, action, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	caps, err := authz.NewService(authz.Config{})
	require.NoError(t, err)

	rec := &recorder{}
	actors := corepersistence.NewInmemActorRepository()
	hierarchy := services.NewHierarchyService(
		persistence.NewInmemEstablishmentRepository(),
		actors,
		repo.NewMemTransactor(),
		services.WithActionRecorder(rec),
	)
	return &fixture{
		hierarchy: hierarchy,
		resolver:  services.NewAccessResolver(hierarchy, caps, nil),
		actors:    actors,
		recorder:  rec,
	}
}

func (f *fixture) create(t *testing.T, name, code string, parent *establishment.Establishment) establishment.Establishment {
	t.Helper()
	dto := &establishment.CreateDTO{Name: name, Code: code}
	if parent != nil {
		id := parent.ID()
		dto.ParentID = &id
	}
	e, err := f.hierarchy.Create(context.Background(), dto)
	require.NoError(t, err)
	return e
}

func (f *fixture) actor(t *testing.T, role authz.Role, home *establishment.Establishment) actor.Actor {
	t.Helper()
	a := actor.Actor{Username: uuid.NewString(), Role: role, IsActive: true}
	if home != nil {
		id := home.ID()
		a.EstablishmentID = &id
	}
	created, err := f.actors.Create(context.Background(), a)
	require.NoError(t, err)
	return created
}

func ids(list []establishment.Establishment) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID())
	}
	return out
}

func TestHierarchy_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	hq := f.create(t, "HQ", "HQ01", nil)
	branch := f.create(t, "Branch", "BR01", &hq)
	assert.True(t, hq.IsRoot())
	assert.True(t, branch.HasParent(hq.ID()))

	below, err := f.hierarchy.Descendants(ctx, hq.ID())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{branch.ID()}, ids(below))

	branchID := branch.ID()
	_, err = f.hierarchy.Reparent(ctx, hq.ID(), &branchID)
	var cycle *establishment.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, hq.ID(), cycle.NodeID)

	err = f.hierarchy.Delete(ctx, hq.ID())
	var deps *establishment.HasDependentsError
	require.ErrorAs(t, err, &deps)
	assert.Equal(t, 1, deps.Children)
	assert.Equal(t, 0, deps.Actors)

	require.NoError(t, f.hierarchy.Delete(ctx, branch.ID()))
	require.NoError(t, f.hierarchy.Delete(ctx, hq.ID()))

	_, err = f.hierarchy.Get(ctx, hq.ID())
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.hierarchy.Create(context.Background(), &establishment.CreateDTO{Name: "  "})
	var verr *serrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "Name")

	_, err = f.hierarchy.Create(context.Background(), nil)
	require.ErrorIs(t, err, serrors.ErrValidation)
}

func TestCreate_DuplicateCode(t *testing.T) {
	f := newFixture(t)
	f.create(t, "HQ", "HQ01", nil)

	_, err := f.hierarchy.Create(context.Background(), &establishment.CreateDTO{Name: "Other", Code: "HQ01"})
	require.ErrorIs(t, err, establishment.ErrDuplicateCode)
}

func TestCreate_UnknownParent(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()

	_, err := f.hierarchy.Create(context.Background(), &establishment.CreateDTO{Name: "Orphan", ParentID: &missing})
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestCreate_GeneratesCode(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, "Head Quarter", "", nil)
	second := f.create(t, "head office", "", nil)
	f.create(t, "Gap", "HEA4", nil)
	third := f.create(t, "Heating", "", nil)
	fourth := f.create(t, "Heavy", "", nil)

	assert.Equal(t, "HEA1", first.Code())
	assert.Equal(t, "HEA2", second.Code())
	assert.Equal(t, "HEA3", third.Code())
	assert.Equal(t, "HEA5", fourth.Code())

	blank := f.create(t, "--", "", nil)
	assert.Equal(t, "1", blank.Code())
}

func TestReparent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	root := f.create(t, "Root", "R", nil)
	a := f.create(t, "A", "A", &root)
	b := f.create(t, "B", "B", &a)
	c := f.create(t, "C", "C", &b)
	other := f.create(t, "Other", "O", nil)

	t.Run("to self", func(t *testing.T) {
		id := a.ID()
		_, err := f.hierarchy.Reparent(ctx, a.ID(), &id)
		require.ErrorIs(t, err, establishment.ErrCycle)
	})

	t.Run("to deep descendant", func(t *testing.T) {
		id := c.ID()
		_, err := f.hierarchy.Reparent(ctx, a.ID(), &id)
		require.ErrorIs(t, err, establishment.ErrCycle)

		unchanged, err := f.hierarchy.Get(ctx, a.ID())
		require.NoError(t, err)
		assert.True(t, unchanged.HasParent(root.ID()))
	})

	t.Run("missing parent", func(t *testing.T) {
		id := uuid.New()
		_, err := f.hierarchy.Reparent(ctx, a.ID(), &id)
		require.ErrorIs(t, err, serrors.ErrNotFound)
	})

	t.Run("missing node", func(t *testing.T) {
		id := root.ID()
		_, err := f.hierarchy.Reparent(ctx, uuid.New(), &id)
		require.ErrorIs(t, err, serrors.ErrNotFound)
	})

	t.Run("moves only the node", func(t *testing.T) {
		id := other.ID()
		moved, err := f.hierarchy.Reparent(ctx, b.ID(), &id)
		require.NoError(t, err)
		assert.True(t, moved.HasParent(other.ID()))

		stillChild, err := f.hierarchy.Get(ctx, c.ID())
		require.NoError(t, err)
		assert.True(t, stillChild.HasParent(b.ID()))

		below, err := f.hierarchy.Descendants(ctx, other.ID())
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b.ID(), c.ID()}, ids(below))
	})

	t.Run("to root", func(t *testing.T) {
		moved, err := f.hierarchy.Reparent(ctx, b.ID(), nil)
		require.NoError(t, err)
		assert.True(t, moved.IsRoot())
	})

	assert.Contains(t, f.recorder.actions, "establishment.reparent")
}

func TestReparent_ConcurrentSwapKeepsForest(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		f := newFixture(t)
		a := f.create(t, "A", "A", nil)
		b := f.create(t, "B", "B", nil)
		aID, bID := a.ID(), b.ID()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = f.hierarchy.Reparent(ctx, aID, &bID)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = f.hierarchy.Reparent(ctx, bID, &aID)
		}()
		wg.Wait()

		cycles := 0
		for _, err := range errs {
			if err != nil {
				require.ErrorIs(t, err, establishment.ErrCycle)
				cycles++
			}
		}
		require.Equal(t, 1, cycles)

		gotA, err := f.hierarchy.Get(ctx, aID)
		require.NoError(t, err)
		gotB, err := f.hierarchy.Get(ctx, bID)
		require.NoError(t, err)
		if errs[0] == nil {
			assert.True(t, gotA.HasParent(bID))
			assert.True(t, gotB.IsRoot())
		} else {
			assert.True(t, gotB.HasParent(aID))
			assert.True(t, gotA.IsRoot())
		}
	}
}

func TestAssignEstablishment_RacesDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	actors := coreservices.NewActorService(f.actors, f.resolver, repo.NewMemTransactor(), nil)
	admin := actor.Actor{ID: uuid.New(), IsSuperuser: true, IsActive: true}

	t.Run("deleted node cannot be assigned", func(t *testing.T) {
		node := f.create(t, "Depot", "DP01", nil)
		driver := f.actor(t, authz.RoleDriver, nil)
		require.NoError(t, f.hierarchy.Delete(ctx, node.ID()))

		_, err := actors.AssignEstablishment(ctx, admin, driver.ID, node.ID())
		require.ErrorIs(t, err, serrors.ErrAccessDenied)
		n, err := f.actors.CountByEstablishment(ctx, node.ID())
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("concurrent", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			node := f.create(t, "Garage", "", nil)
			driver := f.actor(t, authz.RoleDriver, nil)

			var wg sync.WaitGroup
			var assignErr, deleteErr error
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, assignErr = actors.AssignEstablishment(ctx, admin, driver.ID, node.ID())
			}()
			go func() {
				defer wg.Done()
				deleteErr = f.hierarchy.Delete(ctx, node.ID())
			}()
			wg.Wait()

			got, err := f.actors.GetByID(ctx, driver.ID)
			require.NoError(t, err)
			if assignErr == nil {
				var deps *establishment.HasDependentsError
				require.ErrorAs(t, deleteErr, &deps)
				_, err := f.hierarchy.Get(ctx, node.ID())
				require.NoError(t, err)
				require.True(t, got.HasHome())
				assert.Equal(t, node.ID(), *got.EstablishmentID)
			} else {
				require.NoError(t, deleteErr)
				require.ErrorIs(t, assignErr, serrors.ErrAccessDenied)
				assert.False(t, got.HasHome())
			}
		}
	})
}

func TestDescendants_OrderAndIdempotence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	root := f.create(t, "Root", "R", nil)
	zeta := f.create(t, "Zeta", "Z1", &root)
	alpha := f.create(t, "Alpha", "A2", &root)
	alphaTwin := f.create(t, "Alpha", "A1", &root)
	leaf := f.create(t, "Leaf", "L1", &zeta)
	early := f.create(t, "Aardvark", "AA", &alpha)

	first, err := f.hierarchy.Descendants(ctx, root.ID())
	require.NoError(t, err)
	second, err := f.hierarchy.Descendants(ctx, root.ID())
	require.NoError(t, err)

	want := []uuid.UUID{alphaTwin.ID(), alpha.ID(), zeta.ID(), early.ID(), leaf.ID()}
	assert.Equal(t, want, ids(first))
	assert.Equal(t, ids(first), ids(second))

	leafBelow, err := f.hierarchy.Descendants(ctx, leaf.ID())
	require.NoError(t, err)
	assert.Empty(t, leafBelow)

	_, err = f.hierarchy.Descendants(ctx, uuid.New())
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestAncestorsAndHierarchy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	root := f.create(t, "Root", "R", nil)
	mid := f.create(t, "Mid", "M", &root)
	leaf := f.create(t, "Leaf", "L", &mid)

	up, err := f.hierarchy.Ancestors(ctx, leaf.ID())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mid.ID(), root.ID()}, ids(up))

	top, err := f.hierarchy.Ancestors(ctx, root.ID())
	require.NoError(t, err)
	assert.Empty(t, top)

	h, err := f.hierarchy.Hierarchy(ctx, mid.ID())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{root.ID()}, ids(h.Ancestors))
	assert.Equal(t, mid.ID(), h.Node.ID())
	assert.Equal(t, []uuid.UUID{leaf.ID()}, ids(h.Descendants))
}

func TestDelete_BlockedByActor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	node := f.create(t, "Garage", "G1", nil)
	driver := f.actor(t, authz.RoleDriver, &node)

	err := f.hierarchy.Delete(ctx, node.ID())
	var deps *establishment.HasDependentsError
	require.ErrorAs(t, err, &deps)
	assert.Equal(t, 1, deps.Actors)

	require.NoError(t, f.actors.SetEstablishment(ctx, driver.ID, nil))
	require.NoError(t, f.hierarchy.Delete(ctx, node.ID()))
	assert.Contains(t, f.recorder.actions, "establishment.delete")

	require.ErrorIs(t, f.hierarchy.Delete(ctx, node.ID()), serrors.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := f.create(t, "A", "A1", nil)
	f.create(t, "B", "B1", nil)

	name := "Renamed"
	updated, err := f.hierarchy.Update(ctx, a.ID(), &establishment.UpdateDTO{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name())
	assert.Equal(t, "A1", updated.Code())

	taken := "B1"
	_, err = f.hierarchy.Update(ctx, a.ID(), &establishment.UpdateDTO{Code: &taken})
	require.ErrorIs(t, err, establishment.ErrDuplicateCode)

	bad := "nope"
	_, err = f.hierarchy.Update(ctx, a.ID(), &establishment.UpdateDTO{Type: &bad})
	require.ErrorIs(t, err, serrors.ErrValidation)
}

func TestVisibleNodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	hq := f.create(t, "HQ", "HQ01", nil)
	branch := f.create(t, "Branch", "BR01", &hq)
	depot := f.create(t, "Depot", "DP01", &branch)
	unrelated := f.create(t, "Elsewhere", "EL01", nil)

	t.Run("elevated sees all", func(t *testing.T) {
		staff := actor.Actor{ID: uuid.New(), Role: authz.RoleRequester, IsStaff: true, IsActive: true}
		set, err := f.resolver.VisibleNodes(ctx, staff)
		require.NoError(t, err)
		for _, e := range []establishment.Establishment{hq, branch, depot, unrelated} {
			assert.True(t, set.Contains(e.ID()))
		}
		list, err := f.resolver.VisibleEstablishments(ctx, staff)
		require.NoError(t, err)
		assert.Len(t, list, 4)
	})

	t.Run("dispatcher sees home and subtree", func(t *testing.T) {
		d := f.actor(t, authz.RoleDispatcher, &branch)
		set, err := f.resolver.VisibleNodes(ctx, d)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{branch.ID(), depot.ID()}, set.Slice())
		assert.False(t, set.Contains(hq.ID()))
	})

	t.Run("administrator inherits subtree", func(t *testing.T) {
		admin := f.actor(t, authz.RoleAdministrator, &hq)
		set, err := f.resolver.VisibleNodes(ctx, admin)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{hq.ID(), branch.ID(), depot.ID()}, set.Slice())
	})

	t.Run("driver sees only home", func(t *testing.T) {
		driver := f.actor(t, authz.RoleDriver, &branch)
		set, err := f.resolver.VisibleNodes(ctx, driver)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{branch.ID()}, set.Slice())
	})

	t.Run("inactive actor sees nothing", func(t *testing.T) {
		d := f.actor(t, authz.RoleDispatcher, &branch)
		d.IsActive = false
		set, err := f.resolver.VisibleNodes(ctx, d)
		require.NoError(t, err)
		assert.True(t, set.Empty())
		require.ErrorIs(t, f.resolver.Authorize(ctx, d, branch.ID()), serrors.ErrAccessDenied)

		staff := actor.Actor{ID: uuid.New(), IsSuperuser: true}
		set, err = f.resolver.VisibleNodes(ctx, staff)
		require.NoError(t, err)
		assert.False(t, set.Contains(hq.ID()))
		require.ErrorIs(t, f.resolver.AuthorizeCapability(ctx, staff, authz.CapCreateEstablishment, nil), serrors.ErrAccessDenied)
		ok, err := f.resolver.CanAssignNode(ctx, staff, hq.ID())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("pending actor sees nothing", func(t *testing.T) {
		pending := f.actor(t, authz.RoleDispatcher, nil)
		set, err := f.resolver.VisibleNodes(ctx, pending)
		require.NoError(t, err)
		assert.True(t, set.Empty())

		list, err := f.resolver.VisibleEstablishments(ctx, pending)
		require.NoError(t, err)
		assert.Empty(t, list)

		err = f.resolver.Authorize(ctx, pending, branch.ID())
		require.ErrorIs(t, err, serrors.ErrAccessDenied)
	})
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	hq := f.create(t, "HQ", "HQ01", nil)
	branch := f.create(t, "Branch", "BR01", &hq)
	d := f.actor(t, authz.RoleDispatcher, &branch)

	require.NoError(t, f.resolver.Authorize(ctx, d, branch.ID()))

	err := f.resolver.Authorize(ctx, d, hq.ID())
	var denied *serrors.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, d.ID, denied.ActorID)

	// unknown nodes are denied, not reported missing
	err = f.resolver.Authorize(ctx, d, uuid.New())
	require.ErrorIs(t, err, serrors.ErrAccessDenied)

	staff := actor.Actor{ID: uuid.New(), IsSuperuser: true, IsActive: true}
	require.ErrorIs(t, f.resolver.Authorize(ctx, staff, uuid.New()), serrors.ErrAccessDenied)
}

func TestCanAssignNode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	hq := f.create(t, "HQ", "HQ01", nil)
	branch := f.create(t, "Branch", "BR01", &hq)
	depot := f.create(t, "Depot", "DP01", &branch)

	dispatcher := f.actor(t, authz.RoleDispatcher, &branch)
	security := f.actor(t, authz.RoleSecurity, &hq)
	staff := actor.Actor{ID: uuid.New(), IsStaff: true, IsActive: true}

	tests := []struct {
		name  string
		actor actor.Actor
		node  uuid.UUID
		want  bool
	}{
		{"dispatcher own node", dispatcher, branch.ID(), true},
		{"dispatcher below home", dispatcher, depot.ID(), true},
		{"dispatcher above home", dispatcher, hq.ID(), false},
		{"role without capability", security, depot.ID(), false},
		{"elevated", staff, hq.ID(), true},
		{"unknown node", staff, uuid.New(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.resolver.CanAssignNode(ctx, tt.actor, tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	require.ErrorIs(t, f.resolver.AuthorizeAssignment(ctx, dispatcher, hq.ID()), serrors.ErrAccessDenied)
}

func TestAuthorizeCapability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hq := f.create(t, "HQ", "HQ01", nil)
	branch := f.create(t, "Branch", "BR01", &hq)
	other := f.create(t, "Other", "OT01", nil)

	dispatcher := f.actor(t, authz.RoleDispatcher, &branch)
	requester := f.actor(t, authz.RoleRequester, &branch)
	staff := actor.Actor{ID: uuid.New(), Role: authz.RoleRequester, IsStaff: true, IsActive: true}

	branchID, otherID := branch.ID(), other.ID()

	require.NoError(t, f.resolver.AuthorizeCapability(ctx, dispatcher, authz.CapManageSubtree, &branchID))
	require.ErrorIs(t, f.resolver.AuthorizeCapability(ctx, dispatcher, authz.CapManageSubtree, &otherID), serrors.ErrAccessDenied)
	require.ErrorIs(t, f.resolver.AuthorizeCapability(ctx, dispatcher, authz.CapManageSubtree, nil), serrors.ErrAccessDenied)
	require.ErrorIs(t, f.resolver.AuthorizeCapability(ctx, requester, authz.CapManageSubtree, &branchID), serrors.ErrAccessDenied)

	require.NoError(t, f.resolver.AuthorizeCapability(ctx, staff, authz.CapCreateEstablishment, nil))
	require.NoError(t, f.resolver.AuthorizeCapability(ctx, staff, authz.CapManageSubtree, &otherID))
	missing := uuid.New()
	require.ErrorIs(t, f.resolver.AuthorizeCapability(ctx, staff, authz.CapManageSubtree, &missing), serrors.ErrAccessDenied)
}
