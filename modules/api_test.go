package modules_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/notifications/domain/notification"
	"github.com/ipsco/fleet/modules/notifications/handlers"
	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/itf"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSender) Channel() notification.Channel { return notification.ChannelEmail }

func (s *recordingSender) Send(_ context.Context, address string, msg notification.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, address+": "+msg.Title)
	return "queued", nil
}

func (s *recordingSender) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type fixture struct {
	t     *testing.T
	env   *itf.TestEnvironment
	email *recordingSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	email := &recordingSender{}
	return &fixture{
		t:     t,
		env:   itf.NewTestContext().WithSenders(email).Build(t),
		email: email,
	}
}

func (f *fixture) actor(username string, role authz.Role, home *uuid.UUID, superuser bool) actor.Actor {
	f.t.Helper()
	return f.env.CreateActor(f.t, actor.Actor{
		Username:        username,
		Role:            role,
		EstablishmentID: home,
		Email:           username + "@example.com",
		IsSuperuser:     superuser,
	})
}

func (f *fixture) do(as actor.Actor, method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	return f.env.Do(f.t, as, method, path, body)
}

func (f *fixture) createEstablishment(as actor.Actor, name string, parent *uuid.UUID) uuid.UUID {
	f.t.Helper()
	body := map[string]any{"name": name}
	if parent != nil {
		body["parent_id"] = parent.String()
	}
	rr := f.do(as, http.MethodPost, "/api/v1/establishments", body)
	require.Equal(f.t, http.StatusCreated, rr.Code, rr.Body.String())
	return itf.Decode[struct {
		ID uuid.UUID `json:"id"`
	}](f.t, rr).ID
}

type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	return e
}

// tree builds root > mid > leaf plus a sibling branch root > other.
func (f *fixture) tree(su actor.Actor) (root, mid, leaf, other uuid.UUID) {
	root = f.createEstablishment(su, "Direction Generale", nil)
	mid = f.createEstablishment(su, "Logistique", &root)
	leaf = f.createEstablishment(su, "Garage", &mid)
	other = f.createEstablishment(su, "Finances", &root)
	return
}

func TestAPI_RequiresActor(t *testing.T) {
	f := newFixture(t)

	rr := f.do(itf.Anonymous, http.MethodGet, "/api/v1/establishments", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	ghost := actor.Actor{ID: uuid.New()}
	rr = f.do(ghost, http.MethodGet, "/api/v1/establishments", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPI_VisibilityIsScopedToSubtree(t *testing.T) {
	f := newFixture(t)
	su := f.actor("admin", authz.RoleAdministrator, nil, true)
	root, mid, leaf, other := f.tree(su)

	dispatcher := f.actor("disp", authz.RoleDispatcher, &mid, false)
	requester := f.actor("req", authz.RoleRequester, &mid, false)
	pending := f.actor("new", authz.RoleDispatcher, nil, false)

	rr := f.do(su, http.MethodGet, "/api/v1/establishments", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.ElementsMatch(t, []uuid.UUID{root, mid, leaf, other}, itf.ItemIDs(t, rr))

	rr = f.do(dispatcher, http.MethodGet, "/api/v1/establishments", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.ElementsMatch(t, []uuid.UUID{mid, leaf}, itf.ItemIDs(t, rr))

	rr = f.do(requester, http.MethodGet, "/api/v1/establishments", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.ElementsMatch(t, []uuid.UUID{mid}, itf.ItemIDs(t, rr))

	rr = f.do(pending, http.MethodGet, "/api/v1/establishments", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, itf.ItemIDs(t, rr))

	rr = f.do(dispatcher, http.MethodGet, "/api/v1/establishments/"+mid.String()+"/ancestors", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, itf.ItemIDs(t, rr))
}

func TestAPI_DeniedAndMissingLookIdentical(t *testing.T) {
	f := newFixture(t)
	su := f.actor("admin", authz.RoleAdministrator, nil, true)
	_, mid, _, other := f.tree(su)
	dispatcher := f.actor("disp", authz.RoleDispatcher, &mid, false)

	denied := f.do(dispatcher, http.MethodGet, "/api/v1/establishments/"+other.String(), nil)
	missing := f.do(dispatcher, http.MethodGet, "/api/v1/establishments/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, denied.Code)
	assert.Equal(t, missing.Code, denied.Code)
	assert.Equal(t, missing.Body.String(), denied.Body.String())
}

func TestAPI_SubtreeListingsHideNodesOutsideScope(t *testing.T) {
	f := newFixture(t)
	su := f.actor("admin", authz.RoleAdministrator, nil, true)
	root, mid, leaf, _ := f.tree(su)
	requester := f.actor("req", authz.RoleRequester, &mid, false)
	dispatcher := f.actor("disp", authz.RoleDispatcher, &mid, false)

	rr := f.do(requester, http.MethodGet, "/api/v1/establishments/"+leaf.String(), nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(requester, http.MethodGet, "/api/v1/establishments/"+mid.String()+"/descendants", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, itf.ItemIDs(t, rr))
	assert.NotContains(t, rr.Body.String(), "Garage")

	rr = f.do(requester, http.MethodGet, "/api/v1/establishments/"+mid.String()+"/hierarchy", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "Garage")
	h := itf.Decode[struct {
		Ancestors   []struct{ ID uuid.UUID } `json:"ancestors"`
		Node        struct{ ID uuid.UUID }   `json:"node"`
		Descendants []struct{ ID uuid.UUID } `json:"descendants"`
	}](t, rr)
	assert.Equal(t, mid, h.Node.ID)
	assert.Empty(t, h.Ancestors)
	assert.Empty(t, h.Descendants)

	rr = f.do(dispatcher, http.MethodGet, "/api/v1/establishments/"+mid.String()+"/descendants", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []uuid.UUID{leaf}, itf.ItemIDs(t, rr))

	rr = f.do(su, http.MethodGet, "/api/v1/establishments/"+root.String()+"/hierarchy", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Garage")
}

func TestAPI_MoveRejectsCycle(t *testing.T) {
	f := newFixture(t)
	su := f.actor("admin", authz.RoleAdministrator, nil, true)
	root, _, leaf, _ := f.tree(su)

	rr := f.do(su, http.MethodPost, "/api/v1/establishments/"+root.String()+":move",
		map[string]any{"parent_id": leaf.String()})
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	assert.Equal(t, "ESTABLISHMENT_CYCLE", decodeEnvelope(t, rr).Code)

	rr = f.do(su, http.MethodPost, "/api/v1/establishments/"+root.String()+":move",
		map[string]any{"parent_id": root.String()})
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
}

func TestAPI_RootLevelRequiresElevation(t *testing.T) {
	f := newFixture(t)
	su := f.actor("admin", authz.RoleAdministrator, nil, true)
	_, mid, leaf, _ := f.tree(su)
	admin := f.actor("boss", authz.RoleAdministrator, &mid, false)

	rr := f.do(admin, http.MethodPost, "/api/v1/establishments", map[string]any{"name": "Rogue"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(admin, http.MethodPost, "/api/v1/establishments", map[string]any{"name": "Atelier", "parent_id": leaf.String()})
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestAPI_DeleteWithDependentsConflicts(t *testing.T) {
	f := newFixture(t)
	su := f.actor("admin", authz.RoleAdministrator, nil, true)
	_, mid, leaf, _ := f.tree(su)

	rr := f.do(su, http.MethodDelete, "/api/v1/establishments/"+mid.String(), nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "ESTABLISHMENT_HAS_DEPENDENTS", decodeEnvelope(t, rr).Code)

	rr = f.do(su, http.MethodDelete, "/api/v1/establishments/"+leaf.String(), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestAPI_AssignEstablishment(t *testing.T) {
	f := newFixture(t)
	su := f.actor("admin", authz.RoleAdministrator, nil, true)
	_, mid, leaf, other := f.tree(su)
	dispatcher := f.actor("disp", authz.RoleDispatcher, &mid, false)
	requester := f.actor("req", authz.RoleRequester, &mid, false)
	driver := f.actor("drv", authz.RoleDriver, nil, false)

	rr := f.do(dispatcher, http.MethodPost, "/api/v1/actors/"+driver.ID.String()+":assign",
		map[string]any{"establishment_id": leaf.String()})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(dispatcher, http.MethodPost, "/api/v1/actors/"+driver.ID.String()+":assign",
		map[string]any{"establishment_id": other.String()})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(requester, http.MethodPost, "/api/v1/actors/"+driver.ID.String()+":assign",
		map[string]any{"establishment_id": mid.String()})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(dispatcher, http.MethodPost, "/api/v1/actors/"+driver.ID.String()+":unassign", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	me := f.do(driver, http.MethodGet, "/api/v1/actors/me", nil)
	require.Equal(t, http.StatusOK, me.Code)
	var body struct {
		EstablishmentID *uuid.UUID `json:"establishment_id"`
	}
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &body))
	assert.Nil(t, body.EstablishmentID)
}

func TestAPI_MissionValidationNotifies(t *testing.T) {
	f := newFixture(t)
	su := f.actor("admin", authz.RoleAdministrator, nil, true)
	_, mid, leaf, _ := f.tree(su)
	dispatcher := f.actor("disp", authz.RoleDispatcher, &mid, false)
	requester := f.actor("req", authz.RoleRequester, &leaf, false)

	rr := f.do(requester, http.MethodPost, "/api/v1/missions", map[string]any{
		"establishment_id": leaf.String(),
		"origin":           "Garage",
		"destination":      "Aeroport",
		"scheduled_at":     time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "pending", created.Status)

	rr = f.do(requester, http.MethodPost, "/api/v1/missions/"+created.ID.String()+":validate", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(dispatcher, http.MethodPost, "/api/v1/missions/"+created.ID.String()+":validate", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	itf.GetService[handlers.MissionEventsHandler](f.env).Wait()
	assert.Equal(t, []string{"req@example.com: Mission validated"}, f.email.Sent())

	rr = f.do(dispatcher, http.MethodPost, "/api/v1/missions/"+created.ID.String()+":refuse", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(dispatcher, http.MethodGet, "/api/v1/missions?status=validated", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []uuid.UUID{created.ID}, itf.ItemIDs(t, rr))
}

func TestAPI_ActionLogRecordsMutations(t *testing.T) {
	f := newFixture(t)
	su := f.actor("admin", authz.RoleAdministrator, nil, true)
	f.createEstablishment(su, "Direction Generale", nil)

	rr := f.do(su, http.MethodGet, "/api/v1/action-logs?actor_id="+su.ID.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var page struct {
		Items []struct {
			Action string `json:"action"`
		} `json:"items"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	actions := make([]string, 0, len(page.Items))
	for _, it := range page.Items {
		actions = append(actions, it.Action)
	}
	assert.Contains(t, actions, "http.post")
}
