package itf

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
)

// Anonymous sends requests without an actor header.
var Anonymous = actor.Actor{}

// Do serves one JSON request through the router on behalf of as.
func (te *TestEnvironment) Do(tb testing.TB, as actor.Actor, method, path string, body any) *httptest.ResponseRecorder {
	tb.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			tb.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, "http://example.com"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as.ID != uuid.Nil {
		req.Header.Set(te.header, as.ID.String())
	}
	rr := httptest.NewRecorder()
	te.Router.ServeHTTP(rr, req)
	return rr
}

// Decode unmarshals the recorded JSON body into T.
func Decode[T any](tb testing.TB, rr *httptest.ResponseRecorder) T {
	tb.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		tb.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

type listItem struct {
	ID uuid.UUID `json:"id"`
}

// ItemIDs extracts the ids of an {"items": [...]} response.
func ItemIDs(tb testing.TB, rr *httptest.ResponseRecorder) []uuid.UUID {
	tb.Helper()
	page := Decode[struct {
		Items []listItem `json:"items"`
	}](tb, rr)
	ids := make([]uuid.UUID, 0, len(page.Items))
	for _, it := range page.Items {
		ids = append(ids, it.ID)
	}
	return ids
}
