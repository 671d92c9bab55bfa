package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/shoplist/internal/draft"
	"github.com/dukerupert/shoplist/internal/shopping"
)

type testEnv struct {
	mux    *http.ServeMux
	store  *shopping.Store
	drafts *draft.Manager
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := shopping.New(shopping.WithLogger(logger))
	store.Start(context.Background())
	t.Cleanup(store.Stop)
	drafts := draft.NewManager(time.Hour)

	lh := NewListHandler(store, logger)
	dh := NewDraftHandler(drafts, store, logger)
	ch := NewCategoryHandler()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/categories", ch.List)
	mux.HandleFunc("GET /api/categories/suggest", ch.Suggest)
	mux.HandleFunc("GET /api/lists", lh.List)
	mux.HandleFunc("GET /api/lists/{id}", lh.Get)
	mux.HandleFunc("POST /api/lists", lh.Create)
	mux.HandleFunc("DELETE /api/lists/{id}", lh.Delete)
	mux.HandleFunc("POST /api/lists/{id}/items/{item_id}/toggle", lh.ToggleItem)
	mux.HandleFunc("PUT /api/lists/{id}/items/{item_id}", lh.UpdateItem)
	mux.HandleFunc("DELETE /api/lists/{id}/items/{item_id}", lh.DeleteItem)
	mux.HandleFunc("POST /api/drafts", dh.Create)
	mux.HandleFunc("GET /api/drafts/{id}", dh.Get)
	mux.HandleFunc("PUT /api/drafts/{id}", dh.Update)
	mux.HandleFunc("DELETE /api/drafts/{id}", dh.Discard)
	mux.HandleFunc("POST /api/drafts/{id}/items", dh.AddItem)
	mux.HandleFunc("PUT /api/drafts/{id}/items/{item_id}", dh.UpdateItem)
	mux.HandleFunc("DELETE /api/drafts/{id}/items/{item_id}", dh.RemoveItem)
	mux.HandleFunc("POST /api/drafts/{id}/items/{item_id}/toggle", dh.ToggleItem)
	mux.HandleFunc("POST /api/drafts/{id}/submit", dh.Submit)

	return &testEnv{mux: mux, store: store, drafts: drafts}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

const weeklyGroceries = `{"name":"Weekly Groceries","category":"Groceries","items":[{"name":"Milk","quantity":2}]}`

func TestListLifecycle(t *testing.T) {
	env := setupTest(t)

	rec := env.do(t, "POST", "/api/lists", weeklyGroceries)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body)
	}
	created := decode[listView](t, rec)
	if created.ID != 1 || len(created.Items) != 1 || created.Items[0].ID != 1 || created.Complete {
		t.Fatalf("created = %+v", created)
	}

	rec = env.do(t, "POST", "/api/lists/1/items/1/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: status = %d", rec.Code)
	}

	rec = env.do(t, "GET", "/api/lists/1", "")
	got := decode[listView](t, rec)
	if !got.Complete || got.Purchased != 1 || got.Total != 1 {
		t.Errorf("after toggle = %+v", got)
	}

	rec = env.do(t, "PUT", "/api/lists/1/items/1", `{"name":"Oat Milk","quantity":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit: status = %d, body = %s", rec.Code, rec.Body)
	}
	if item := env.store.List(1).Items[0]; item.Name != "Oat Milk" || item.Quantity != 3 || !item.Purchased {
		t.Errorf("edited item = %+v", item)
	}

	if rec = env.do(t, "DELETE", "/api/lists/1/items/1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete item: status = %d", rec.Code)
	}
	if rec = env.do(t, "DELETE", "/api/lists/1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete list: status = %d", rec.Code)
	}

	rec = env.do(t, "GET", "/api/lists", "")
	if lists := decode[[]listView](t, rec); len(lists) != 0 {
		t.Errorf("expected no lists, got %d", len(lists))
	}
}

func TestListNotFound(t *testing.T) {
	env := setupTest(t)
	env.do(t, "POST", "/api/lists", weeklyGroceries)

	tests := []struct {
		method, path, body string
	}{
		{"GET", "/api/lists/9", ""},
		{"DELETE", "/api/lists/9", ""},
		{"POST", "/api/lists/1/items/9/toggle", ""},
		{"PUT", "/api/lists/9/items/1", `{"name":"X","quantity":1}`},
		{"DELETE", "/api/lists/1/items/9", ""},
	}
	for _, tt := range tests {
		rec := env.do(t, tt.method, tt.path, tt.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", tt.method, tt.path, rec.Code)
		}
	}
	if l := env.store.List(1); l == nil || len(l.Items) != 1 || l.Items[0].Purchased {
		t.Errorf("state changed: %+v", l)
	}
}

func TestListBadRequests(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name, method, path, body string
		field                    string
	}{
		{"bad json", "POST", "/api/lists", `{`, ""},
		{"blank name", "POST", "/api/lists", `{"name":" ","category":"Pantry","items":[{"name":"Rice","quantity":1}]}`, "name"},
		{"blank category", "POST", "/api/lists", `{"name":"Weekly","items":[{"name":"Rice","quantity":1}]}`, "category"},
		{"no items", "POST", "/api/lists", `{"name":"Weekly","category":"Pantry","items":[]}`, "items"},
		{"bad id", "GET", "/api/lists/abc", "", ""},
		{"bad item id", "POST", "/api/lists/1/items/x/toggle", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if tt.field != "" {
				body := decode[map[string]string](t, rec)
				if body["field"] != tt.field || body["error"] == "" {
					t.Errorf("body = %v, want field %q", body, tt.field)
				}
			}
		})
	}
	if len(env.store.Lists()) != 0 {
		t.Error("invalid requests changed the store")
	}
}

func TestListFilterByCategory(t *testing.T) {
	env := setupTest(t)
	env.do(t, "POST", "/api/lists", weeklyGroceries)
	env.do(t, "POST", "/api/lists", `{"name":"Gadgets","category":"Electronics","items":[{"name":"Cable","quantity":1}]}`)

	rec := env.do(t, "GET", "/api/lists?category=electronics", "")
	lists := decode[[]listView](t, rec)
	if len(lists) != 1 || lists[0].Name != "Gadgets" {
		t.Errorf("filtered = %+v", lists)
	}
}

func TestListStoreClosed(t *testing.T) {
	env := setupTest(t)
	env.store.Stop()

	rec := env.do(t, "POST", "/api/lists", weeklyGroceries)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDraftFlow(t *testing.T) {
	env := setupTest(t)

	rec := env.do(t, "POST", "/api/drafts", `{"category":"Groceries"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create draft: status = %d", rec.Code)
	}
	d := decode[draftView](t, rec)
	if d.ID == "" || d.Category != "Groceries" {
		t.Fatalf("draft = %+v", d)
	}
	base := "/api/drafts/" + d.ID

	// Submitting an empty draft reports the first missing field.
	rec = env.do(t, "POST", base+"/submit", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("submit empty: status = %d", rec.Code)
	}
	if body := decode[map[string]string](t, rec); body["error"] != "Please enter a list name." {
		t.Errorf("submit empty: body = %v", body)
	}

	env.do(t, "PUT", base, `{"name":"Weekly Groceries"}`)
	rec = env.do(t, "POST", base+"/items", `{"name":"Milk","quantity":0}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add item: status = %d, body = %s", rec.Code, rec.Body)
	}
	d = decode[draftView](t, rec)
	if len(d.Items) != 1 || d.Items[0].Quantity != 1 {
		t.Fatalf("draft items = %+v", d.Items)
	}

	env.do(t, "POST", base+"/items", `{"name":"Eggs","quantity":12}`)
	env.do(t, "PUT", base+"/items/1", `{"name":"Milk","quantity":2}`)
	if rec = env.do(t, "DELETE", base+"/items/2", ""); rec.Code != http.StatusOK {
		t.Errorf("remove item: status = %d", rec.Code)
	}
	if rec = env.do(t, "POST", base+"/items/7/toggle", ""); rec.Code != http.StatusNotFound {
		t.Errorf("toggle missing draft item: status = %d", rec.Code)
	}
	if len(env.store.Lists()) != 0 {
		t.Fatal("draft edits must not touch the store")
	}

	rec = env.do(t, "POST", base+"/submit", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: status = %d, body = %s", rec.Code, rec.Body)
	}
	list := decode[listView](t, rec)
	if list.ID != 1 || list.Name != "Weekly Groceries" || len(list.Items) != 1 || list.Items[0].Quantity != 2 {
		t.Errorf("submitted list = %+v", list)
	}

	if rec = env.do(t, "GET", base, ""); rec.Code != http.StatusNotFound {
		t.Errorf("draft should be gone after submit, status = %d", rec.Code)
	}
}

func TestDraftSuggestsCategory(t *testing.T) {
	env := setupTest(t)

	d := decode[draftView](t, env.do(t, "POST", "/api/drafts", ""))
	rec := env.do(t, "POST", "/api/drafts/"+d.ID+"/items", `{"name":"Bananas","quantity":6}`)
	d = decode[draftView](t, rec)
	if d.Category != "" || d.SuggestedCategory != "Groceries" {
		t.Errorf("draft = %+v", d)
	}
}

func TestDraftDiscard(t *testing.T) {
	env := setupTest(t)

	d := decode[draftView](t, env.do(t, "POST", "/api/drafts", ""))
	if rec := env.do(t, "DELETE", "/api/drafts/"+d.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("discard: status = %d", rec.Code)
	}
	if rec := env.do(t, "DELETE", "/api/drafts/"+d.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second discard: status = %d", rec.Code)
	}
	if rec := env.do(t, "POST", "/api/drafts/"+d.ID+"/submit", ""); rec.Code != http.StatusNotFound {
		t.Errorf("submit discarded: status = %d", rec.Code)
	}
}

func TestCategories(t *testing.T) {
	env := setupTest(t)

	cats := decode[[]map[string]any](t, env.do(t, "GET", "/api/categories", ""))
	if len(cats) != 7 || cats[0]["name"] != "Groceries" || cats[6]["name"] != "Other Items" {
		t.Errorf("categories = %v", cats)
	}

	tests := []struct {
		query string
		code  int
		want  string
	}{
		{"", http.StatusBadRequest, ""},
		{"?item=bananas", http.StatusOK, "Groceries"},
		{"?item=widget", http.StatusOK, "Other Items"},
		{"?item=widget&item=gizmo", http.StatusOK, "Other Items"},
	}
	for _, tt := range tests {
		rec := env.do(t, "GET", "/api/categories/suggest"+tt.query, "")
		if rec.Code != tt.code {
			t.Errorf("%q: status = %d, want %d", tt.query, rec.Code, tt.code)
			continue
		}
		if tt.want != "" {
			if body := decode[map[string]string](t, rec); body["category"] != tt.want {
				t.Errorf("%q: category = %q, want %q", tt.query, body["category"], tt.want)
			}
		}
	}
}
