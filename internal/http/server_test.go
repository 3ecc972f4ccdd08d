package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ryuko2/dinerito/internal/backend"
	"github.com/Ryuko2/dinerito/internal/config"
	"github.com/Ryuko2/dinerito/internal/core"
	"github.com/Ryuko2/dinerito/internal/remote"
	"github.com/Ryuko2/dinerito/internal/remote/memory"
	"github.com/Ryuko2/dinerito/internal/sync"
)

type testEnv struct {
	store  *memory.Store
	server *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		DataBackend: "memory",
		RetryBase:   10 * time.Millisecond,
		RetryCap:    50 * time.Millisecond,
	}
	b, err := backend.New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}
	t.Cleanup(func() { b.Store.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	b.Managers.StartAll(ctx)
	t.Cleanup(func() {
		cancel()
		b.Managers.CloseAll()
	})

	env := &testEnv{
		store:  b.Store.(*memory.Store),
		server: NewServer(b.Managers, nil),
	}
	env.server.now = func() time.Time {
		return time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC)
	}
	env.waitLive(t)
	return env
}

func (e *testEnv) waitLive(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ready := true
		for _, m := range e.server.managers.All() {
			if m.State() != sync.StateLive {
				ready = false
			}
		}
		if ready {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("managers never went live")
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) waitCount(t *testing.T, path string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := e.do(t, http.MethodGet, path, "")
		var list []map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err == nil && len(list) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s never reached %d records", path, want)
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
}

func TestStatusReportsEveryCollection(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]collectionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, name := range core.Collections() {
		st, ok := got[name]
		if !ok {
			t.Errorf("missing collection %q", name)
			continue
		}
		if st.State != string(sync.StateLive) {
			t.Errorf("%s state = %s", name, st.State)
		}
	}
}

func TestCollectionCRUD(t *testing.T) {
	env := newTestEnv(t)

	// Create.
	rec := env.do(t, http.MethodPost, "/api/collections/expenses",
		`{"amount": 120, "description": "luz", "category": "Hogar", "paidBy": "girlfriend", "date": "2025-04-02"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST = %d: %s", rec.Code, rec.Body)
	}
	var created map[string]string
	json.Unmarshal(rec.Body.Bytes(), &created)
	id := created["id"]
	if id == "" {
		t.Fatal("no id returned")
	}
	env.waitCount(t, "/api/collections/expenses", 1)

	// List returns the normalized record.
	rec = env.do(t, http.MethodGet, "/api/collections/expenses", "")
	var list []core.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list[0].ID != id || list[0].Description != "luz" || list[0].PaidBy != core.PersonGirlfriend {
		t.Errorf("list[0] = %+v", list[0])
	}
	if list[0].Card != core.CardDefault {
		t.Errorf("Card = %q, normalization did not run", list[0].Card)
	}

	// Patch: set one field, delete another.
	rec = env.do(t, http.MethodPatch, "/api/collections/expenses/"+id,
		`{"set": {"amount": 150}, "delete": ["brand"]}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("PATCH = %d: %s", rec.Code, rec.Body)
	}

	// Delete.
	if rec := env.do(t, http.MethodDelete, "/api/collections/expenses/"+id, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d", rec.Code)
	}
	env.waitCount(t, "/api/collections/expenses", 0)
}

func TestCollectionErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown collection", http.MethodGet, "/api/collections/nope", "", http.StatusNotFound},
		{"malformed body", http.MethodPost, "/api/collections/expenses", `{not json`, http.StatusBadRequest},
		{"empty patch", http.MethodPatch, "/api/collections/expenses/x", `{}`, http.StatusBadRequest},
		{"remove unknown id", http.MethodDelete, "/api/collections/expenses/nope", "", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(t, tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestWriteFailureMapsToBadGateway(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailWrites(core.CollectionExpenses, true)

	rec := env.do(t, http.MethodPost, "/api/collections/expenses", `{"amount": 1}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("POST = %d", rec.Code)
	}
}

func TestBudgetProjectionEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.store.Seed(core.CollectionBudgets, remote.Document{
		"name": "Comida", "category": "Comida", "person": "all",
		"limitAmount": float64(1000), "period": "monthly",
	})
	env.store.Seed(core.CollectionExpenses, remote.Document{
		"amount": float64(500), "description": "super", "category": "Comida",
		"paidBy": "boyfriend", "date": "2025-04-05",
	})
	env.waitCount(t, "/api/collections/budgets", 1)
	env.waitCount(t, "/api/collections/expenses", 1)

	rec := env.do(t, http.MethodGet, "/api/projections/budgets", "")
	var got []struct {
		SpentToDate    float64 `json:"spentToDate"`
		ProjectedTotal float64 `json:"projectedTotal"`
		WillExceed     bool    `json:"willExceed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("projections = %d", len(got))
	}
	// Ten days into a thirty-day month.
	if got[0].SpentToDate != 500 || got[0].ProjectedTotal != 1500 || !got[0].WillExceed {
		t.Errorf("got %+v", got[0])
	}
}

func TestRatioEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.store.Seed(core.CollectionIncomes, remote.Document{
		"amount": float64(1000), "description": "sueldo", "person": "boyfriend", "date": "2025-04-01",
	})
	env.store.Seed(core.CollectionExpenses, remote.Document{
		"amount": float64(900), "description": "renta", "category": "Hogar",
		"paidBy": "boyfriend", "date": "2025-04-01",
	})
	env.waitCount(t, "/api/collections/incomes", 1)
	env.waitCount(t, "/api/collections/expenses", 1)

	rec := env.do(t, http.MethodGet, "/api/projections/ratio", "")
	var got struct {
		Total struct {
			Ratio  float64 `json:"ratio"`
			Status string  `json:"status"`
		} `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total.Ratio != 0.9 || got.Total.Status != "hot" {
		t.Errorf("total = %+v", got.Total)
	}
}

func TestExportImportEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.store.Seed(core.CollectionExpenses, remote.Document{
		"amount": float64(50), "description": "pan", "category": "Comida",
		"paidBy": "boyfriend", "date": "2025-04-01",
	})
	env.waitCount(t, "/api/collections/expenses", 1)

	rec := env.do(t, http.MethodGet, "/api/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	var bundle struct {
		DataVersion string `json:"dataVersion"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &bundle); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if bundle.DataVersion != core.SchemaVersion {
		t.Errorf("dataVersion = %q", bundle.DataVersion)
	}

	// Importing the export doubles the collection: additive, not restore.
	if rec := env.do(t, http.MethodPost, "/api/import", rec.Body.String()); rec.Code != http.StatusOK {
		t.Fatalf("import = %d: %s", rec.Code, rec.Body)
	}
	env.waitCount(t, "/api/collections/expenses", 2)
}

func TestImportRejectsWrongVersion(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/import", `{"dataVersion": "9.9", "expenses": []}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("import = %d", rec.Code)
	}
}
