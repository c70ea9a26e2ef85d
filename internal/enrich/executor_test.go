package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/store"
)

func testStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

// registryMux serves all five registries with healthy responses.
func registryMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[{"debt_sum":300000,"debt_type":"bank","creditor":"Сбербанк"}]}`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		// Both the bankruptcy and court registries use /search; the court
		// request carries the type=individual param.
		if r.URL.Query().Get("type") == "individual" {
			w.Write([]byte(`{"results":[{"type":"court_order","status":"active"}]}`))
			return
		}
		w.Write([]byte(`{"data":[]}`))
	})
	mux.HandleFunc("/property", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"properties":[]}`))
	})
	mux.HandleFunc("/inn.do", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"active"}`))
	})
	return mux
}

func insertTestLeads(t *testing.T, st store.Store, leads ...model.Lead) {
	t.Helper()
	if _, err := st.InsertLeads(context.Background(), leads); err != nil {
		t.Fatalf("insert leads: %v", err)
	}
}

func newLead(fio, phone, inn string) model.Lead {
	return model.Lead{
		ID:        model.LeadID(fio, phone, inn),
		FIO:       fio,
		Phone:     phone,
		INN:       inn,
		Source:    "fns",
		INNActive: true,
	}
}

func TestEnrichAll(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	insertTestLeads(t, st,
		newLead("Иванов Иван Иванович", "+79161234567", "1234567890"),
		newLead("Петров Петр Петрович", "+79167654321", "0987654321"),
	)

	sources := testSources(t, registryMux())
	exec := NewExecutor(st, sources, 100, 10, 1)

	enriched, err := exec.EnrichAll(ctx)
	if err != nil {
		t.Fatalf("enrich all: %v", err)
	}
	if enriched != 2 {
		t.Errorf("expected 2 enriched leads, got %d", enriched)
	}

	remaining, err := st.CountUnenriched(ctx)
	if err != nil {
		t.Fatalf("count unenriched: %v", err)
	}
	if remaining != 0 {
		t.Errorf("expected no unenriched leads, got %d", remaining)
	}

	leads, err := st.SelectUnscored(ctx, "", 10)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	for _, lead := range leads {
		if lead.DebtAmountValue() != 300000 {
			t.Errorf("lead %s: expected debt 300000, got %v", lead.ID, lead.DebtAmountValue())
		}
		if lead.DebtType != model.DebtTypeBank {
			t.Errorf("lead %s: expected bank debt, got %q", lead.ID, lead.DebtType)
		}
		if !lead.HasCourtOrder {
			t.Errorf("lead %s: expected a court order", lead.ID)
		}
		if lead.HasProperty || lead.IsBankrupt {
			t.Errorf("lead %s: unexpected property or bankruptcy flags", lead.ID)
		}
		if lead.EnrichedAt == nil {
			t.Errorf("lead %s: enriched_at not set", lead.ID)
		}
	}
}

func TestEnrichAll_OneRegistryDown(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	insertTestLeads(t, st, newLead("Иванов Иван Иванович", "+79161234567", "1234567890"))

	mux := registryMux()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(failing.Close)

	sources := testSources(t, mux)
	sources.urls.RosreestrURL = failing.URL

	exec := NewExecutor(st, sources, 100, 10, 1)
	enriched, err := exec.EnrichAll(ctx)
	if err != nil {
		t.Fatalf("enrich all: %v", err)
	}
	if enriched != 1 {
		t.Errorf("expected 1 enriched lead, got %d", enriched)
	}

	// The failed lookup degrades to its default; the others land.
	leads, err := st.SelectUnscored(ctx, "", 10)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(leads))
	}
	if leads[0].HasProperty {
		t.Error("expected property default false after registry failure")
	}
	if leads[0].DebtAmountValue() != 300000 {
		t.Errorf("expected debt lookup to succeed, got %v", leads[0].DebtAmountValue())
	}

	logs, err := st.ListErrorLogs(ctx, 10)
	if err != nil {
		t.Fatalf("list error logs: %v", err)
	}
	found := false
	for _, entry := range logs {
		if entry.Source == "rosreestr" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an error log entry for the failed registry, got %+v", logs)
	}
}

func TestEnrichAll_Empty(t *testing.T) {
	st := testStore(t)
	exec := NewExecutor(st, testSources(t, registryMux()), 100, 10, 1)

	enriched, err := exec.EnrichAll(context.Background())
	if err != nil {
		t.Fatalf("enrich all: %v", err)
	}
	if enriched != 0 {
		t.Errorf("expected 0, got %d", enriched)
	}
}
