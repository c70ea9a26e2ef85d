package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/config"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/fetcher"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
)

func testClient(t *testing.T) *fetcher.Client {
	t.Helper()
	client, err := fetcher.NewClient(fetcher.ClientOptions{
		Timeout:           2 * time.Second,
		MaxRetries:        1,
		MaxConcurrent:     10,
		RequestsPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func testSources(t *testing.T, handler http.Handler) *Sources {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewSources(testClient(t), config.SourcesConfig{
		FSSPBaseURL:  srv.URL,
		FedresursURL: srv.URL,
		RosreestrURL: srv.URL,
		CourtAPIURL:  srv.URL,
		TaxAPIURL:    srv.URL,
	})
}

func TestDebtSearch_AggregatesDebts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("inn") != "1234567890" {
			t.Errorf("expected inn param, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"result":[
			{"debt_sum":200000,"debt_type":"bank","creditor":"Сбербанк"},
			{"debt_sum":50000,"debt_type":"tax","creditor":"ФНС"},
			{"debt_sum":100000,"debt_type":"mfo","creditor":"Займер"}
		]}`))
	})

	info, err := testSources(t, mux).DebtSearch(context.Background(), "1234567890", "Иванов Иван", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Amount != 350000 {
		t.Errorf("expected total 350000, got %v", info.Amount)
	}
	if info.Count != 3 {
		t.Errorf("expected 3 debts, got %d", info.Count)
	}
	if info.Type != model.DebtTypeBank {
		t.Errorf("expected dominant type bank, got %q", info.Type)
	}
	if info.Creditor != "Сбербанк" {
		t.Errorf("expected creditor of the largest debt, got %q", info.Creditor)
	}
}

func TestDebtSearch_FallsBackToNameAndDOB(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("inn") != "" {
			t.Error("expected no inn param")
		}
		if q.Get("fio") != "Иванов Иван" || q.Get("dob") != "1980-05-15" {
			t.Errorf("unexpected query: %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"result":[]}`))
	})

	info, err := testSources(t, mux).DebtSearch(context.Background(), "", "Иванов Иван", "1980-05-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Count != 0 || info.Amount != 0 {
		t.Errorf("expected empty result, got %+v", info)
	}
}

func TestBankruptcy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"status":"closed"},{"status":"active"}]}`))
	})

	bankrupt, err := testSources(t, mux).Bankruptcy(context.Background(), "1234567890")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bankrupt {
		t.Error("expected active case to mark lead bankrupt")
	}
}

func TestBankruptcy_EmptyINNSkipsLookup(t *testing.T) {
	sources := testSources(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a tax ID")
	}))

	bankrupt, err := sources.Bankruptcy(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bankrupt {
		t.Error("expected false without a tax ID")
	}
}

func TestProperty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/property", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"properties":[{"type":"apartment"}]}`))
	})

	has, err := testSources(t, mux).Property(context.Background(), "1234567890")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !has {
		t.Error("expected property to be found")
	}
}

func TestCourtOrders_AbbreviatesName(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(`{"results":[{"type":"court_order","status":"active"}]}`))
	})

	has, err := testSources(t, mux).CourtOrders(context.Background(), "Иванов Иван Иванович")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !has {
		t.Error("expected active court order")
	}
	if gotQuery != "Иванов И.И." {
		t.Errorf("expected abbreviated name, got %q", gotQuery)
	}
}

func TestCourtOrders_ShortNameSkipsLookup(t *testing.T) {
	sources := testSources(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a single-token name")
	}))

	has, err := sources.CourtOrders(context.Background(), "Иванов")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if has {
		t.Error("expected false for a single-token name")
	}
}

func TestINNStatus_FailsOpen(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/inn.do", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	active, err := testSources(t, mux).INNStatus(context.Background(), "1234567890")
	if err == nil {
		t.Fatal("expected error from failing registry")
	}
	if !active {
		t.Error("tax ID lookup must default to active on failure")
	}
}

func TestINNStatus_Inactive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/inn.do", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"liquidated"}`))
	})

	active, err := testSources(t, mux).INNStatus(context.Background(), "1234567890")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active {
		t.Error("expected inactive status")
	}
}
