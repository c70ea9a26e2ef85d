package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, retries int) *Client {
	t.Helper()
	c, err := NewClient(ClientOptions{
		Timeout:           2 * time.Second,
		MaxRetries:        retries,
		MaxConcurrent:     10,
		RequestsPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	// Keep test retries fast.
	c.retry.InitialBackoff = time.Millisecond
	c.retry.MaxBackoff = 5 * time.Millisecond
	return c
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected User-Agent header")
		}
		if r.URL.Query().Get("inn") != "1234567890" {
			t.Errorf("unexpected query: %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"status":"active"}`))
	}))
	defer srv.Close()

	var out struct {
		Status string `json:"status"`
	}
	err := newTestClient(t, 3).GetJSON(context.Background(), srv.URL, url.Values{"inn": {"1234567890"}}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != "active" {
		t.Errorf("unexpected payload: %+v", out)
	}
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out map[string]any
	err := newTestClient(t, 3).GetJSON(context.Background(), srv.URL, nil, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestGetJSON_NoRetryOnNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var out map[string]any
	err := newTestClient(t, 3).GetJSON(context.Background(), srv.URL, nil, &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 attempt for a non-transient status, got %d", n)
	}
}

func TestGetJSON_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var out map[string]any
	err := newTestClient(t, 2).GetJSON(context.Background(), srv.URL, nil, &out)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestGetJSON_SingleAttemptDisablesRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out map[string]any
	err := newTestClient(t, 1).GetJSON(context.Background(), srv.URL, nil, &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly 1 attempt with retries disabled, got %d", n)
	}
}

func TestNewClient_AttemptCapFloor(t *testing.T) {
	for _, retries := range []int{0, -1} {
		c, err := NewClient(ClientOptions{MaxRetries: retries})
		if err != nil {
			t.Fatalf("new client: %v", err)
		}
		if c.retry.MaxAttempts != 3 {
			t.Errorf("MaxRetries=%d: expected default attempt cap 3, got %d", retries, c.retry.MaxAttempts)
		}
	}
}

func TestGetJSON_MalformedJSONNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := newTestClient(t, 3).GetJSON(context.Background(), srv.URL, nil, &out)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 attempt for a malformed payload, got %d", n)
	}
}

func TestNewClient_RejectsBadProxy(t *testing.T) {
	_, err := NewClient(ClientOptions{
		Proxies:       []string{"http://good.example:8080", "://bad"},
		RotateProxies: true,
	})
	if err == nil {
		t.Fatal("expected error for malformed proxy URL")
	}
}

func TestRandomUserAgent(t *testing.T) {
	for i := 0; i < 20; i++ {
		if RandomUserAgent() == "" {
			t.Fatal("expected non-empty User-Agent")
		}
	}
}
