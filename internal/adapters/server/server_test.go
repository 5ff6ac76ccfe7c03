package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hylla/folio/internal/adapters/server/common"
	"github.com/hylla/folio/internal/adapters/storage/instrumented"
	"github.com/hylla/folio/internal/adapters/storage/sqlite"
	"github.com/hylla/folio/internal/app"
	"github.com/hylla/folio/internal/editor"
)

// newTestDependencies wires a real in-memory store, metrics recorder, and adapter.
func newTestDependencies(t *testing.T) Dependencies {
	t.Helper()
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	reg := prometheus.NewRegistry()
	rec := instrumented.NewRecorder(reg)
	svc := app.NewService(instrumented.Wrap(repo, rec), nil, nil, app.ServiceConfig{})
	return Dependencies{
		Service: common.NewAppServiceAdapter(svc, editor.DefaultConfig()),
		Ready:   repo.Ping,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
}

// TestNewHandlerRoutesEndpoints verifies health, API, and metrics mounting end to end.
func TestNewHandlerRoutesEndpoints(t *testing.T) {
	handler, cfg, err := NewHandler(Config{}, newTestDependencies(t))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.MetricsEndpoint != "/metrics" {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := server.Client().Get(server.URL + path)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
			t.Fatalf("%s = %d %q", path, resp.StatusCode, body)
		}
	}

	resp, err := server.Client().Post(server.URL+"/api/v1/activities", "application/json", strings.NewReader(`{"id":"a","title":"Plan","content":"ship it"}`))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	var created app.ActivityRecord
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || created.ID != "a" || created.WordCount != 2 {
		t.Fatalf("create = %d %#v", resp.StatusCode, created)
	}

	resp, err = server.Client().Get(server.URL + "/api/v1/activities/missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	resp, err = server.Client().Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("Get(/metrics) error = %v", err)
	}
	metrics, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(metrics), `folio_store_operations_total{operation="put",result="ok"} 1`) {
		t.Fatalf("metrics missing put counter:\n%s", metrics)
	}
	if !strings.Contains(string(metrics), `folio_store_operations_total{operation="get",result="not_found"} 1`) {
		t.Fatalf("metrics missing not_found counter:\n%s", metrics)
	}
}

// TestReadinessReportsStorageFailure verifies /readyz fails closed.
func TestReadinessReportsStorageFailure(t *testing.T) {
	deps := newTestDependencies(t)
	deps.Ready = func(context.Context) error { return errors.New("database is closed") }
	handler, _, err := NewHandler(Config{}, deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if body["status"] != "unavailable" || body["error"] != "database is closed" {
		t.Fatalf("unexpected readiness body %#v", body)
	}
}

// TestNewHandlerValidation verifies dependency and endpoint checks.
func TestNewHandlerValidation(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("expected missing service error")
	}
	deps := newTestDependencies(t)
	cases := []Config{
		{APIEndpoint: "/mcp"},
		{MetricsEndpoint: "/api/v1/"},
		{MCPEndpoint: "healthz"},
	}
	for _, cfg := range cases {
		if _, _, err := NewHandler(cfg, deps); err == nil {
			t.Fatalf("expected endpoint collision error for %#v", cfg)
		}
	}
}

// TestNormalizeConfig verifies defaults and trimming.
func TestNormalizeConfig(t *testing.T) {
	got, err := normalizeConfig(Config{
		HTTPBind:      " 127.0.0.1:9000 ",
		APIEndpoint:   "api//",
		MCPEndpoint:   "/",
		ServerName:    " notes ",
		ServerVersion: "",
	})
	if err != nil {
		t.Fatalf("normalizeConfig() error = %v", err)
	}
	want := Config{
		HTTPBind:        "127.0.0.1:9000",
		APIEndpoint:     "/api",
		MCPEndpoint:     "/mcp",
		MetricsEndpoint: "/metrics",
		ServerName:      "notes",
		ServerVersion:   "dev",
	}
	if got != want {
		t.Fatalf("normalizeConfig() = %#v, want %#v", got, want)
	}
}

// TestServeShutsDownOnCancel verifies graceful shutdown when the context ends.
func TestServeShutsDownOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, listener, Config{}, newTestDependencies(t))
	}()

	url := "http://" + listener.Addr().String() + "/healthz"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(defaultShutdownTimeout + time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
