package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/GoPolymarket/trading-dashboard/internal/command"
	"github.com/GoPolymarket/trading-dashboard/internal/config"
	"github.com/GoPolymarket/trading-dashboard/internal/logs"
	"github.com/GoPolymarket/trading-dashboard/internal/probe"
	"github.com/GoPolymarket/trading-dashboard/internal/snapshot"
	"github.com/GoPolymarket/trading-dashboard/internal/status"
)

type mockHealth struct {
	report probe.HealthReport
	panic  bool
}

func (m *mockHealth) CheckHealth(context.Context) probe.HealthReport {
	if m.panic {
		panic("probe exploded")
	}
	return m.report
}

type mockLogs struct {
	entries   []logs.Entry
	lastLimit int
}

func (m *mockLogs) Recent(limit int) []logs.Entry {
	m.lastLimit = limit
	return m.entries
}

// newTestServer wires the real store, aggregator and dispatcher over canned
// probe values.
func newTestServer(t *testing.T) (*Server, *snapshot.Store) {
	t.Helper()
	snap, err := snapshot.FromConfig(config.Default().Snapshot, time.Now())
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	store := snapshot.NewStore(snap)
	fixed := &probe.Fixed{Running: true, Reachable: true, UptimeSeconds: 3600, Load: probe.LoadAverage{0.5, 0.4, 0.3}}
	checker := probe.NewChecker(fixed, time.Second, nil)

	buf := logs.NewBuffer(10)
	buf.Seed()

	s := NewServer("127.0.0.1:0", Deps{
		Health:          checker,
		Status:          status.NewAggregator(store, checker),
		Logs:            buf,
		Commands:        command.NewDispatcher(store),
		Static:          http.FileServer(http.FS(fstest.MapFS{"dashboard.html": {Data: []byte("<html>dashboard</html>")}})),
		DefaultLogLimit: 50,
	})
	return s, store
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var body map[string]any
	if strings.HasPrefix(path, "/api") && method != http.MethodOptions {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, body
}

func TestEveryRouteAnswersWithEnvelope(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	for _, rt := range s.Routes() {
		w, body := do(t, h, rt.Method, rt.Path)
		if w.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d", rt.Method, rt.Path, w.Code)
		}
		if st, ok := body["status"].(string); !ok || st == "" {
			t.Fatalf("%s %s: missing status in %v", rt.Method, rt.Path, body)
		}
		if _, ok := body["timestamp"]; !ok {
			t.Fatalf("%s %s: missing timestamp in %v", rt.Method, rt.Path, body)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("%s %s: expected CORS origin *, got %q", rt.Method, rt.Path, got)
		}
		if got := w.Header().Get("Content-Type"); got != "application/json" {
			t.Fatalf("%s %s: expected JSON content type, got %q", rt.Method, rt.Path, got)
		}
	}
}

func TestRoutesCoverGetAndPost(t *testing.T) {
	s, _ := newTestServer(t)
	seen := map[string]int{}
	for _, rt := range s.Routes() {
		seen[rt.Path]++
	}
	for _, path := range []string{
		"/api/health", "/api/status", "/api/logs",
		"/api/trading/start", "/api/trading/stop", "/api/trading/pause",
		"/api/claude/toggle", "/api/predictions/refresh",
	} {
		if seen[path] != 2 {
			t.Fatalf("expected GET and POST for %s, got %d routes", path, seen[path])
		}
	}
}

func TestUnknownAPIPathReturnsNotFoundEnvelope(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	for _, path := range []string{"/api", "/api/", "/api/nope", "/api/trading", "/api/trading/start/now", "/api/status/../x"} {
		w, body := do(t, h, http.MethodGet, path)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if body["status"] != "error" || body["error"] != ErrNotFound.Error() {
			t.Fatalf("%s: unexpected body %v", path, body)
		}
		if body["timestamp"] == nil {
			t.Fatalf("%s: missing timestamp", path)
		}
	}
}

func TestUnsupportedMethodReturnsNotFoundEnvelope(t *testing.T) {
	s, _ := newTestServer(t)
	_, body := do(t, s.Handler(), http.MethodDelete, "/api/status")
	if body["error"] != ErrNotFound.Error() {
		t.Fatalf("expected not-found envelope, got %v", body)
	}
}

func TestOptionsPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	w, _ := do(t, s.Handler(), http.MethodOptions, "/api/trading/start")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("expected allow-methods header")
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", w.Body.String())
	}
}

func TestStatusEndToEnd(t *testing.T) {
	s, _ := newTestServer(t)
	_, body := do(t, s.Handler(), http.MethodGet, "/api/status")

	if body["status"] != "success" {
		t.Fatalf("expected success, got %v", body["status"])
	}
	if body["trading_mode"] != "paper" {
		t.Fatalf("expected paper mode, got %v", body["trading_mode"])
	}
	if body["active_positions"] != float64(8) {
		t.Fatalf("expected 8 positions, got %v", body["active_positions"])
	}
	if body["portfolio_value"] != 127543.21 {
		t.Fatalf("unexpected portfolio value %v", body["portfolio_value"])
	}
	load, ok := body["system_load"].([]any)
	if !ok || len(load) != 3 {
		t.Fatalf("expected three load figures, got %v", body["system_load"])
	}
}

func TestStartThenStopChangesState(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()

	_, start := do(t, h, http.MethodPost, "/api/trading/start")
	if start["status"] != "success" || start["message"] != "Trading system started" {
		t.Fatalf("unexpected start body %v", start)
	}
	if store.Get().EngineState != snapshot.EngineRunning {
		t.Fatalf("expected running, got %s", store.Get().EngineState)
	}

	_, stop := do(t, h, http.MethodPost, "/api/trading/stop")
	if stop["message"] != "Trading system stopped" {
		t.Fatalf("unexpected stop body %v", stop)
	}
	if start["message"] == stop["message"] {
		t.Fatal("start and stop messages must differ")
	}

	_, st := do(t, h, http.MethodGet, "/api/status")
	if st["engine_state"] != "stopped" {
		t.Fatalf("expected stopped, got %v", st["engine_state"])
	}
}

func TestToggleAndRefresh(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	_, toggle := do(t, h, http.MethodPost, "/api/claude/toggle")
	if toggle["claude_enabled"] != false {
		t.Fatalf("expected claude disabled after toggle, got %v", toggle["claude_enabled"])
	}

	_, refresh := do(t, h, http.MethodGet, "/api/predictions/refresh")
	if refresh["new_confidence"] != 87.1 || refresh["symbols_updated"] != float64(12) {
		t.Fatalf("unexpected refresh body %v", refresh)
	}

	_, st := do(t, h, http.MethodGet, "/api/status")
	if st["ai_confidence"] != 87.1 {
		t.Fatalf("expected refreshed confidence, got %v", st["ai_confidence"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	_, body := do(t, s.Handler(), http.MethodGet, "/api/health")
	if body["status"] != probe.StatusHealthy {
		t.Fatalf("expected healthy, got %v", body["status"])
	}
	if body["process_running"] != true || body["network_reachable"] != true {
		t.Fatalf("unexpected health body %v", body)
	}
	if body["uptime_seconds"] != float64(3600) {
		t.Fatalf("expected uptime 3600, got %v", body["uptime_seconds"])
	}
}

func TestHandlerPanicBecomesErrorEnvelope(t *testing.T) {
	s := NewServer(":0", Deps{Health: &mockHealth{panic: true}})
	w, body := do(t, s.Handler(), http.MethodGet, "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["status"] != "error" || !strings.Contains(body["error"].(string), "probe exploded") {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestMissingDependencyIsErrorEnvelope(t *testing.T) {
	s := NewServer(":0", Deps{})
	for _, path := range []string{"/api/health", "/api/status", "/api/logs", "/api/trading/start"} {
		_, body := do(t, s.Handler(), http.MethodGet, path)
		if body["status"] != "error" || body["timestamp"] == nil {
			t.Fatalf("%s: expected error envelope, got %v", path, body)
		}
	}
}

func TestLogsLimit(t *testing.T) {
	ml := &mockLogs{entries: []logs.Entry{{Level: logs.LevelInfo, Message: "a"}}}
	s := NewServer(":0", Deps{Logs: ml, DefaultLogLimit: 50})
	h := s.Handler()

	_, body := do(t, h, http.MethodGet, "/api/logs")
	if ml.lastLimit != 50 {
		t.Fatalf("expected default limit 50, got %d", ml.lastLimit)
	}
	if body["status"] != "success" {
		t.Fatalf("unexpected body %v", body)
	}
	if entries, ok := body["logs"].([]any); !ok || len(entries) != 1 {
		t.Fatalf("expected one entry, got %v", body["logs"])
	}

	do(t, h, http.MethodGet, "/api/logs?limit=5")
	if ml.lastLimit != 5 {
		t.Fatalf("expected limit 5, got %d", ml.lastLimit)
	}

	for _, bad := range []string{"abc", "-1"} {
		_, body = do(t, h, http.MethodGet, "/api/logs?limit="+bad)
		if body["status"] != "error" {
			t.Fatalf("limit=%s: expected error, got %v", bad, body)
		}
	}
}

func TestLogsNeverNull(t *testing.T) {
	s := NewServer(":0", Deps{Logs: &mockLogs{}})
	w, _ := do(t, s.Handler(), http.MethodGet, "/api/logs")
	if !strings.Contains(w.Body.String(), `"logs":[]`) {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
}

func TestSeededLogsInOrder(t *testing.T) {
	s, _ := newTestServer(t)
	_, body := do(t, s.Handler(), http.MethodGet, "/api/logs")
	entries := body["logs"].([]any)
	if len(entries) != 3 {
		t.Fatalf("expected 3 seed entries, got %d", len(entries))
	}
	first := entries[0].(map[string]any)
	if first["message"] != "CryptoClaude system running normally" {
		t.Fatalf("expected oldest seed entry first, got %v", first["message"])
	}
	if entries[1].(map[string]any)["level"] != logs.LevelSuccess {
		t.Fatalf("expected second seed entry SUCCESS, got %v", entries[1])
	}
}

func TestStaticRootServesDashboard(t *testing.T) {
	s, _ := newTestServer(t)
	w, _ := do(t, s.Handler(), http.MethodGet, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "dashboard") {
		t.Fatalf("expected dashboard document, got %q", w.Body.String())
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("static responses should not carry CORS headers")
	}
}

func TestStaticPostIsNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	w, _ := do(t, s.Handler(), http.MethodPost, "/dashboard.html")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStaticMissingFile(t *testing.T) {
	s, _ := newTestServer(t)
	w, _ := do(t, s.Handler(), http.MethodGet, "/missing.js")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStartAndShutdown(t *testing.T) {
	s, _ := newTestServer(t)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(context.Background())

	resp, err := http.Get("http://" + s.Addr().String() + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	clash := NewServer(s.Addr().String(), Deps{})
	if err := clash.Start(context.Background()); err == nil {
		clash.Shutdown(context.Background())
		t.Fatal("expected bind error on occupied port")
	}
}
