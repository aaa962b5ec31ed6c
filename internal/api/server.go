package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GoPolymarket/trading-dashboard/internal/command"
	"github.com/GoPolymarket/trading-dashboard/internal/logs"
	"github.com/GoPolymarket/trading-dashboard/internal/probe"
	"github.com/GoPolymarket/trading-dashboard/internal/status"
)

const (
	apiPrefix       = "/api/"
	defaultDocument = "/dashboard.html"
)

// HealthChecker produces a fresh health report.
type HealthChecker interface {
	CheckHealth(ctx context.Context) probe.HealthReport
}

// StatusReader exposes the dashboard snapshot.
type StatusReader interface {
	Status(ctx context.Context) status.Report
}

// LogReader exposes the recent log slice.
type LogReader interface {
	Recent(limit int) []logs.Entry
}

// Commander accepts trading intents.
type Commander interface {
	StartTrading(ctx context.Context) command.Result
	StopTrading(ctx context.Context) command.Result
	PauseTrading(ctx context.Context) command.Result
	ToggleClaudeFeatures(ctx context.Context) command.Result
	RefreshPredictions(ctx context.Context) command.Result
}

// Deps are the components the API layer routes to.
type Deps struct {
	Health   HealthChecker
	Status   StatusReader
	Logs     LogReader
	Commands Commander
	// Static serves non-API paths; nil answers them with 404.
	Static http.Handler
	Logger *zap.Logger

	DefaultLogLimit   int
	ReadHeaderTimeout time.Duration
}

// Server is the dashboard HTTP endpoint.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *zap.Logger
	routes     []Route
	table      map[routeKey]HandlerFunc
	now        func() time.Time

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a new API server bound to addr.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.ReadHeaderTimeout <= 0 {
		deps.ReadHeaderTimeout = 5 * time.Second
	}
	s := &Server{
		deps:   deps,
		logger: deps.Logger,
		now:    time.Now,
	}
	s.routes = s.buildRoutes()
	s.table = make(map[routeKey]HandlerFunc, len(s.routes))
	for _, rt := range s.routes {
		s.table[routeKey{rt.Method, rt.Path}] = rt.Handler
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: deps.ReadHeaderTimeout,
		// Health checks may wait out the full probe timeout.
		WriteTimeout: probe.MaxTimeout + 10*time.Second,
	}
	return s
}

func (s *Server) buildRoutes() []Route {
	var routes []Route
	both := func(path string, h HandlerFunc) {
		routes = append(routes,
			Route{Method: http.MethodGet, Path: path, Handler: h},
			Route{Method: http.MethodPost, Path: path, Handler: h},
		)
	}
	both("/api/health", s.handleHealth)
	both("/api/status", s.handleStatus)
	both("/api/logs", s.handleLogs)
	both("/api/trading/start", s.command(Commander.StartTrading))
	both("/api/trading/stop", s.command(Commander.StopTrading))
	both("/api/trading/pause", s.command(Commander.PauseTrading))
	both("/api/claude/toggle", s.command(Commander.ToggleClaudeFeatures))
	both("/api/predictions/refresh", s.command(Commander.RefreshPredictions))
	return routes
}

// Routes lists every API endpoint.
func (s *Server) Routes() []Route {
	return append([]Route(nil), s.routes...)
}

// Handler returns the root handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return withRequestLog(http.HandlerFunc(s.serve), s.logger)
}

// Start binds the listener and serves in the background. A bind failure, such
// as the port already being in use, is returned to the caller.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info("api server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, apiPrefix) || r.URL.Path == "/api" {
		s.serveAPI(w, r)
		return
	}
	s.serveStatic(w, r)
}

func (s *Server) serveAPI(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header())
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h, ok := s.table[routeKey{r.Method, r.URL.Path}]
	if !ok {
		s.writeError(w, ErrNotFound)
		return
	}
	v, err := s.invoke(h, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, v)
}

// invoke runs a handler, turning a panic into an error so it never reaches
// the transport.
func (s *Server) invoke(h HandlerFunc, r *http.Request) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("api handler panicked", zap.String("path", r.URL.Path), zap.Any("panic", rec))
			v, err = nil, fmt.Errorf("internal error: %v", rec)
		}
	}()
	return h(r)
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	if s.deps.Static == nil || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		http.NotFound(w, r)
		return
	}
	if r.URL.Path == "/" {
		r2 := r.Clone(r.Context())
		r2.URL.Path = defaultDocument
		r = r2
	}
	s.deps.Static.ServeHTTP(w, r)
}

// GET /api/health: process, connectivity and uptime.
func (s *Server) handleHealth(r *http.Request) (any, error) {
	if s.deps.Health == nil {
		return nil, errors.New("health checker not configured")
	}
	return s.deps.Health.CheckHealth(r.Context()), nil
}

// GET /api/status: snapshot plus host load.
func (s *Server) handleStatus(r *http.Request) (any, error) {
	if s.deps.Status == nil {
		return nil, errors.New("status aggregator not configured")
	}
	return s.deps.Status.Status(r.Context()), nil
}

type logsResponse struct {
	Status    string       `json:"status"`
	Logs      []logs.Entry `json:"logs"`
	Timestamp time.Time    `json:"timestamp"`
}

// GET /api/logs?limit=N: most recent entries, oldest first.
func (s *Server) handleLogs(r *http.Request) (any, error) {
	if s.deps.Logs == nil {
		return nil, errors.New("log buffer not configured")
	}
	limit := s.deps.DefaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid limit %q", raw)
		}
		limit = n
	}
	entries := s.deps.Logs.Recent(limit)
	if entries == nil {
		entries = []logs.Entry{}
	}
	return logsResponse{Status: "success", Logs: entries, Timestamp: s.now()}, nil
}

// command adapts a Commander method into a route handler.
func (s *Server) command(fn func(Commander, context.Context) command.Result) HandlerFunc {
	return func(r *http.Request) (any, error) {
		if s.deps.Commands == nil {
			return nil, errors.New("command dispatcher not configured")
		}
		return fn(s.deps.Commands, r.Context()), nil
	}
}
