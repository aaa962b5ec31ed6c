package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GoPolymarket/trading-dashboard/internal/api"
	"github.com/GoPolymarket/trading-dashboard/internal/command"
	"github.com/GoPolymarket/trading-dashboard/internal/config"
	"github.com/GoPolymarket/trading-dashboard/internal/logs"
	"github.com/GoPolymarket/trading-dashboard/internal/notify"
	"github.com/GoPolymarket/trading-dashboard/internal/probe"
	"github.com/GoPolymarket/trading-dashboard/internal/snapshot"
	"github.com/GoPolymarket/trading-dashboard/internal/status"
	"github.com/GoPolymarket/trading-dashboard/internal/web"
)

// ErrAddrInUse is returned by Start when the listen port is taken.
var ErrAddrInUse = errors.New("address already in use")

// browserDelay gives the listener a moment before the browser hits it.
const browserDelay = time.Second

type App struct {
	cfg    config.Config
	logger *zap.Logger

	Logs       *logs.Buffer
	Store      *snapshot.Store
	Checker    *probe.Checker
	Dispatcher *command.Dispatcher

	server   *api.Server
	notifier *notify.Notifier
	open     web.Opener

	mu      sync.RWMutex
	running bool
}

type options struct {
	probe      probe.Probe
	controller command.Controller
	predictor  command.Predictor
	open       web.Opener
}

// Option customizes New.
type Option func(*options)

// WithProbe replaces the host probe, typically with *probe.Fixed in tests.
func WithProbe(p probe.Probe) Option { return func(o *options) { o.probe = p } }

// WithController sets the trading engine controller.
func WithController(c command.Controller) Option { return func(o *options) { o.controller = c } }

// WithPredictor replaces the configured placeholder predictor.
func WithPredictor(p command.Predictor) Option { return func(o *options) { o.predictor = p } }

// WithOpener replaces the browser launcher.
func WithOpener(open web.Opener) Option { return func(o *options) { o.open = open } }

// New wires the dashboard components from cfg. The returned App is not yet
// listening.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{open: web.OpenBrowser}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	buf := logs.NewBuffer(cfg.Logs.Capacity)
	if cfg.Logs.Seed {
		buf.Seed()
	}
	logger = logs.Tee(logger, buf, zapcore.InfoLevel)

	initial, err := snapshot.FromConfig(cfg.Snapshot, time.Now())
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	store := snapshot.NewStore(initial)

	if o.probe == nil {
		host, err := probe.NewHostProbe(cfg.Probe)
		if err != nil {
			return nil, fmt.Errorf("probe: %w", err)
		}
		o.probe = host
	}
	checker := probe.NewChecker(o.probe, cfg.Probe.Timeout, logger.Named("probe"))

	if o.predictor == nil {
		p, err := command.PredictorFromConfig(cfg.Predictions)
		if err != nil {
			return nil, fmt.Errorf("predictions: %w", err)
		}
		o.predictor = p
	}
	dispatchOpts := []command.Option{
		command.WithPredictor(o.predictor),
		command.WithLogger(logger.Named("command")),
	}
	if o.controller != nil {
		dispatchOpts = append(dispatchOpts, command.WithController(o.controller))
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		Logs:    buf,
		Store:   store,
		Checker: checker,
		open:    o.open,
	}
	if cfg.Telegram.Enabled {
		a.notifier = notify.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		dispatchOpts = append(dispatchOpts, command.WithNotifier(a.notifier))
	}
	a.Dispatcher = command.NewDispatcher(store, dispatchOpts...)

	static, err := web.Handler(cfg.API.StaticDir)
	if err != nil {
		return nil, err
	}
	a.server = api.NewServer(cfg.Addr(), api.Deps{
		Health:            checker,
		Status:            status.NewAggregator(store, checker),
		Logs:              buf,
		Commands:          a.Dispatcher,
		Static:            static,
		Logger:            logger.Named("api"),
		DefaultLogLimit:   cfg.Logs.DefaultLimit,
		ReadHeaderTimeout: cfg.API.ReadHeaderTimeout,
	})
	return a, nil
}

// Start binds the HTTP listener. A taken port is reported as ErrAddrInUse.
func (a *App) Start(ctx context.Context) error {
	if err := a.server.Start(ctx); err != nil {
		if errors.Is(err, syscall.EADDRINUSE) || strings.Contains(err.Error(), "address already in use") {
			return fmt.Errorf("%w: %s", ErrAddrInUse, a.cfg.Addr())
		}
		return err
	}
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()
	a.logger.Info("Dashboard server started", zap.String("addr", a.server.Addr().String()))
	return nil
}

// Run starts the server and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	return a.Serve(ctx)
}

// Serve opens the browser when configured, blocks until ctx is cancelled and
// then shuts the server down. Start must have succeeded.
func (a *App) Serve(ctx context.Context) error {
	if a.cfg.API.OpenBrowser && a.open != nil {
		url := a.URL()
		go func() {
			if err := <-web.OpenAfter(ctx, browserDelay, url, a.open); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("could not open browser", zap.String("url", url), zap.Error(err))
			}
		}()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.API.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	wasRunning := a.running
	a.running = false
	a.mu.Unlock()
	if !wasRunning {
		return nil
	}
	a.logger.Info("shutting down dashboard server")
	return a.server.Shutdown(ctx)
}

// IsRunning reports whether the listener is up.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Port returns the bound port, or the configured one before Start.
func (a *App) Port() int {
	if addr, ok := a.server.Addr().(*net.TCPAddr); ok && addr != nil {
		return addr.Port
	}
	return a.cfg.API.Port
}

// URL is the local dashboard address.
func (a *App) URL() string {
	return "http://localhost:" + strconv.Itoa(a.Port())
}

// Routes exposes the API route table for the banner.
func (a *App) Routes() []api.Route {
	return a.server.Routes()
}
