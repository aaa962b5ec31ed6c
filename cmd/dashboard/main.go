package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoPolymarket/trading-dashboard/internal/app"
	"github.com/GoPolymarket/trading-dashboard/internal/config"
)

type flags struct {
	configPath string
	port       int
	noOpen     bool
	logLevel   string
	mode       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "dashboard",
		Short:         "Serve the trading dashboard and its control API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "config error: %v\n", err)
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	// RunE reports its own failures; flag parsing errors are printed here
	// since SilenceErrors hides them from cobra.
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		fmt.Fprintf(c.ErrOrStderr(), "Error: %v\n\n%s", err, c.UsageString())
		return err
	})
	cmd.Flags().StringVar(&f.configPath, "config", "config.yaml", "path to config file (missing file uses defaults)")
	cmd.Flags().IntVar(&f.port, "port", 8080, "port to listen on")
	cmd.Flags().BoolVar(&f.noOpen, "no-open", false, "do not open the dashboard in a browser")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	cmd.Flags().StringVar(&f.mode, "mode", "", "override trading mode: paper|live")
	return cmd
}

// loadConfig layers defaults, the config file, the environment and flags, in
// that order, then validates the result.
func loadConfig(cmd *cobra.Command, f flags) (config.Config, error) {
	cfg, err := config.LoadFile(f.configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%s: %w", f.configPath, err)
		}
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	if cmd.Flags().Changed("port") {
		cfg.API.Port = f.port
	}
	if f.noOpen {
		cfg.API.OpenBrowser = false
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = strings.ToLower(f.logLevel)
	}
	if v := strings.ToLower(strings.TrimSpace(f.mode)); v != "" {
		cfg.Snapshot.TradingMode = v
	}
	return cfg, cfg.Validate()
}

func run(parent context.Context, cfg config.Config) error {
	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("dashboard setup failed", zap.Error(err))
		return err
	}

	if err := a.Start(ctx); err != nil {
		if errors.Is(err, app.ErrAddrInUse) {
			fmt.Fprintf(os.Stderr, "Port %d is already in use. Try another port: dashboard --port %d\n", cfg.API.Port, cfg.API.Port+1)
		} else {
			fmt.Fprintf(os.Stderr, "could not start dashboard: %v\n", err)
		}
		return err
	}
	fmt.Print(a.Banner(ctx))

	return a.Serve(ctx)
}
