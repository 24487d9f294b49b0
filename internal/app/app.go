// Package app provides the top-level application lifecycle for the DEX
// router. It wires together venue adapters, caches, journals, the routing
// service, and notifications, and runs the configured operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/InsideOutbtc/dexrouter/internal/config"
)

// SwapArgs carries the command-line swap request consumed by the one-shot
// modes (quote, swap, split).
type SwapArgs struct {
	InputMint  string
	OutputMint string
	Amount     float64
}

// App is the root application object. It owns the configuration, logger,
// the one-shot swap arguments, and a list of cleanup functions called in
// reverse order on shutdown.
type App struct {
	cfg     *config.Config
	args    SwapArgs
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration, swap arguments, and
// logger.
func New(cfg *config.Config, args SwapArgs, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		args:   args,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, selects the
// operating mode, and blocks until the mode completes or the context is
// cancelled. On return the caller should invoke Close.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "quote":
		return a.QuoteMode(ctx, deps)
	case "swap":
		return a.SwapMode(ctx, deps)
	case "split":
		return a.SplitMode(ctx, deps)
	case "scan":
		return a.ScanMode(ctx, deps)
	case "full":
		return a.FullMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
