package arbitrage

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

// ArbExecutor executes a detected opportunity. Satisfied by
// executor.Coordinator.
type ArbExecutor interface {
	ExecuteArbitrage(ctx context.Context, opp domain.ArbitrageOpportunity) (domain.ArbitrageResult, error)
}

// Alerter mirrors the executor's notification hook.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ScannerConfig configures the periodic scan loop.
type ScannerConfig struct {
	Tokens       []string
	MinProfitBps float64
	Interval     time.Duration
	// AutoExecute runs the most profitable opportunity of each scan when it
	// clears ExecuteThresholdBps (defaults to MinProfitBps when zero).
	AutoExecute         bool
	ExecuteThresholdBps float64
}

// Scanner runs the detector on a fixed interval. The loop is owned by the
// service lifecycle: it stops when its context is cancelled, and overlapping
// runs are prevented (a scan still in flight causes the tick to be skipped).
type Scanner struct {
	det     *Detector
	exec    ArbExecutor // optional
	alerter Alerter     // optional
	cfg     ScannerConfig
	logger  *slog.Logger

	running sync.Mutex // held while one scan is in flight
}

// NewScanner creates a Scanner. exec and alerter may be nil; without an
// executor the scanner only records and alerts.
func NewScanner(det *Detector, exec ArbExecutor, alerter Alerter, cfg ScannerConfig, logger *slog.Logger) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ExecuteThresholdBps <= 0 {
		cfg.ExecuteThresholdBps = cfg.MinProfitBps
	}
	return &Scanner{
		det:     det,
		exec:    exec,
		alerter: alerter,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "arb_scanner")),
	}
}

// Run blocks until ctx is cancelled, scanning every Interval. Returns
// ctx.Err() on cancellation so errgroup peers shut down together.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Info("arbitrage scanner started",
		slog.Int("tokens", len(s.cfg.Tokens)),
		slog.Float64("min_profit_bps", s.cfg.MinProfitBps),
		slog.Duration("interval", s.cfg.Interval),
		slog.Bool("auto_execute", s.cfg.AutoExecute),
	)
	defer s.logger.Info("arbitrage scanner stopped")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.running.TryLock() {
				s.logger.Warn("previous scan still running, skipping tick")
				continue
			}
			s.scanOnce(ctx)
			s.running.Unlock()
		}
	}
}

// scanOnce runs one detection pass and optionally executes the top result.
func (s *Scanner) scanOnce(ctx context.Context) {
	start := time.Now()
	opps := s.det.FindOpportunities(ctx, s.cfg.Tokens, s.cfg.MinProfitBps)
	if len(opps) == 0 {
		return
	}

	top := opps[0]
	s.logger.Info("scan complete",
		slog.Int("opportunities", len(opps)),
		slog.Float64("top_profit_bps", top.ProfitBps),
		slog.Duration("elapsed", time.Since(start)),
	)
	s.notify(ctx, "arb_detected", "Arbitrage detected",
		top.BaseMint+"/"+top.QuoteMint+" buy "+top.BuyVenue+" sell "+top.SellVenue)

	if !s.cfg.AutoExecute || s.exec == nil || top.ProfitBps < s.cfg.ExecuteThresholdBps {
		return
	}

	result, err := s.exec.ExecuteArbitrage(ctx, top)
	if err != nil {
		var legErr *domain.ArbitrageLegError
		if errors.As(err, &legErr) {
			// Coordinator already raised the critical alert.
			return
		}
		s.logger.Warn("auto-execute failed",
			slog.String("opportunity_id", top.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.notify(ctx, "arb_executed", "Arbitrage executed",
		top.BaseMint+"/"+top.QuoteMint+" profit "+formatProfit(result.Profit))
}

func (s *Scanner) notify(ctx context.Context, event, title, message string) {
	if s.alerter == nil {
		return
	}
	if err := s.alerter.Notify(ctx, event, title, message); err != nil {
		s.logger.Debug("notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func formatProfit(p float64) string {
	return strconv.FormatFloat(p, 'f', 6, 64)
}
