// Package executor drives swap execution against venue adapters: single
// optimal swaps, sequential split plans, and two-leg arbitrage trades.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
	"github.com/InsideOutbtc/dexrouter/internal/metrics"
)

// Alerter receives critical execution events. Implemented by notify.Notifier;
// nil-safe wrappers are applied internally so the coordinator works without
// one.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Coordinator executes trades through venue adapters and records outcomes in
// the metrics tracker. It is the only component that calls ExecuteSwap.
type Coordinator struct {
	adapters map[string]domain.VenueAdapter
	tracker  *metrics.Tracker
	alerter  Alerter
	journal  domain.TradeJournal // optional, write-behind
	prices   domain.PriceCache   // optional, feed-refreshed marks
	timeout  time.Duration       // overall deadline per execute operation
	logger   *slog.Logger
}

// Config configures a Coordinator. Alerter, Journal, and Prices may be nil.
type Config struct {
	Adapters    []domain.VenueAdapter
	Tracker     *metrics.Tracker
	Alerter     Alerter
	Journal     domain.TradeJournal
	Prices      domain.PriceCache
	ExecTimeout time.Duration
	Logger      *slog.Logger
}

// New creates a Coordinator over the given adapters.
func New(cfg Config) *Coordinator {
	byName := make(map[string]domain.VenueAdapter, len(cfg.Adapters))
	for _, a := range cfg.Adapters {
		byName[a.Name()] = a
	}
	timeout := cfg.ExecTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Coordinator{
		adapters: byName,
		tracker:  cfg.Tracker,
		alerter:  cfg.Alerter,
		journal:  cfg.Journal,
		prices:   cfg.Prices,
		timeout:  timeout,
		logger:   cfg.Logger.With(slog.String("component", "execution_coordinator")),
	}
}

// ExecuteQuote executes a previously selected quote on its venue and records
// the resulting trade. The quote must be valid.
func (c *Coordinator) ExecuteQuote(ctx context.Context, q domain.Quote, slippageBps int) (domain.Trade, error) {
	if !q.Valid {
		return domain.Trade{}, domain.ErrInvalidQuote
	}
	adapter, ok := c.adapters[q.Venue]
	if !ok {
		return domain.Trade{}, fmt.Errorf("executor: venue %q: %w", q.Venue, domain.ErrVenueUnknown)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	trade, err := adapter.ExecuteSwap(ctx, q.InputMint, q.OutputMint, q.InAmount, q.MinReceived, slippageBps)
	if err != nil {
		c.logger.Error("swap execution failed",
			slog.String("venue", q.Venue),
			slog.Float64("amount", q.InAmount),
			slog.String("error", err.Error()),
		)
		return domain.Trade{}, fmt.Errorf("executor: %s swap: %w", q.Venue, err)
	}
	if trade.LatencyMs == 0 {
		trade.LatencyMs = time.Since(start).Milliseconds()
	}
	c.record(ctx, trade)

	c.logger.Info("swap executed",
		slog.String("venue", trade.Venue),
		slog.String("signature", trade.Signature),
		slog.Float64("in", trade.InAmount),
		slog.Float64("out", trade.OutAmount),
		slog.Int64("latency_ms", trade.LatencyMs),
	)
	return trade, nil
}

// ExecuteSplit runs a plan's legs sequentially, each leg's amount computed as
// its percentage of the plan's total. Sequential execution avoids cross-leg
// nonce races on a single wallet and keeps slippage attribution per leg. A
// failed leg aborts the remaining legs; completed legs are NOT rolled back
// and are returned inside a *domain.PartialExecutionError.
func (c *Coordinator) ExecuteSplit(ctx context.Context, plan domain.ExecutionPlan, slippageBps int) ([]domain.Trade, error) {
	if sum := plan.PercentSum(); sum != 100 {
		return nil, fmt.Errorf("executor: plan percentages sum to %d, want 100", sum)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	completed := make([]domain.Trade, 0, len(plan.Legs))
	for i, leg := range plan.Legs {
		adapter, ok := c.adapters[leg.Venue]
		if !ok {
			return completed, &domain.PartialExecutionError{
				Completed: completed,
				FailedLeg: i,
				Venue:     leg.Venue,
				Err:       domain.ErrVenueUnknown,
			}
		}

		legAmount := plan.TotalAmount * float64(leg.Percent) / 100
		trade, err := adapter.ExecuteSwap(ctx, plan.InputMint, plan.OutputMint, legAmount, 0, slippageBps)
		if err != nil || !trade.Success {
			if err == nil {
				err = fmt.Errorf("venue reported unsuccessful trade %s", trade.Signature)
			}
			perr := &domain.PartialExecutionError{
				Completed: completed,
				FailedLeg: i,
				Venue:     leg.Venue,
				Err:       err,
			}
			c.logger.Error("split execution aborted",
				slog.Int("failed_leg", i),
				slog.String("venue", leg.Venue),
				slog.Int("completed_legs", len(completed)),
				slog.String("error", err.Error()),
			)
			c.alert(ctx, "split_partial", "Split execution aborted", perr.Error())
			return completed, perr
		}

		c.record(ctx, trade)
		completed = append(completed, trade)
	}

	c.logger.Info("split plan executed",
		slog.Int("legs", len(completed)),
		slog.Float64("total_amount", plan.TotalAmount),
	)
	return completed, nil
}

// ExecuteArbitrage executes a two-leg arbitrage trade. The buy leg spends
// MaxAmount*BuyPrice of the quote token on the buy venue, where the base
// token trades lower, acquiring roughly MaxAmount of base; the sell leg
// sells the buy leg's realized base output (not the original probe amount)
// on the sell venue, where it trades higher. Profit is denominated in the
// quote token. The legs are dependent and therefore sequential.
//
// A sell-leg failure after a successful buy leaves an open unhedged position:
// it returns *domain.ArbitrageLegError and raises a critical alert. It is the
// operator's call how to unwind; no automatic retry is attempted.
func (c *Coordinator) ExecuteArbitrage(ctx context.Context, opp domain.ArbitrageOpportunity) (domain.ArbitrageResult, error) {
	if !opp.Valid {
		return domain.ArbitrageResult{}, domain.ErrStaleOpportunity
	}
	buyAdapter, ok := c.adapters[opp.BuyVenue]
	if !ok {
		return domain.ArbitrageResult{}, fmt.Errorf("executor: buy venue %q: %w", opp.BuyVenue, domain.ErrVenueUnknown)
	}
	sellAdapter, ok := c.adapters[opp.SellVenue]
	if !ok {
		return domain.ArbitrageResult{}, fmt.Errorf("executor: sell venue %q: %w", opp.SellVenue, domain.ErrVenueUnknown)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.checkFreshPrices(ctx, opp); err != nil {
		return domain.ArbitrageResult{}, err
	}

	result := domain.ArbitrageResult{OpportunityID: opp.ID}

	// Buy leg: quote -> base on the buy venue, where base is cheaper.
	quoteBudget := opp.MaxAmount * opp.BuyPrice
	buyTrade, err := buyAdapter.ExecuteSwap(ctx, opp.QuoteMint, opp.BaseMint, quoteBudget, 0, 0)
	if err != nil || !buyTrade.Success {
		if err == nil {
			err = fmt.Errorf("buy leg reported unsuccessful trade %s", buyTrade.Signature)
		}
		return result, fmt.Errorf("executor: arbitrage buy leg on %s: %w", opp.BuyVenue, err)
	}
	c.record(ctx, buyTrade)
	result.BuyTrade = buyTrade

	// Sell leg: sell the realized base output where it trades higher.
	sellTrade, err := sellAdapter.ExecuteSwap(ctx, opp.BaseMint, opp.QuoteMint, buyTrade.OutAmount, 0, 0)
	if err != nil || !sellTrade.Success {
		if err == nil {
			err = fmt.Errorf("sell leg reported unsuccessful trade %s", sellTrade.Signature)
		}
		legErr := &domain.ArbitrageLegError{
			OpportunityID: opp.ID,
			BuyTrade:      buyTrade,
			Err:           err,
		}
		c.logger.Error("arbitrage sell leg failed, position unhedged",
			slog.String("opportunity_id", opp.ID),
			slog.String("buy_venue", opp.BuyVenue),
			slog.String("sell_venue", opp.SellVenue),
			slog.Float64("unhedged_amount", buyTrade.OutAmount),
			slog.String("error", err.Error()),
		)
		c.alert(ctx, "arb_leg_failure", "UNHEDGED: arbitrage sell leg failed", legErr.Error())
		return result, legErr
	}
	c.record(ctx, sellTrade)
	result.SellTrade = sellTrade

	result.Profit = sellTrade.OutAmount - buyTrade.InAmount
	result.Success = result.Profit > 0 && sellTrade.Success

	c.logger.Info("arbitrage executed",
		slog.String("opportunity_id", opp.ID),
		slog.String("buy_venue", opp.BuyVenue),
		slog.String("sell_venue", opp.SellVenue),
		slog.Float64("profit", result.Profit),
		slog.Bool("success", result.Success),
	)
	return result, nil
}

// checkFreshPrices re-validates a detected spread against the feed-refreshed
// cache marks before any funds move. The cache is advisory: a missing mark,
// a lookup failure, or no cache at all keeps the opportunity. Only marks
// showing the spread has collapsed reject it.
func (c *Coordinator) checkFreshPrices(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	if c.prices == nil {
		return nil
	}
	pair := opp.BaseMint + "/" + opp.QuoteMint
	marks, err := c.prices.GetVenuePrices(ctx, []string{opp.BuyVenue, opp.SellVenue}, pair)
	if err != nil {
		c.logger.Debug("price cache lookup failed",
			slog.String("pair", pair),
			slog.String("error", err.Error()),
		)
		return nil
	}
	buy, okBuy := marks[opp.BuyVenue]
	sell, okSell := marks[opp.SellVenue]
	if !okBuy || !okSell || buy <= 0 {
		return nil
	}
	if sell <= buy {
		c.logger.Warn("arbitrage spread gone per fresh marks",
			slog.String("opportunity_id", opp.ID),
			slog.String("pair", pair),
			slog.Float64("buy_mark", buy),
			slog.Float64("sell_mark", sell),
		)
		return fmt.Errorf("executor: %s->%s spread collapsed: %w", opp.BuyVenue, opp.SellVenue, domain.ErrStaleOpportunity)
	}
	return nil
}

// record updates in-memory metrics synchronously and journals the trade in a
// best-effort fashion. Journal failures are logged, never propagated.
func (c *Coordinator) record(ctx context.Context, trade domain.Trade) {
	if c.tracker != nil {
		c.tracker.RecordTrade(trade)
	}
	if c.journal != nil {
		if err := c.journal.Insert(ctx, trade); err != nil {
			c.logger.Warn("trade journal insert failed",
				slog.String("signature", trade.Signature),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (c *Coordinator) alert(ctx context.Context, event, title, message string) {
	if c.alerter == nil {
		return
	}
	if err := c.alerter.Notify(ctx, event, title, message); err != nil {
		c.logger.Warn("alert dispatch failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
