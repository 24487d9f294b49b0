package arbitrage

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
	"github.com/InsideOutbtc/dexrouter/internal/venue/venuetest"
)

type fakeExecutor struct {
	mu       sync.Mutex
	executed []domain.ArbitrageOpportunity
	err      error
}

func (f *fakeExecutor) ExecuteArbitrage(_ context.Context, opp domain.ArbitrageOpportunity) (domain.ArbitrageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, opp)
	if f.err != nil {
		return domain.ArbitrageResult{}, f.err
	}
	return domain.ArbitrageResult{OpportunityID: opp.ID, Success: true}, nil
}

func (f *fakeExecutor) Executed() []domain.ArbitrageOpportunity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ArbitrageOpportunity(nil), f.executed...)
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func TestScanOnceNotifiesAndExecutes(t *testing.T) {
	det := newDetector(nil,
		&venuetest.Adapter{VenueName: "orca", Price: 100},
		&venuetest.Adapter{VenueName: "jupiter", Price: 101},
	)
	exec := &fakeExecutor{}
	notifier := &fakeNotifier{}
	s := NewScanner(det, exec, notifier, ScannerConfig{
		Tokens:       []string{"SOL", "USDC"},
		MinProfitBps: 50,
		AutoExecute:  true,
	}, slog.New(slog.DiscardHandler))

	s.scanOnce(context.Background())

	executed := exec.Executed()
	require.Len(t, executed, 1)
	assert.Equal(t, "orca", executed[0].BuyVenue)
	assert.Equal(t, []string{"arb_detected", "arb_executed"}, notifier.Events())
}

func TestScanOnceRespectsExecuteThreshold(t *testing.T) {
	// 100 bps spread clears detection at 50 but not execution at 500.
	det := newDetector(nil,
		&venuetest.Adapter{VenueName: "orca", Price: 100},
		&venuetest.Adapter{VenueName: "jupiter", Price: 101},
	)
	exec := &fakeExecutor{}
	s := NewScanner(det, exec, nil, ScannerConfig{
		Tokens:              []string{"SOL", "USDC"},
		MinProfitBps:        50,
		AutoExecute:         true,
		ExecuteThresholdBps: 500,
	}, slog.New(slog.DiscardHandler))

	s.scanOnce(context.Background())
	assert.Empty(t, exec.Executed())
}

func TestScanOnceWithoutExecutor(t *testing.T) {
	det := newDetector(nil,
		&venuetest.Adapter{VenueName: "orca", Price: 100},
		&venuetest.Adapter{VenueName: "jupiter", Price: 101},
	)
	notifier := &fakeNotifier{}
	s := NewScanner(det, nil, notifier, ScannerConfig{
		Tokens:       []string{"SOL", "USDC"},
		MinProfitBps: 50,
		AutoExecute:  true,
	}, slog.New(slog.DiscardHandler))

	s.scanOnce(context.Background())
	assert.Equal(t, []string{"arb_detected"}, notifier.Events())
}

func TestRunStopsOnCancel(t *testing.T) {
	det := newDetector(nil, &venuetest.Adapter{VenueName: "orca", Price: 100})
	s := NewScanner(det, nil, nil, ScannerConfig{
		Tokens:   []string{"SOL", "USDC"},
		Interval: 10 * time.Millisecond,
	}, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop after cancel")
	}
}
