package raydium

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
	"github.com/InsideOutbtc/dexrouter/internal/venue/solana"
)

// VenueName identifies this adapter in quotes, trades, and metrics.
const VenueName = "raydium"

const defaultSlippageBps = 50

// Config configures the Raydium adapter.
type Config struct {
	BaseURL       string
	RPCURL        string
	PrivateKeyHex string
	SlippageBps   int
	Decimals      solana.TokenMap
}

// Adapter implements domain.VenueAdapter on the Raydium trade API.
type Adapter struct {
	api         *client
	rpc         *solana.Client
	wallet      *solana.Wallet
	slippageBps int
	decimals    solana.TokenMap
}

var _ domain.VenueAdapter = (*Adapter)(nil)

// New builds the adapter. Execution requires both RPCURL and PrivateKeyHex.
func New(cfg Config) (*Adapter, error) {
	a := &Adapter{
		api:         newClient(cfg.BaseURL),
		slippageBps: cfg.SlippageBps,
		decimals:    cfg.Decimals,
	}
	if a.slippageBps <= 0 {
		a.slippageBps = defaultSlippageBps
	}
	if cfg.RPCURL != "" {
		a.rpc = solana.NewClient(cfg.RPCURL)
	}
	if cfg.PrivateKeyHex != "" {
		wallet, err := solana.NewWalletFromHex(cfg.PrivateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("raydium: %w", err)
		}
		a.wallet = wallet
	}
	return a, nil
}

func (a *Adapter) Name() string { return VenueName }

// Initialize verifies RPC connectivity when execution is configured.
func (a *Adapter) Initialize(ctx context.Context) error {
	if a.rpc == nil {
		return nil
	}
	if err := a.rpc.GetHealth(ctx); err != nil {
		return fmt.Errorf("raydium: %w: %v", domain.ErrAdapterUnavailable, err)
	}
	return nil
}

// GetSwapQuote implements domain.VenueAdapter.
func (a *Adapter) GetSwapQuote(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps int) (domain.Quote, error) {
	if slippageBps <= 0 {
		slippageBps = a.slippageBps
	}
	inDecimals := a.decimals.DecimalsFor(inputMint)
	outDecimals := a.decimals.DecimalsFor(outputMint)

	resp, err := a.api.computeSwap(ctx, inputMint, outputMint, solana.ToRaw(amount, inDecimals), slippageBps)
	if err != nil {
		return domain.Quote{}, err
	}
	return a.toDomainQuote(resp, inDecimals, outDecimals)
}

// ExecuteSwap implements domain.VenueAdapter.
func (a *Adapter) ExecuteSwap(ctx context.Context, inputMint, outputMint string, amount, minOut float64, slippageBps int) (domain.Trade, error) {
	if a.wallet == nil || a.rpc == nil {
		return domain.Trade{}, fmt.Errorf("raydium: execution not configured (missing wallet or RPC)")
	}
	if slippageBps <= 0 {
		slippageBps = a.slippageBps
	}
	inDecimals := a.decimals.DecimalsFor(inputMint)
	outDecimals := a.decimals.DecimalsFor(outputMint)

	resp, err := a.api.computeSwap(ctx, inputMint, outputMint, solana.ToRaw(amount, inDecimals), slippageBps)
	if err != nil {
		return domain.Trade{}, err
	}

	quote, err := a.toDomainQuote(resp, inDecimals, outDecimals)
	if err != nil {
		return domain.Trade{}, err
	}
	if minOut > 0 && quote.OutAmount < minOut {
		return domain.Trade{}, fmt.Errorf("raydium: quote output %.9f below minimum %.9f", quote.OutAmount, minOut)
	}

	unsignedTx, err := a.api.buildSwapTransaction(ctx, resp, a.wallet.PublicKey())
	if err != nil {
		return domain.Trade{}, err
	}
	signedTx, err := a.wallet.SignTransactionBase64(unsignedTx)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("raydium: sign transaction: %w", err)
	}

	signature, err := a.rpc.SendTransaction(ctx, signedTx)
	if err != nil {
		return domain.Trade{}, err
	}
	if err := a.rpc.ConfirmTransaction(ctx, signature); err != nil {
		return domain.Trade{}, err
	}

	return domain.Trade{
		Venue:          VenueName,
		Signature:      signature,
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       quote.InAmount,
		OutAmount:      quote.OutAmount,
		FeeAmount:      quote.FeeAmount,
		PriceImpactPct: quote.PriceImpactPct,
		Success:        true,
		ExecutedAt:     time.Now(),
	}, nil
}

func (a *Adapter) toDomainQuote(resp *computeResponse, inDecimals, outDecimals int) (domain.Quote, error) {
	inRaw, err := solana.ParseRaw(resp.Data.InputAmount)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("raydium: parse inputAmount %q: %w", resp.Data.InputAmount, err)
	}
	outRaw, err := solana.ParseRaw(resp.Data.OutputAmount)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("raydium: parse outputAmount %q: %w", resp.Data.OutputAmount, err)
	}
	minRaw, err := solana.ParseRaw(resp.Data.OtherAmountThreshold)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("raydium: parse otherAmountThreshold %q: %w", resp.Data.OtherAmountThreshold, err)
	}

	inAmount := solana.FromRaw(inRaw, inDecimals)
	outAmount := solana.FromRaw(outRaw, outDecimals)
	if inAmount <= 0 || outAmount <= 0 {
		return domain.Quote{}, fmt.Errorf("raydium: %w: zero amount in quote", domain.ErrInvalidQuote)
	}
	price := outAmount / inAmount

	// Route legs charge fees in the leg's input mint. Only fees in the
	// swap's own mints are normalised into input units.
	var fee float64
	for _, leg := range resp.Data.RoutePlan {
		feeRaw, err := solana.ParseRaw(leg.FeeAmount)
		if err != nil {
			continue
		}
		switch leg.FeeMint {
		case resp.Data.InputMint:
			fee += solana.FromRaw(feeRaw, inDecimals)
		case resp.Data.OutputMint:
			fee += solana.FromRaw(feeRaw, outDecimals) / price
		}
	}

	route := "direct"
	if n := len(resp.Data.RoutePlan); n > 1 {
		route = strconv.Itoa(n) + "-pool route"
	}

	return domain.Quote{
		Venue:          VenueName,
		InputMint:      resp.Data.InputMint,
		OutputMint:     resp.Data.OutputMint,
		InAmount:       inAmount,
		OutAmount:      outAmount,
		MinReceived:    solana.FromRaw(minRaw, outDecimals),
		PriceImpactPct: resp.Data.PriceImpactPct,
		FeeAmount:      fee,
		Price:          price,
		Hops:           len(resp.Data.RoutePlan),
		Route:          route,
		Valid:          true,
		FetchedAt:      time.Now(),
	}, nil
}
