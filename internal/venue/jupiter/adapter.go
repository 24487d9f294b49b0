package jupiter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
	"github.com/InsideOutbtc/dexrouter/internal/venue/solana"
)

// VenueName identifies this adapter in quotes, trades, and metrics.
const VenueName = "jupiter"

// defaultSlippageBps applies when the caller passes a non-positive slippage.
const defaultSlippageBps = 50

// Config configures the Jupiter adapter.
type Config struct {
	// BaseURL overrides the Jupiter API root. Empty means DefaultBaseURL.
	BaseURL string

	// RPCURL is the Solana RPC endpoint used for submission.
	RPCURL string

	// PrivateKeyHex enables execution. Leave empty for quote-only use.
	PrivateKeyHex string

	// SlippageBps overrides the adapter default slippage.
	SlippageBps int

	// Decimals maps mint addresses to decimal places.
	Decimals solana.TokenMap
}

// Adapter implements domain.VenueAdapter on the Jupiter v6 API.
type Adapter struct {
	api         *client
	rpc         *solana.Client
	wallet      *solana.Wallet
	slippageBps int
	decimals    solana.TokenMap
}

var (
	_ domain.VenueAdapter    = (*Adapter)(nil)
	_ domain.BalanceProvider = (*Adapter)(nil)
)

// New builds the adapter. Execution requires both RPCURL and PrivateKeyHex;
// without a key the adapter still serves quotes.
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
			return nil, fmt.Errorf("jupiter: %w", err)
		}
		a.wallet = wallet
	}
	return a, nil
}

// Name implements domain.VenueAdapter.
func (a *Adapter) Name() string { return VenueName }

// Initialize verifies RPC connectivity when execution is configured.
func (a *Adapter) Initialize(ctx context.Context) error {
	if a.rpc == nil {
		return nil
	}
	if err := a.rpc.GetHealth(ctx); err != nil {
		return fmt.Errorf("jupiter: %w: %v", domain.ErrAdapterUnavailable, err)
	}
	return nil
}

// GetBalances reports the configured wallet's native SOL balance. Requires
// both the wallet and the RPC client.
func (a *Adapter) GetBalances(ctx context.Context) ([]domain.Balance, error) {
	if a.wallet == nil || a.rpc == nil {
		return nil, fmt.Errorf("jupiter: balances unavailable without wallet and RPC")
	}
	lamports, err := a.rpc.GetBalance(ctx, a.wallet.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("jupiter: get balance: %w", err)
	}
	return []domain.Balance{{
		Mint:   solana.NativeMint,
		Symbol: "SOL",
		Amount: solana.FromRaw(lamports, 9),
	}}, nil
}

// GetSwapQuote implements domain.VenueAdapter.
func (a *Adapter) GetSwapQuote(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps int) (domain.Quote, error) {
	if slippageBps <= 0 {
		slippageBps = a.slippageBps
	}
	inDecimals := a.decimals.DecimalsFor(inputMint)
	outDecimals := a.decimals.DecimalsFor(outputMint)

	resp, err := a.api.getQuote(ctx, inputMint, outputMint, solana.ToRaw(amount, inDecimals), slippageBps)
	if err != nil {
		return domain.Quote{}, err
	}
	return a.toDomainQuote(resp, inDecimals, outDecimals)
}

// ExecuteSwap implements domain.VenueAdapter. It re-quotes, builds the swap
// transaction, signs it, submits it, and waits for confirmation.
func (a *Adapter) ExecuteSwap(ctx context.Context, inputMint, outputMint string, amount, minOut float64, slippageBps int) (domain.Trade, error) {
	if a.wallet == nil || a.rpc == nil {
		return domain.Trade{}, fmt.Errorf("jupiter: execution not configured (missing wallet or RPC)")
	}
	if slippageBps <= 0 {
		slippageBps = a.slippageBps
	}
	inDecimals := a.decimals.DecimalsFor(inputMint)
	outDecimals := a.decimals.DecimalsFor(outputMint)

	resp, err := a.api.getQuote(ctx, inputMint, outputMint, solana.ToRaw(amount, inDecimals), slippageBps)
	if err != nil {
		return domain.Trade{}, err
	}

	quote, err := a.toDomainQuote(resp, inDecimals, outDecimals)
	if err != nil {
		return domain.Trade{}, err
	}
	if minOut > 0 && quote.OutAmount < minOut {
		return domain.Trade{}, fmt.Errorf("jupiter: quote output %.9f below minimum %.9f", quote.OutAmount, minOut)
	}

	unsignedTx, err := a.api.buildSwapTransaction(ctx, resp, a.wallet.PublicKey())
	if err != nil {
		return domain.Trade{}, err
	}
	signedTx, err := a.wallet.SignTransactionBase64(unsignedTx)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("jupiter: sign transaction: %w", err)
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

// toDomainQuote converts a v6 quote payload into the domain representation.
func (a *Adapter) toDomainQuote(resp *quoteResponse, inDecimals, outDecimals int) (domain.Quote, error) {
	inRaw, err := solana.ParseRaw(resp.InAmount)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("jupiter: parse inAmount %q: %w", resp.InAmount, err)
	}
	outRaw, err := solana.ParseRaw(resp.OutAmount)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("jupiter: parse outAmount %q: %w", resp.OutAmount, err)
	}
	minRaw, err := solana.ParseRaw(resp.OtherAmountThreshold)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("jupiter: parse otherAmountThreshold %q: %w", resp.OtherAmountThreshold, err)
	}

	inAmount := solana.FromRaw(inRaw, inDecimals)
	outAmount := solana.FromRaw(outRaw, outDecimals)
	if inAmount <= 0 || outAmount <= 0 {
		return domain.Quote{}, fmt.Errorf("jupiter: %w: zero amount in quote", domain.ErrInvalidQuote)
	}
	price := outAmount / inAmount

	// Jupiter reports price impact as a fraction, e.g. "0.0012" for 0.12%.
	impactFraction, err := strconv.ParseFloat(resp.PriceImpactPct, 64)
	if err != nil {
		impactFraction = 0
	}

	var fee float64
	labels := make([]string, 0, len(resp.RoutePlan))
	for _, leg := range resp.RoutePlan {
		labels = append(labels, leg.SwapInfo.Label)
		feeRaw, err := solana.ParseRaw(leg.SwapInfo.FeeAmount)
		if err != nil {
			continue
		}
		// Fees are normalised into input-token units. Fees charged in
		// unrelated intermediate mints are not counted.
		switch leg.SwapInfo.FeeMint {
		case resp.InputMint:
			fee += solana.FromRaw(feeRaw, inDecimals)
		case resp.OutputMint:
			fee += solana.FromRaw(feeRaw, outDecimals) / price
		}
	}

	return domain.Quote{
		Venue:          VenueName,
		InputMint:      resp.InputMint,
		OutputMint:     resp.OutputMint,
		InAmount:       inAmount,
		OutAmount:      outAmount,
		MinReceived:    solana.FromRaw(minRaw, outDecimals),
		PriceImpactPct: impactFraction * 100,
		FeeAmount:      fee,
		Price:          price,
		Hops:           len(resp.RoutePlan),
		Route:          strings.Join(labels, " > "),
		Valid:          true,
		FetchedAt:      time.Now(),
	}, nil
}
