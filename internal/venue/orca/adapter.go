// Package orca implements the Orca venue adapter against the whirlpool
// swap quote API.
package orca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
	"github.com/InsideOutbtc/dexrouter/internal/venue/solana"
)

// VenueName identifies this adapter in quotes, trades, and metrics.
const VenueName = "orca"

// DefaultBaseURL is the public Orca API root.
const DefaultBaseURL = "https://api.orca.so"

const defaultSlippageBps = 50

// Config configures the Orca adapter.
type Config struct {
	BaseURL       string
	RPCURL        string
	PrivateKeyHex string
	SlippageBps   int
	Decimals      solana.TokenMap
}

// Adapter implements domain.VenueAdapter on the Orca whirlpool API.
type Adapter struct {
	baseURL     string
	httpClient  *http.Client
	rpc         *solana.Client
	wallet      *solana.Wallet
	slippageBps int
	decimals    solana.TokenMap
}

var _ domain.VenueAdapter = (*Adapter)(nil)

// New builds the adapter. Execution requires both RPCURL and PrivateKeyHex.
func New(cfg Config) (*Adapter, error) {
	a := &Adapter{
		baseURL:     cfg.BaseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		slippageBps: cfg.SlippageBps,
		decimals:    cfg.Decimals,
	}
	if a.baseURL == "" {
		a.baseURL = DefaultBaseURL
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
			return nil, fmt.Errorf("orca: %w", err)
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
		return fmt.Errorf("orca: %w: %v", domain.ErrAdapterUnavailable, err)
	}
	return nil
}

// quoteResponse is the whirlpool quote payload. Amounts are raw base units
// as decimal strings; priceImpactPct is already percent.
type quoteResponse struct {
	InputMint            string  `json:"inputMint"`
	OutputMint           string  `json:"outputMint"`
	InAmount             string  `json:"inAmount"`
	OutAmount            string  `json:"outAmount"`
	OtherAmountThreshold string  `json:"otherAmountThreshold"`
	PriceImpactPct       float64 `json:"priceImpactPct"`
	FeeAmount            string  `json:"feeAmount"`
	Whirlpool            string  `json:"whirlpool"`
}

// GetSwapQuote implements domain.VenueAdapter.
func (a *Adapter) GetSwapQuote(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps int) (domain.Quote, error) {
	resp, err := a.fetchQuote(ctx, inputMint, outputMint, amount, slippageBps)
	if err != nil {
		return domain.Quote{}, err
	}
	return a.toDomainQuote(resp, inputMint, outputMint)
}

// ExecuteSwap implements domain.VenueAdapter.
func (a *Adapter) ExecuteSwap(ctx context.Context, inputMint, outputMint string, amount, minOut float64, slippageBps int) (domain.Trade, error) {
	if a.wallet == nil || a.rpc == nil {
		return domain.Trade{}, fmt.Errorf("orca: execution not configured (missing wallet or RPC)")
	}

	resp, err := a.fetchQuote(ctx, inputMint, outputMint, amount, slippageBps)
	if err != nil {
		return domain.Trade{}, err
	}
	quote, err := a.toDomainQuote(resp, inputMint, outputMint)
	if err != nil {
		return domain.Trade{}, err
	}
	if minOut > 0 && quote.OutAmount < minOut {
		return domain.Trade{}, fmt.Errorf("orca: quote output %.9f below minimum %.9f", quote.OutAmount, minOut)
	}

	unsignedTx, err := a.buildSwapTransaction(ctx, resp)
	if err != nil {
		return domain.Trade{}, err
	}
	signedTx, err := a.wallet.SignTransactionBase64(unsignedTx)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("orca: sign transaction: %w", err)
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

func (a *Adapter) fetchQuote(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps int) (*quoteResponse, error) {
	if slippageBps <= 0 {
		slippageBps = a.slippageBps
	}
	amountRaw := solana.ToRaw(amount, a.decimals.DecimalsFor(inputMint))

	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amountRaw, 10))
	params.Set("slippageBps", strconv.Itoa(slippageBps))

	body, err := a.doRequest(ctx, http.MethodGet, "/v1/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("orca: get quote: %w", err)
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("orca: decode quote: %w", err)
	}
	return &resp, nil
}

// buildSwapTransaction asks the API to assemble the whirlpool swap for the
// quoted route, returning the unsigned base64 transaction.
func (a *Adapter) buildSwapTransaction(ctx context.Context, quote *quoteResponse) (string, error) {
	rawQuote, err := json.Marshal(quote)
	if err != nil {
		return "", fmt.Errorf("orca: marshal quote: %w", err)
	}

	reqBody := map[string]any{
		"quote":  json.RawMessage(rawQuote),
		"wallet": a.wallet.PublicKey(),
	}
	body, err := a.doRequest(ctx, http.MethodPost, "/v1/swap", reqBody)
	if err != nil {
		return "", fmt.Errorf("orca: build swap: %w", err)
	}

	var resp struct {
		Transaction string `json:"transaction"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("orca: decode swap response: %w", err)
	}
	if resp.Transaction == "" {
		return "", fmt.Errorf("orca: swap response missing transaction")
	}
	return resp.Transaction, nil
}

func (a *Adapter) toDomainQuote(resp *quoteResponse, inputMint, outputMint string) (domain.Quote, error) {
	inDecimals := a.decimals.DecimalsFor(inputMint)
	outDecimals := a.decimals.DecimalsFor(outputMint)

	inRaw, err := solana.ParseRaw(resp.InAmount)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("orca: parse inAmount %q: %w", resp.InAmount, err)
	}
	outRaw, err := solana.ParseRaw(resp.OutAmount)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("orca: parse outAmount %q: %w", resp.OutAmount, err)
	}
	minRaw, err := solana.ParseRaw(resp.OtherAmountThreshold)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("orca: parse otherAmountThreshold %q: %w", resp.OtherAmountThreshold, err)
	}

	inAmount := solana.FromRaw(inRaw, inDecimals)
	outAmount := solana.FromRaw(outRaw, outDecimals)
	if inAmount <= 0 || outAmount <= 0 {
		return domain.Quote{}, fmt.Errorf("orca: %w: zero amount in quote", domain.ErrInvalidQuote)
	}

	// Whirlpool fees are charged in the input mint.
	var fee float64
	if feeRaw, err := solana.ParseRaw(resp.FeeAmount); err == nil {
		fee = solana.FromRaw(feeRaw, inDecimals)
	}

	route := "whirlpool"
	if resp.Whirlpool != "" {
		route = "whirlpool " + resp.Whirlpool
	}

	return domain.Quote{
		Venue:          VenueName,
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       inAmount,
		OutAmount:      outAmount,
		MinReceived:    solana.FromRaw(minRaw, outDecimals),
		PriceImpactPct: resp.PriceImpactPct,
		FeeAmount:      fee,
		Price:          outAmount / inAmount,
		Hops:           1,
		Route:          route,
		Valid:          true,
		FetchedAt:      time.Now(),
	}, nil
}

func (a *Adapter) doRequest(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody)
	}
	return respBody, nil
}
