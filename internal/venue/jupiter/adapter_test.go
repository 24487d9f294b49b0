package jupiter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InsideOutbtc/dexrouter/internal/venue/solana"
)

const (
	solMint  = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func quoteServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "ExactIn", r.URL.Query().Get("swapMode"))
		assert.Equal(t, solMint, r.URL.Query().Get("inputMint"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
}

func TestGetSwapQuote(t *testing.T) {
	// 1 SOL in, 150.3 USDC out, 0.12% impact reported as a fraction, 0.05
	// USDC of fees charged in the output mint.
	srv := quoteServer(t, `{
		"inputMint": "`+solMint+`",
		"outputMint": "`+usdcMint+`",
		"inAmount": "1000000000",
		"outAmount": "150300000",
		"otherAmountThreshold": "149500000",
		"priceImpactPct": "0.0012",
		"slippageBps": 50,
		"routePlan": [
			{"swapInfo": {"label": "Whirlpool", "feeAmount": "50000", "feeMint": "`+usdcMint+`"}, "percent": 100}
		]
	}`)
	defer srv.Close()

	a, err := New(Config{
		BaseURL:  srv.URL,
		Decimals: solana.TokenMap{solMint: 9, usdcMint: 6},
	})
	require.NoError(t, err)

	q, err := a.GetSwapQuote(context.Background(), solMint, usdcMint, 1, 50)
	require.NoError(t, err)

	assert.Equal(t, VenueName, q.Venue)
	assert.True(t, q.Valid)
	assert.InDelta(t, 1.0, q.InAmount, 1e-9)
	assert.InDelta(t, 150.3, q.OutAmount, 1e-9)
	assert.InDelta(t, 149.5, q.MinReceived, 1e-9)
	assert.InDelta(t, 150.3, q.Price, 1e-9)
	// The fraction converts to percent.
	assert.InDelta(t, 0.12, q.PriceImpactPct, 1e-9)
	// Output-mint fee normalised into input-token units.
	assert.InDelta(t, 0.05/150.3, q.FeeAmount, 1e-9)
	assert.Equal(t, 1, q.Hops)
	assert.Equal(t, "Whirlpool", q.Route)
}

func TestGetSwapQuoteMultiHop(t *testing.T) {
	srv := quoteServer(t, `{
		"inputMint": "`+solMint+`",
		"outputMint": "`+usdcMint+`",
		"inAmount": "1000000000",
		"outAmount": "150000000",
		"otherAmountThreshold": "149000000",
		"priceImpactPct": "0.003",
		"routePlan": [
			{"swapInfo": {"label": "Raydium", "feeAmount": "2000000", "feeMint": "`+solMint+`"}, "percent": 100},
			{"swapInfo": {"label": "Whirlpool", "feeAmount": "9999", "feeMint": "SomeOtherMint111"}, "percent": 100}
		]
	}`)
	defer srv.Close()

	a, err := New(Config{
		BaseURL:  srv.URL,
		Decimals: solana.TokenMap{solMint: 9, usdcMint: 6},
	})
	require.NoError(t, err)

	q, err := a.GetSwapQuote(context.Background(), solMint, usdcMint, 1, 50)
	require.NoError(t, err)

	assert.Equal(t, 2, q.Hops)
	assert.Equal(t, "Raydium > Whirlpool", q.Route)
	// Input-mint fee counts directly; the unrelated intermediate mint is
	// skipped.
	assert.InDelta(t, 0.002, q.FeeAmount, 1e-9)
}

func TestGetSwapQuoteZeroAmount(t *testing.T) {
	srv := quoteServer(t, `{
		"inputMint": "`+solMint+`",
		"outputMint": "`+usdcMint+`",
		"inAmount": "1000000000",
		"outAmount": "0",
		"otherAmountThreshold": "0",
		"priceImpactPct": "0",
		"routePlan": []
	}`)
	defer srv.Close()

	a, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = a.GetSwapQuote(context.Background(), solMint, usdcMint, 1, 50)
	assert.Error(t, err)
}

func TestGetSwapQuoteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "No route found"}`))
	}))
	defer srv.Close()

	a, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = a.GetSwapQuote(context.Background(), solMint, usdcMint, 1, 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No route found")
}

func TestExecuteSwapRequiresWallet(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)

	_, err = a.ExecuteSwap(context.Background(), solMint, usdcMint, 1, 0, 50)
	assert.Error(t, err)
}

func TestNewRejectsBadKey(t *testing.T) {
	_, err := New(Config{PrivateKeyHex: "nothex"})
	assert.Error(t, err)
}

func TestGetBalances(t *testing.T) {
	rpc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getBalance", req.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":2500000000}}`))
	}))
	defer rpc.Close()

	a, err := New(Config{
		RPCURL:        rpc.URL,
		PrivateKeyHex: strings.Repeat("42", 32),
	})
	require.NoError(t, err)

	balances, err := a.GetBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, solana.NativeMint, balances[0].Mint)
	assert.Equal(t, "SOL", balances[0].Symbol)
	assert.InDelta(t, 2.5, balances[0].Amount, 1e-9)
}

func TestGetBalancesQuoteOnly(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)

	_, err = a.GetBalances(context.Background())
	assert.Error(t, err)
}
