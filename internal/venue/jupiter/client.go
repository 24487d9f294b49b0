// Package jupiter implements the Jupiter aggregator venue adapter using the
// v6 quote and swap APIs.
package jupiter

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
)

// DefaultBaseURL is the public Jupiter v6 API root.
const DefaultBaseURL = "https://quote-api.jup.ag/v6"

// client is the REST client for the Jupiter v6 API.
type client struct {
	baseURL    string
	httpClient *http.Client
}

func newClient(baseURL string) *client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// quoteResponse is the Jupiter v6 /quote payload. Amounts are raw base
// units encoded as decimal strings.
type quoteResponse struct {
	InputMint            string `json:"inputMint"`
	OutputMint           string `json:"outputMint"`
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	PriceImpactPct       string `json:"priceImpactPct"`
	SlippageBps          int    `json:"slippageBps"`
	RoutePlan            []struct {
		SwapInfo struct {
			Label     string `json:"label"`
			FeeAmount string `json:"feeAmount"`
			FeeMint   string `json:"feeMint"`
		} `json:"swapInfo"`
		Percent int `json:"percent"`
	} `json:"routePlan"`
}

// getQuote calls GET /quote for an exact-in swap.
func (c *client) getQuote(ctx context.Context, inputMint, outputMint string, amountRaw uint64, slippageBps int) (*quoteResponse, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amountRaw, 10))
	params.Set("slippageBps", strconv.Itoa(slippageBps))
	params.Set("swapMode", "ExactIn")

	body, err := c.doRequest(ctx, http.MethodGet, "/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("jupiter: get quote: %w", err)
	}

	var quote quoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("jupiter: decode quote: %w", err)
	}
	return &quote, nil
}

// swapRequest is the POST /swap payload. The quote response is embedded
// verbatim as required by the API.
type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports string          `json:"prioritizationFeeLamports,omitempty"`
}

// buildSwapTransaction calls POST /swap and returns the unsigned serialized
// transaction in base64.
func (c *client) buildSwapTransaction(ctx context.Context, quote *quoteResponse, userPublicKey string) (string, error) {
	rawQuote, err := json.Marshal(quote)
	if err != nil {
		return "", fmt.Errorf("jupiter: marshal quote: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/swap", swapRequest{
		QuoteResponse:           rawQuote,
		UserPublicKey:           userPublicKey,
		WrapAndUnwrapSol:        true,
		DynamicComputeUnitLimit: true,
	})
	if err != nil {
		return "", fmt.Errorf("jupiter: build swap: %w", err)
	}

	var resp struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("jupiter: decode swap response: %w", err)
	}
	if resp.SwapTransaction == "" {
		return "", fmt.Errorf("jupiter: swap response missing transaction")
	}
	return resp.SwapTransaction, nil
}

func (c *client) doRequest(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &apiErr)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Error)
	}
	return respBody, nil
}
