// Package raydium implements the Raydium venue adapter using the trade API
// (swap-base-in compute and transaction endpoints).
package raydium

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

// DefaultBaseURL is the public Raydium trade API root.
const DefaultBaseURL = "https://transaction-v1.raydium.io"

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

// computeResponse is the /compute/swap-base-in payload. Amounts are raw
// base units encoded as decimal strings; priceImpactPct is already percent.
type computeResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Data    struct {
		InputMint            string  `json:"inputMint"`
		InputAmount          string  `json:"inputAmount"`
		OutputMint           string  `json:"outputMint"`
		OutputAmount         string  `json:"outputAmount"`
		OtherAmountThreshold string  `json:"otherAmountThreshold"`
		PriceImpactPct       float64 `json:"priceImpactPct"`
		RoutePlan            []struct {
			PoolID    string `json:"poolId"`
			FeeMint   string `json:"feeMint"`
			FeeAmount string `json:"feeAmount"`
		} `json:"routePlan"`
	} `json:"data"`
}

// computeSwap prices an exact-in swap without building a transaction.
func (c *client) computeSwap(ctx context.Context, inputMint, outputMint string, amountRaw uint64, slippageBps int) (*computeResponse, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amountRaw, 10))
	params.Set("slippageBps", strconv.Itoa(slippageBps))
	params.Set("txVersion", "V0")

	body, err := c.doRequest(ctx, http.MethodGet, "/compute/swap-base-in?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("raydium: compute swap: %w", err)
	}

	var resp computeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("raydium: decode compute response: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("raydium: compute swap rejected: %s", resp.Msg)
	}
	return &resp, nil
}

// buildSwapTransaction calls /transaction/swap-base-in with the compute
// response embedded verbatim, returning the unsigned base64 transaction.
func (c *client) buildSwapTransaction(ctx context.Context, compute *computeResponse, wallet string) (string, error) {
	rawCompute, err := json.Marshal(compute)
	if err != nil {
		return "", fmt.Errorf("raydium: marshal compute response: %w", err)
	}

	reqBody := map[string]any{
		"swapResponse": json.RawMessage(rawCompute),
		"txVersion":    "V0",
		"wallet":       wallet,
		"wrapSol":      true,
		"unwrapSol":    true,
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/transaction/swap-base-in", reqBody)
	if err != nil {
		return "", fmt.Errorf("raydium: build swap transaction: %w", err)
	}

	var resp struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
		Data    []struct {
			Transaction string `json:"transaction"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("raydium: decode transaction response: %w", err)
	}
	if !resp.Success || len(resp.Data) == 0 || resp.Data[0].Transaction == "" {
		return "", fmt.Errorf("raydium: transaction build rejected: %s", resp.Msg)
	}
	return resp.Data[0].Transaction, nil
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
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody)
	}
	return respBody, nil
}
