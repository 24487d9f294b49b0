// Package uniswap implements an EVM venue adapter for Uniswap V2 style
// constant-product pools, quoting from on-chain reserves and executing
// through the V2 router contract.
package uniswap

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/InsideOutbtc/dexrouter/internal/domain"
)

// VenueName identifies this adapter in quotes, trades, and metrics.
const VenueName = "uniswap"

// Mainnet V2 deployment.
var (
	MainnetRouter   = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	MainnetFactory  = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	MainnetInitCode = common.FromHex("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")
)

const (
	defaultSlippageBps = 50
	defaultDecimals    = 18
	// V2 pools charge 30 bps on input.
	poolFeeBps = 30
	// swapDeadline bounds how long a submitted swap stays valid.
	swapDeadline = 2 * time.Minute
)

const pairABIJSON = `[{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"type":"function"}]`

const routerABIJSON = `[{"name":"swapExactTokensForTokens","type":"function","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}]`

// Config configures the Uniswap V2 adapter.
type Config struct {
	// RPCURL is the Ethereum JSON-RPC endpoint.
	RPCURL string

	// ChainID of the target chain. Defaults to 1 (mainnet).
	ChainID int64

	// Router, Factory, and InitCodeHex override the mainnet deployment for
	// forks and other chains.
	Router      string
	Factory     string
	InitCodeHex string

	// PrivateKeyHex enables execution. Leave empty for quote-only use.
	PrivateKeyHex string

	SlippageBps int

	// Decimals maps token addresses (0x hex) to decimal places. Unknown
	// tokens default to 18.
	Decimals map[string]int
}

// Adapter implements domain.VenueAdapter for Uniswap V2 pools.
type Adapter struct {
	client    *ethclient.Client
	chainID   *big.Int
	router    common.Address
	factory   common.Address
	initCode  []byte
	pairABI   abi.ABI
	routerABI abi.ABI

	key    *ecdsa.PrivateKey
	sender common.Address

	slippageBps int
	decimals    map[string]int
}

var _ domain.VenueAdapter = (*Adapter)(nil)

// New dials the RPC endpoint and prepares the contract ABIs.
func New(cfg Config) (*Adapter, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("uniswap: RPC URL is required")
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("uniswap: dial %s: %w", cfg.RPCURL, err)
	}

	pairABI, err := abi.JSON(strings.NewReader(pairABIJSON))
	if err != nil {
		return nil, fmt.Errorf("uniswap: parse pair ABI: %w", err)
	}
	routerABI, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("uniswap: parse router ABI: %w", err)
	}

	a := &Adapter{
		client:      client,
		chainID:     big.NewInt(1),
		router:      MainnetRouter,
		factory:     MainnetFactory,
		initCode:    MainnetInitCode,
		pairABI:     pairABI,
		routerABI:   routerABI,
		slippageBps: cfg.SlippageBps,
		decimals:    cfg.Decimals,
	}
	if cfg.ChainID != 0 {
		a.chainID = big.NewInt(cfg.ChainID)
	}
	if cfg.Router != "" {
		a.router = common.HexToAddress(cfg.Router)
	}
	if cfg.Factory != "" {
		a.factory = common.HexToAddress(cfg.Factory)
	}
	if cfg.InitCodeHex != "" {
		a.initCode = common.FromHex(cfg.InitCodeHex)
	}
	if a.slippageBps <= 0 {
		a.slippageBps = defaultSlippageBps
	}

	if cfg.PrivateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("uniswap: parse private key: %w", err)
		}
		a.key = key
		a.sender = crypto.PubkeyToAddress(key.PublicKey)
	}

	return a, nil
}

func (a *Adapter) Name() string { return VenueName }

// Initialize verifies the RPC connection serves the configured chain.
func (a *Adapter) Initialize(ctx context.Context) error {
	chainID, err := a.client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("uniswap: %w: %v", domain.ErrAdapterUnavailable, err)
	}
	if chainID.Cmp(a.chainID) != 0 {
		return fmt.Errorf("uniswap: RPC serves chain %s, configured for %s", chainID, a.chainID)
	}
	return nil
}

// GetSwapQuote prices a swap from the pair's current reserves using the
// constant-product formula with the 30 bps pool fee.
func (a *Adapter) GetSwapQuote(ctx context.Context, inputMint, outputMint string, amount float64, slippageBps int) (domain.Quote, error) {
	if slippageBps <= 0 {
		slippageBps = a.slippageBps
	}

	tokenIn := common.HexToAddress(inputMint)
	tokenOut := common.HexToAddress(outputMint)
	inDecimals := a.decimalsFor(inputMint)
	outDecimals := a.decimalsFor(outputMint)

	reserveIn, reserveOut, err := a.getReserves(ctx, tokenIn, tokenOut)
	if err != nil {
		return domain.Quote{}, err
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return domain.Quote{}, fmt.Errorf("uniswap: %w: empty reserves for pair", domain.ErrInvalidQuote)
	}

	amountIn := toRaw(amount, inDecimals)
	amountOut := getAmountOut(amountIn, reserveIn, reserveOut)

	inAmount := fromRaw(amountIn, inDecimals)
	outAmount := fromRaw(amountOut, outDecimals)
	if inAmount <= 0 || outAmount <= 0 {
		return domain.Quote{}, fmt.Errorf("uniswap: %w: zero amount in quote", domain.ErrInvalidQuote)
	}

	// Impact is the shortfall of the execution price against the
	// reserve mid price, net of the pool fee.
	midPrice := fromRaw(reserveOut, outDecimals) / fromRaw(reserveIn, inDecimals)
	execPrice := outAmount / inAmount
	impact := (1 - execPrice/(midPrice*(1-float64(poolFeeBps)/10000))) * 100
	if impact < 0 {
		impact = 0
	}

	minOut := outAmount * (1 - float64(slippageBps)/10000)

	return domain.Quote{
		Venue:          VenueName,
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       inAmount,
		OutAmount:      outAmount,
		MinReceived:    minOut,
		PriceImpactPct: impact,
		FeeAmount:      inAmount * float64(poolFeeBps) / 10000,
		Price:          execPrice,
		Hops:           1,
		Route:          "v2 pair " + a.pairFor(tokenIn, tokenOut).Hex(),
		Valid:          true,
		FetchedAt:      time.Now(),
	}, nil
}

// ExecuteSwap submits swapExactTokensForTokens through the router and waits
// for the transaction to be mined.
func (a *Adapter) ExecuteSwap(ctx context.Context, inputMint, outputMint string, amount, minOut float64, slippageBps int) (domain.Trade, error) {
	if a.key == nil {
		return domain.Trade{}, fmt.Errorf("uniswap: execution not configured (missing private key)")
	}

	quote, err := a.GetSwapQuote(ctx, inputMint, outputMint, amount, slippageBps)
	if err != nil {
		return domain.Trade{}, err
	}
	if minOut > 0 && quote.OutAmount < minOut {
		return domain.Trade{}, fmt.Errorf("uniswap: quote output %.9f below minimum %.9f", quote.OutAmount, minOut)
	}

	tokenIn := common.HexToAddress(inputMint)
	tokenOut := common.HexToAddress(outputMint)
	inDecimals := a.decimalsFor(inputMint)
	outDecimals := a.decimalsFor(outputMint)

	floor := minOut
	if floor <= 0 {
		floor = quote.MinReceived
	}
	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())

	calldata, err := a.routerABI.Pack("swapExactTokensForTokens",
		toRaw(amount, inDecimals),
		toRaw(floor, outDecimals),
		[]common.Address{tokenIn, tokenOut},
		a.sender,
		deadline,
	)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("uniswap: pack swap calldata: %w", err)
	}

	nonce, err := a.client.PendingNonceAt(ctx, a.sender)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("uniswap: pending nonce: %w", err)
	}
	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("uniswap: suggest gas price: %w", err)
	}
	gasLimit, err := a.client.EstimateGas(ctx, ethereum.CallMsg{
		From: a.sender,
		To:   &a.router,
		Data: calldata,
	})
	if err != nil {
		return domain.Trade{}, fmt.Errorf("uniswap: estimate gas: %w", err)
	}

	tx := types.NewTransaction(nonce, a.router, big.NewInt(0), gasLimit, gasPrice, calldata)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(a.chainID), a.key)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("uniswap: sign transaction: %w", err)
	}

	if err := a.client.SendTransaction(ctx, signedTx); err != nil {
		return domain.Trade{}, fmt.Errorf("uniswap: send transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, a.client, signedTx)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("uniswap: wait mined %s: %w", signedTx.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.Trade{}, fmt.Errorf("uniswap: transaction %s reverted", signedTx.Hash())
	}

	return domain.Trade{
		Venue:          VenueName,
		Signature:      signedTx.Hash().Hex(),
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

// getReserves calls getReserves on the pair contract and orients the
// reserves to the (tokenIn, tokenOut) direction. V2 pairs store reserves
// in token address sort order.
func (a *Adapter) getReserves(ctx context.Context, tokenIn, tokenOut common.Address) (*big.Int, *big.Int, error) {
	pair := a.pairFor(tokenIn, tokenOut)

	calldata, err := a.pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("uniswap: pack getReserves: %w", err)
	}

	raw, err := a.client.CallContract(ctx, ethereum.CallMsg{To: &pair, Data: calldata}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("uniswap: call getReserves on %s: %w", pair, err)
	}

	out, err := a.pairABI.Unpack("getReserves", raw)
	if err != nil {
		return nil, nil, fmt.Errorf("uniswap: unpack getReserves: %w", err)
	}
	reserve0, ok0 := out[0].(*big.Int)
	reserve1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, fmt.Errorf("uniswap: unexpected getReserves output types")
	}

	if sortsFirst(tokenIn, tokenOut) {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// pairFor computes the CREATE2 pair address for two tokens.
func (a *Adapter) pairFor(token0, token1 common.Address) common.Address {
	if !sortsFirst(token0, token1) {
		token0, token1 = token1, token0
	}
	salt := crypto.Keccak256(token0.Bytes(), token1.Bytes())
	return common.BytesToAddress(crypto.Keccak256(
		[]byte{0xff}, a.factory.Bytes(), salt, a.initCode,
	))
}

func (a *Adapter) decimalsFor(token string) int {
	if d, ok := a.decimals[strings.ToLower(token)]; ok {
		return d
	}
	if d, ok := a.decimals[token]; ok {
		return d
	}
	return defaultDecimals
}

func sortsFirst(tokenA, tokenB common.Address) bool {
	return strings.ToLower(tokenA.Hex()) < strings.ToLower(tokenB.Hex())
}

// getAmountOut applies the V2 constant-product formula with the 30 bps fee
// on input.
func getAmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(10000-poolFeeBps))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Add(
		new(big.Int).Mul(reserveIn, big.NewInt(10000)),
		amountInWithFee,
	)
	return new(big.Int).Div(numerator, denominator)
}

// toRaw converts a UI amount to raw base units using big.Float to stay
// exact beyond uint64 range at 18 decimals.
func toRaw(amount float64, decimals int) *big.Int {
	scaled := new(big.Float).Mul(
		big.NewFloat(amount),
		new(big.Float).SetFloat64(math.Pow10(decimals)),
	)
	raw, _ := scaled.Int(nil)
	return raw
}

func fromRaw(raw *big.Int, decimals int) float64 {
	f := new(big.Float).Quo(
		new(big.Float).SetInt(raw),
		new(big.Float).SetFloat64(math.Pow10(decimals)),
	)
	v, _ := f.Float64()
	return v
}
