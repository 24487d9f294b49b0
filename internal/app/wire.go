package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/InsideOutbtc/dexrouter/internal/arbitrage"
	s3blob "github.com/InsideOutbtc/dexrouter/internal/blob/s3"
	"github.com/InsideOutbtc/dexrouter/internal/cache/redis"
	"github.com/InsideOutbtc/dexrouter/internal/config"
	"github.com/InsideOutbtc/dexrouter/internal/crypto"
	"github.com/InsideOutbtc/dexrouter/internal/domain"
	"github.com/InsideOutbtc/dexrouter/internal/executor"
	"github.com/InsideOutbtc/dexrouter/internal/metrics"
	"github.com/InsideOutbtc/dexrouter/internal/notify"
	"github.com/InsideOutbtc/dexrouter/internal/router"
	"github.com/InsideOutbtc/dexrouter/internal/service"
	"github.com/InsideOutbtc/dexrouter/internal/store/postgres"
	"github.com/InsideOutbtc/dexrouter/internal/venue/jupiter"
	"github.com/InsideOutbtc/dexrouter/internal/venue/orca"
	"github.com/InsideOutbtc/dexrouter/internal/venue/raydium"
	"github.com/InsideOutbtc/dexrouter/internal/venue/solana"
	"github.com/InsideOutbtc/dexrouter/internal/venue/uniswap"
)

// Dependencies bundles everything the application modes need to operate.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Service  *service.RouterService
	Detector *arbitrage.Detector
	Coord    *executor.Coordinator
	Tracker  *metrics.Tracker

	PriceCache domain.PriceCache         // nil unless redis is enabled
	Trades     domain.TradeJournal       // nil unless postgres is enabled
	Opps       domain.OpportunityJournal // nil unless postgres is enabled
	Archiver   *s3blob.Archiver          // nil unless s3 is enabled

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Tracker: metrics.NewTracker(),
	}

	// --- Wallet (optional: without a key, adapters are quote-only) ---
	var privateKey string
	if cfg.Wallet.PrivateKey != "" || cfg.Wallet.EncryptedKeyPath != "" {
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}
		privateKey = key
	}

	// --- Venue adapters ---
	adapters, err := buildAdapters(ctx, cfg, privateKey, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if len(adapters) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("wire: no venue adapter available")
	}
	logBalances(ctx, adapters, logger)

	// --- Redis price cache ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Redis.PriceTTL.Duration)
	}

	// --- Postgres journal ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Trades = postgres.NewTradeStore(pgClient)
		deps.Opps = postgres.NewOpportunityStore(pgClient)
	}

	// --- S3 archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.Trades, deps.Opps, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.New(senders, cfg.Notify.Events, logger)

	// --- Routing core ---
	agg := router.NewAggregator(adapters, cfg.Router.QuoteTimeout.Duration, logger)
	scorer := router.NewScorer(router.ScorerConfig{
		OutputWeight:     cfg.Router.OutputWeight,
		ImpactWeight:     cfg.Router.ImpactWeight,
		FeeWeight:        cfg.Router.FeeWeight,
		ImpactSaturation: cfg.Router.ImpactSaturation,
	})
	splitter := router.NewSplitPlanner(agg, scorer, logger)
	deps.Detector = arbitrage.NewDetector(arbitrage.DetectorConfig{
		Quotes:      agg,
		Tracker:     deps.Tracker,
		Cache:       deps.PriceCache,
		Journal:     deps.Opps,
		ProbeAmount: cfg.Arbitrage.ProbeAmount,
		Logger:      logger,
	})
	deps.Coord = executor.New(executor.Config{
		Adapters:    adapters,
		Tracker:     deps.Tracker,
		Alerter:     deps.Notifier,
		Journal:     deps.Trades,
		Prices:      deps.PriceCache,
		ExecTimeout: cfg.Router.ExecTimeout.Duration,
		Logger:      logger,
	})
	deps.Service = service.New(service.Config{
		Aggregator: agg,
		Scorer:     scorer,
		Splitter:   splitter,
		Detector:   deps.Detector,
		Coord:      deps.Coord,
		Tracker:    deps.Tracker,
		Logger:     logger,
	})

	return deps, cleanup, nil
}

// logBalances reports wallet balances for adapters that expose them. Failures
// are expected for quote-only adapters and logged at debug.
func logBalances(ctx context.Context, adapters []domain.VenueAdapter, logger *slog.Logger) {
	for _, a := range adapters {
		bp, ok := a.(domain.BalanceProvider)
		if !ok {
			continue
		}
		balances, err := bp.GetBalances(ctx)
		if err != nil {
			logger.Debug("balance lookup skipped",
				slog.String("venue", a.Name()),
				slog.String("error", err.Error()))
			continue
		}
		for _, b := range balances {
			logger.Info("wallet balance",
				slog.String("venue", a.Name()),
				slog.String("symbol", b.Symbol),
				slog.Float64("amount", b.Amount))
		}
	}
}

// buildAdapters constructs every enabled venue adapter and initializes them
// concurrently. An adapter that fails initialization is excluded with a
// warning rather than failing startup; routing proceeds on the venues that
// came up.
func buildAdapters(ctx context.Context, cfg *config.Config, privateKey string, logger *slog.Logger) ([]domain.VenueAdapter, error) {
	decimals := solana.TokenMap(cfg.Tokens.Decimals)

	var candidates []domain.VenueAdapter

	if cfg.Venues.Jupiter.Enabled {
		a, err := jupiter.New(jupiter.Config{
			BaseURL:       cfg.Venues.Jupiter.BaseURL,
			RPCURL:        cfg.Venues.Jupiter.RPCURL,
			PrivateKeyHex: privateKey,
			SlippageBps:   firstPositive(cfg.Venues.Jupiter.SlippageBps, cfg.Router.SlippageBps),
			Decimals:      decimals,
		})
		if err != nil {
			return nil, fmt.Errorf("wire: jupiter: %w", err)
		}
		candidates = append(candidates, a)
	}
	if cfg.Venues.Raydium.Enabled {
		a, err := raydium.New(raydium.Config{
			BaseURL:       cfg.Venues.Raydium.BaseURL,
			RPCURL:        cfg.Venues.Raydium.RPCURL,
			PrivateKeyHex: privateKey,
			SlippageBps:   firstPositive(cfg.Venues.Raydium.SlippageBps, cfg.Router.SlippageBps),
			Decimals:      decimals,
		})
		if err != nil {
			return nil, fmt.Errorf("wire: raydium: %w", err)
		}
		candidates = append(candidates, a)
	}
	if cfg.Venues.Orca.Enabled {
		a, err := orca.New(orca.Config{
			BaseURL:       cfg.Venues.Orca.BaseURL,
			RPCURL:        cfg.Venues.Orca.RPCURL,
			PrivateKeyHex: privateKey,
			SlippageBps:   firstPositive(cfg.Venues.Orca.SlippageBps, cfg.Router.SlippageBps),
			Decimals:      decimals,
		})
		if err != nil {
			return nil, fmt.Errorf("wire: orca: %w", err)
		}
		candidates = append(candidates, a)
	}
	if cfg.Venues.Uniswap.Enabled {
		a, err := uniswap.New(uniswap.Config{
			RPCURL:        cfg.Venues.Uniswap.RPCURL,
			ChainID:       cfg.Venues.Uniswap.ChainID,
			Router:        cfg.Venues.Uniswap.Router,
			Factory:       cfg.Venues.Uniswap.Factory,
			InitCodeHex:   cfg.Venues.Uniswap.InitCodeHex,
			PrivateKeyHex: privateKey,
			SlippageBps:   firstPositive(cfg.Venues.Uniswap.SlippageBps, cfg.Router.SlippageBps),
			Decimals:      cfg.Tokens.Decimals,
		})
		if err != nil {
			return nil, fmt.Errorf("wire: uniswap: %w", err)
		}
		candidates = append(candidates, a)
	}

	ready := make([]domain.VenueAdapter, len(candidates))
	g, initCtx := errgroup.WithContext(ctx)
	for i, adapter := range candidates {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(initCtx, 10*time.Second)
			defer cancel()
			if err := adapter.Initialize(ctx); err != nil {
				logger.Warn("venue adapter failed to initialize, excluding it",
					slog.String("venue", adapter.Name()),
					slog.String("error", err.Error()),
				)
				return nil
			}
			ready[i] = adapter
			return nil
		})
	}
	_ = g.Wait()

	adapters := make([]domain.VenueAdapter, 0, len(ready))
	for _, a := range ready {
		if a != nil {
			adapters = append(adapters, a)
		}
	}
	return adapters, nil
}

// firstPositive returns the first argument greater than zero.
func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
