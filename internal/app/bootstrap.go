package app

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/advisor"
	"github.com/jichang0619/aitrade/internal/engine"
	"github.com/jichang0619/aitrade/internal/exchange"
	"github.com/jichang0619/aitrade/internal/infra"
	"github.com/jichang0619/aitrade/internal/storage"
	"github.com/jichang0619/aitrade/internal/telemetry"
)

// Bootstrap wires the whole application together.
type Bootstrap struct {
	Config     *infra.Config
	Store      *storage.TradeStore
	Exchange   exchange.Exchange
	Rules      *exchange.RulesCache
	Engine     *engine.Engine
	Advisor    advisor.Advisor
	Sentiment  *advisor.FearGreedClient
	Notifier   *telemetry.DiscordNotifier
	MarkStream *exchange.MarkPriceStream
}

// NewBootstrap creates an empty Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and constructs every component.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping aitrade...")

	// .env is optional; environment variables win either way.
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "err", err)
	}

	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	store, err := storage.NewTradeStore(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("✅ Trade store ready (WAL-mode)", "path", cfg.Storage.DBPath)

	binanceClient := exchange.NewBinanceFutures(
		cfg.API.Binance.AccessKey,
		cfg.API.Binance.SecretKey,
		cfg.Trading.Testnet,
	)
	b.Exchange = binanceClient
	if cfg.Trading.DryRun {
		// Real market data, simulated account.
		b.Exchange = exchange.NewPaperFutures(
			binanceClient,
			cfg.Trading.Symbol,
			decimal.NewFromFloat(cfg.Trading.PaperBalance),
		)
	}
	b.Rules = exchange.NewRulesCache(b.Exchange)

	b.Engine = engine.New(b.Exchange, b.Rules, engine.Config{
		Symbol:         cfg.Trading.Symbol,
		MarginType:     cfg.Trading.MarginType,
		WaitTime:       time.Duration(cfg.Trading.WaitTimeSec) * time.Second,
		PollInterval:   time.Duration(cfg.Trading.PollIntervalSec) * time.Second,
		MaxRetries:     cfg.Trading.MaxRetries,
		RetryPause:     time.Duration(cfg.Trading.RetryPauseSec) * time.Second,
		RiskPercentage: cfg.Trading.RiskPercentage,
	}, engine.NewRealClock(), logger)

	if cfg.API.OpenAI.APIKey != "" {
		b.Advisor = advisor.NewOpenAIAdvisor(
			cfg.API.OpenAI.APIKey,
			cfg.API.OpenAI.Model,
			cfg.API.OpenAI.ReflectionModel,
			logger,
		)
	} else {
		slog.Warn("No OpenAI key configured, using rule-based advisor")
		b.Advisor = advisor.NewRuleAdvisor(logger)
	}
	b.Sentiment = advisor.NewFearGreedClient()
	b.Notifier = telemetry.NewDiscordNotifier(cfg.Telemetry.DiscordWebhook)
	b.MarkStream = exchange.NewMarkPriceStream(cfg.Trading.Symbol, cfg.Trading.Testnet)

	slog.Info("✅ Components wired",
		"symbol", cfg.Trading.Symbol,
		"leverage", cfg.Trading.Leverage,
		"testnet", cfg.Trading.Testnet)
	return nil
}

// Close releases held resources.
func (b *Bootstrap) Close() {
	if b.MarkStream != nil {
		b.MarkStream.Stop()
	}
	if b.Store != nil {
		b.Store.Close()
	}
}
