// Package app wires configuration, storage, adapters, and the engine
// into a runnable bot.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradebot/internal/adapter"
	"tradebot/internal/adapter/paper"
	"tradebot/internal/engine"
	"tradebot/internal/feed"
	"tradebot/internal/infra"
	"tradebot/internal/storage"
	"tradebot/internal/strategy"
	"tradebot/internal/trading"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config  *infra.Config
	Journal *storage.Journal
	Engine  *engine.Engine

	api    trading.API
	stream *feed.TickerStream
	unlock func()
	log    *slog.Logger
}

// NewBootstrap creates an empty Bootstrap.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config and builds the full component graph.
func (b *Bootstrap) Initialize() error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	b.log = logger

	infra.PrintBanner(cfg)

	mode := strings.ToLower(cfg.Exchange.Name)
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	journalPath := cfg.Journal.Path
	if journalPath == "" {
		journalPath = filepath.Join(dataDir, "journal.db")
	}
	journal, err := storage.NewJournal(journalPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	b.Journal = journal
	logger.Info("journal opened", "path", journalPath)

	api, err := adapter.New(cfg.Exchange.Name, cfg)
	if err != nil {
		return fmt.Errorf("failed to build exchange adapter %q (available: %s): %w",
			cfg.Exchange.Name, strings.Join(adapter.Names(), ", "), err)
	}
	logger.Info("exchange adapter ready", "impl", api.ImplName())

	// A live ticker stream keeps the simulated exchange's mark price
	// tracking the real market.
	if sim, ok := api.(*paper.Exchange); ok {
		b.stream = feed.NewTickerStream(cfg.Exchange.Bitget.WSURL, cfg.Exchange.Markets,
			func(marketID string, price decimal.Decimal) {
				sim.MarkPrice(marketID, price)
			}, logger)
	}

	b.api = storage.NewRecordingAPI(api, journal, logger)

	scalper, err := b.buildScalper()
	if err != nil {
		return err
	}

	eng, err := engine.New(b.api, scalper, journal, engine.Config{
		CycleInterval:  time.Duration(cfg.Engine.CycleIntervalSec) * time.Second,
		TimeoutRetries: cfg.Engine.TimeoutRetries,
	}, logger)
	if err != nil {
		return err
	}
	b.Engine = eng

	return nil
}

func (b *Bootstrap) buildScalper() (*strategy.Scalper, error) {
	cfg := b.Config

	market := cfg.Strategy.Market
	if market == "" {
		market = cfg.Exchange.Markets[0]
	}

	counter, err := decimal.NewFromString(cfg.Strategy.CounterAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid strategy counter amount %q: %w", cfg.Strategy.CounterAmount, err)
	}
	minProfit := decimal.Zero
	if cfg.Strategy.MinProfit != "" {
		if minProfit, err = decimal.NewFromString(cfg.Strategy.MinProfit); err != nil {
			return nil, fmt.Errorf("invalid strategy min profit %q: %w", cfg.Strategy.MinProfit, err)
		}
	}

	return strategy.NewScalper(b.api, strategy.ScalperConfig{
		MarketID:      market,
		CounterAmount: counter,
		MinProfit:     minProfit,
	}, b.log)
}

// Run starts the feed (when present) and drives the engine until ctx
// is cancelled or trading halts.
func (b *Bootstrap) Run(ctx context.Context) error {
	if b.stream != nil {
		b.stream.Start(ctx)
		defer b.stream.Stop()
	}
	return b.Engine.Run(ctx)
}

// Shutdown releases everything Initialize acquired.
func (b *Bootstrap) Shutdown() {
	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			b.log.Error("failed to close journal", "error", err)
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}
