// Package app assembles the market-data services from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/bobmcallan/mystock-core/internal/client"
	"github.com/bobmcallan/mystock-core/internal/common"
	"github.com/bobmcallan/mystock-core/internal/config"
	"github.com/bobmcallan/mystock-core/internal/interfaces"
	"github.com/bobmcallan/mystock-core/internal/market"
	"github.com/bobmcallan/mystock-core/internal/movers"
	"github.com/bobmcallan/mystock-core/internal/storage"
	"github.com/bobmcallan/mystock-core/internal/valuation"
)

// App holds all application components and dependencies.
type App struct {
	Config  *config.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager
	Client  interfaces.MarketDataClient

	Quotes    *market.QuoteService
	Candles   *market.CandleService
	Movers    *movers.Service
	Updater   *movers.Updater
	Valuation *valuation.Engine
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = storageManager

	a.Client = client.NewAlphaVantage(&cfg.Clients.AlphaVantage, logger)

	fetchTimeout := cfg.Clients.AlphaVantage.GetTimeout()
	a.Quotes = market.NewQuoteService(a.Storage, a.Client, logger, cfg.Cache.GetQuoteTTL(), fetchTimeout)
	a.Candles = market.NewCandleService(a.Storage, a.Client, logger, cfg.Cache.GetSeriesTTL(), fetchTimeout)
	a.Movers = movers.NewService(a.Storage, logger)
	a.Updater = movers.NewUpdater(a.Storage, a.Client, cfg, logger)
	a.Valuation = valuation.NewEngine(a.Quotes, logger)

	logger.Info().Msg("application initialization complete")

	return a, nil
}

// StartUpdater begins the scheduled top-movers capture.
func (a *App) StartUpdater(ctx context.Context) error {
	return a.Updater.Start(ctx)
}

// Shutdown stops the updater and closes storage.
func (a *App) Shutdown() {
	if a.Updater != nil {
		a.Updater.Stop()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close storage")
		}
	}
	a.Logger.Info().Msg("application shutdown complete")
}
