// Package main runs one pass of the currency-rates ingestion job. It is
// meant to be scheduled externally (cron or similar); each run fetches the
// missing daily quotes and upserts them into the rate table.
package main

import (
	"context"
	"log"
	"time"

	"github.com/household-ledger/internal/adapter"
	"github.com/household-ledger/internal/config"
	"github.com/household-ledger/internal/logging"
	"github.com/household-ledger/internal/service"
	"github.com/household-ledger/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		logging.ParseFormat(cfg.Logging.Format),
	)

	postgres, err := storage.NewPostgresDB(&cfg.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	provider := adapter.NewHTTPRateProvider(cfg.Rates.ProviderURL, cfg.Rates.RequestsPerSec)
	store := storage.NewRateRepository(postgres.Pool())
	ingestor := service.NewRatesIngestor(provider, store, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logging.IntoContext(ctx, logger)

	if err := ingestor.IngestAll(ctx, cfg.Rates.BaseCurrencies, cfg.Rates.QuoteCurrency, cfg.Rates.LookbackDays); err != nil {
		logger.WithError(err).Fatal("Rates ingestion failed")
	}
	logger.Info("Rates ingestion completed")
}
