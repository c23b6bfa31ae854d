package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/household-ledger/internal/adapter"
	"github.com/household-ledger/internal/logging"
	"github.com/household-ledger/internal/models"
)

// RateStore is the slice of the rate repository the ingestor needs.
type RateStore interface {
	Upsert(ctx context.Context, rates []models.CurrencyRate) error
	LatestDate(ctx context.Context, source, target string) (time.Time, bool, error)
}

// RatesIngestor pulls daily quotes from a provider and materializes the
// rate table: provider gaps are carried forward, inverse pairs are derived
// and stored independently, and same-currency identity rates are written
// for every filled date.
//
// Carrying rates across provider gaps means a stale quote can stand in for
// days the market was closed; combined with the engine's missing-rate
// default of 1.0 this favors availability over strict accuracy.
type RatesIngestor struct {
	provider adapter.RateProvider
	store    RateStore
	logger   *logging.Logger
}

// NewRatesIngestor creates a rates ingestor.
func NewRatesIngestor(provider adapter.RateProvider, store RateStore, logger *logging.Logger) *RatesIngestor {
	return &RatesIngestor{provider: provider, store: store, logger: logger}
}

// IngestPair fetches and stores rates for one base->quote pair from the
// later of (today - lookbackDays) and the day after the last stored rate,
// through today.
func (i *RatesIngestor) IngestPair(ctx context.Context, base, quote string, lookbackDays int) error {
	today := models.DayFloor(time.Now())
	from := today.AddDate(0, 0, -lookbackDays)
	if latest, ok, err := i.store.LatestDate(ctx, base, quote); err != nil {
		return err
	} else if ok {
		next := latest.AddDate(0, 0, 1)
		if next.After(from) {
			from = next
		}
	}
	if from.After(today) {
		i.logger.WithFields(map[string]interface{}{
			"base": base, "quote": quote,
		}).Debug("rates already up to date")
		return nil
	}

	quotes, err := i.provider.FetchDaily(ctx, base, quote, from, today)
	if err != nil {
		return err
	}

	filled := FillMissingDates(quotes, from, today)
	if len(filled) == 0 {
		i.logger.WithFields(map[string]interface{}{
			"base": base, "quote": quote,
		}).Warn("provider returned no quotes for range")
		return nil
	}

	rates := make([]models.CurrencyRate, 0, len(filled)*4)
	one := decimal.NewFromInt(1)
	for _, fr := range filled {
		rates = append(rates,
			models.CurrencyRate{Date: fr.Date, SourceCurrencyCode: base, TargetCurrencyCode: quote, Rate: fr.Rate},
			models.CurrencyRate{Date: fr.Date, SourceCurrencyCode: quote, TargetCurrencyCode: base, Rate: one.Div(fr.Rate)},
		)
	}
	rates = append(rates, SameCurrencyRates(filled, base, quote)...)

	if err := i.store.Upsert(ctx, rates); err != nil {
		return err
	}
	i.logger.WithFields(map[string]interface{}{
		"base": base, "quote": quote, "rows": len(rates),
	}).Info("ingested currency rates")
	return nil
}

// IngestAll runs IngestPair for every base currency against the quote
// currency, stopping at the first error.
func (i *RatesIngestor) IngestAll(ctx context.Context, bases []string, quote string, lookbackDays int) error {
	for _, base := range bases {
		if err := i.IngestPair(ctx, base, quote, lookbackDays); err != nil {
			return err
		}
	}
	return nil
}

// FilledRate is one day's effective rate after gap filling.
type FilledRate struct {
	Date time.Time
	Rate decimal.Decimal
}

// FillMissingDates produces one rate per day of [from, to], carrying the
// last quoted rate forward across days the provider skipped. Days before
// the first available quote are omitted since there is nothing to carry.
func FillMissingDates(quotes map[string]decimal.Decimal, from, to time.Time) []FilledRate {
	var filled []FilledRate
	var last *decimal.Decimal
	for day := models.DayFloor(from); !day.After(models.DayFloor(to)); day = day.AddDate(0, 0, 1) {
		if quoted, ok := quotes[day.Format("2006-01-02")]; ok {
			last = &quoted
		}
		if last == nil {
			continue
		}
		filled = append(filled, FilledRate{Date: day, Rate: *last})
	}
	return filled
}

// SameCurrencyRates emits the identity rate rows (X->X at 1.0) for both
// currencies on every filled date. The engine short-circuits same-currency
// conversions anyway; these rows keep the table self-consistent for other
// readers.
func SameCurrencyRates(filled []FilledRate, currencies ...string) []models.CurrencyRate {
	one := decimal.NewFromInt(1)
	rates := make([]models.CurrencyRate, 0, len(filled)*len(currencies))
	for _, fr := range filled {
		for _, code := range currencies {
			rates = append(rates, models.CurrencyRate{
				Date:               fr.Date,
				SourceCurrencyCode: code,
				TargetCurrencyCode: code,
				Rate:               one,
			})
		}
	}
	return rates
}
