package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/household-ledger/internal/ledgererr"
	"github.com/household-ledger/internal/models"
)

// RateRepository handles the currency-rate table. Rates are read-only from
// the balance engine's perspective and upserted by the ingestion job.
type RateRepository struct {
	q Querier
}

// NewRateRepository creates a rate repository over q.
func NewRateRepository(q Querier) *RateRepository {
	return &RateRepository{q: q}
}

// Upsert writes rates, overwriting existing (date, source, target) rows.
func (r *RateRepository) Upsert(ctx context.Context, rates []models.CurrencyRate) error {
	now := time.Now().UTC()
	for i := range rates {
		rate := &rates[i]
		if !rate.Rate.IsPositive() {
			return ledgererr.NewValidation("rate", "must be positive")
		}
		tag, err := r.q.Exec(ctx, `
			INSERT INTO currency_rates
				(date, source_currency_code, target_currency_code, rate, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (date, source_currency_code, target_currency_code)
			DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at
		`, models.DayFloor(rate.Date), rate.SourceCurrencyCode, rate.TargetCurrencyCode,
			rate.Rate.String(), now)
		if err != nil {
			return ledgererr.NewDatabase("upsert currency rate", err)
		}
		if tag.RowsAffected() != 1 {
			return ledgererr.NewIntegrity("upsert currency rate", 1, tag.RowsAffected())
		}
	}
	return nil
}

// Lookup batch-resolves conversion factors for the given keys. Keys with no
// matching row are absent from the result; the engine treats them as 1.0.
func (r *RateRepository) Lookup(ctx context.Context, keys []models.RateKey) (map[models.RateKey]decimal.Decimal, error) {
	result := make(map[models.RateKey]decimal.Decimal, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(keys))
	args := make([]any, 0, len(keys)*3)
	for i, key := range keys {
		placeholders[i] = fmt.Sprintf("($%d::date, $%d, $%d)", i*3+1, i*3+2, i*3+3)
		args = append(args, models.DayFloor(key.Date), key.SourceCurrency, key.TargetCurrency)
	}

	query := `
		SELECT date, source_currency_code, target_currency_code, rate::text
		FROM currency_rates
		WHERE (date, source_currency_code, target_currency_code) IN (` +
		strings.Join(placeholders, ", ") + `)`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, ledgererr.NewDatabase("lookup currency rates", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key models.RateKey
		var rate string
		if err := rows.Scan(&key.Date, &key.SourceCurrency, &key.TargetCurrency, &rate); err != nil {
			return nil, ledgererr.NewDatabase("scan currency rate", err)
		}
		key.Date = models.DayFloor(key.Date)
		parsed, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, ledgererr.NewDatabase("parse currency rate", err)
		}
		result[key] = parsed
	}
	if err := rows.Err(); err != nil {
		return nil, ledgererr.NewDatabase("lookup currency rates", err)
	}
	return result, nil
}

// LatestDate returns the most recent stored date for a currency pair, or
// ok=false when the pair has no rows at all.
func (r *RateRepository) LatestDate(ctx context.Context, source, target string) (time.Time, bool, error) {
	var date *time.Time
	err := r.q.QueryRow(ctx, `
		SELECT max(date)
		FROM currency_rates
		WHERE source_currency_code = $1 AND target_currency_code = $2
	`, source, target).Scan(&date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, ledgererr.NewDatabase("latest rate date", err)
	}
	if date == nil {
		return time.Time{}, false, nil
	}
	return *date, true, nil
}

// GetRange returns the stored rates for a pair within [from, to], ordered
// by date.
func (r *RateRepository) GetRange(ctx context.Context, source, target string, from, to time.Time) ([]models.CurrencyRate, error) {
	rows, err := r.q.Query(ctx, `
		SELECT date, source_currency_code, target_currency_code, rate::text, created_at, updated_at
		FROM currency_rates
		WHERE source_currency_code = $1 AND target_currency_code = $2
		  AND date BETWEEN $3 AND $4
		ORDER BY date
	`, source, target, models.DayFloor(from), models.DayFloor(to))
	if err != nil {
		return nil, ledgererr.NewDatabase("get currency rates", err)
	}
	defer rows.Close()

	var rates []models.CurrencyRate
	for rows.Next() {
		var rate models.CurrencyRate
		var raw string
		err := rows.Scan(&rate.Date, &rate.SourceCurrencyCode, &rate.TargetCurrencyCode,
			&raw, &rate.CreatedAt, &rate.UpdatedAt)
		if err != nil {
			return nil, ledgererr.NewDatabase("scan currency rate", err)
		}
		rate.Rate, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, ledgererr.NewDatabase("parse currency rate", err)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, ledgererr.NewDatabase("get currency rates", err)
	}
	return rates, nil
}
