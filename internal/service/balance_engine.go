// Package service holds the business logic layered over the repositories:
// the balance aggregation engine and the currency-rates ingestion service.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/household-ledger/internal/ledgererr"
	"github.com/household-ledger/internal/models"
)

// Repository interfaces for dependency injection.

// AccountReader resolves account metadata and subtree closures.
type AccountReader interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.Account, error)
	Subtree(ctx context.Context, tenantID, accountID string) ([]string, error)
}

// LedgerReader bulk-fetches the ledger entries touching a set of accounts.
type LedgerReader interface {
	ListBySubtree(ctx context.Context, tenantID string, accountIDs []string, until *time.Time) ([]models.LedgerEntry, error)
}

// RateLookup batch-resolves conversion factors. Missing keys are simply
// absent from the returned map.
type RateLookup interface {
	Lookup(ctx context.Context, keys []models.RateKey) (map[models.RateKey]decimal.Decimal, error)
}

// BalanceEngine computes point-in-time and time-series balances over an
// account subtree, converting every contributing transaction into a single
// target currency. It never mutates state; results are deterministic for a
// given ledger and rate-table snapshot.
type BalanceEngine struct {
	accounts AccountReader
	ledger   LedgerReader
	rates    RateLookup
}

// NewBalanceEngine creates a balance engine over the given repositories.
func NewBalanceEngine(accounts AccountReader, ledger LedgerReader, rates RateLookup) *BalanceEngine {
	return &BalanceEngine{accounts: accounts, ledger: ledger, rates: rates}
}

// taggedEntry is a ledger entry with its direction relative to a subtree:
// +1 pure inflow, -1 pure outflow, 0 when both endpoints are inside
// (self-transfers net to zero).
type taggedEntry struct {
	entry models.LedgerEntry
	sign  int
}

// ComputeBalance returns the net balance of the account's subtree in the
// target currency. When asOf is non-nil only transactions dated at or
// before it count (inclusive cutoff).
func (e *BalanceEngine) ComputeBalance(ctx context.Context, tenantID, accountID, currency string, asOf *time.Time) (decimal.Decimal, error) {
	tagged, err := e.taggedEntries(ctx, tenantID, accountID, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	factors, err := e.conversionFactors(ctx, tagged, currency)
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, t := range tagged {
		balance = balance.Add(t.contribution(currency, factors))
	}
	return balance, nil
}

// ComputeBalanceOverTime returns the subtree's cumulative balance for each
// day of the inclusive [start, end] range, collapsed so consecutive equal
// balances keep only their first point. The whole range is served by one
// ledger fetch and one batch rate lookup.
func (e *BalanceEngine) ComputeBalanceOverTime(ctx context.Context, tenantID, accountID, currency string, start, end time.Time) ([]models.BalancePoint, error) {
	startDay := models.DayFloor(start)
	endDay := models.DayFloor(end)
	if endDay.Before(startDay) {
		return nil, ledgererr.NewValidation("date range", "end date precedes start date")
	}

	// Fetch through the end of the last requested day so boundary
	// transactions are included.
	until := endDay.Add(24*time.Hour - time.Nanosecond)
	tagged, err := e.taggedEntries(ctx, tenantID, accountID, &until)
	if err != nil {
		return nil, err
	}
	factors, err := e.conversionFactors(ctx, tagged, currency)
	if err != nil {
		return nil, err
	}

	// Daily deltas plus everything strictly before the range, which seeds
	// the opening balance of the first day.
	opening := decimal.Zero
	deltaByDay := make(map[time.Time]decimal.Decimal)
	for _, t := range tagged {
		day := models.DayFloor(t.entry.Date)
		value := t.contribution(currency, factors)
		if day.Before(startDay) {
			opening = opening.Add(value)
			continue
		}
		deltaByDay[day] = deltaByDay[day].Add(value)
	}

	var points []models.BalancePoint
	running := opening
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		running = running.Add(deltaByDay[day])
		if len(points) == 0 || !points[len(points)-1].Balance.Equal(running) {
			points = append(points, models.BalancePoint{Date: day, Balance: running})
		}
	}
	return points, nil
}

// ComputeBalancesOverTime applies ComputeBalanceOverTime to each account in
// turn. Subtrees may overlap; each series is computed from scratch. The
// fetches are sequential on purpose, keeping pressure on the shared
// connection bounded.
func (e *BalanceEngine) ComputeBalancesOverTime(ctx context.Context, tenantID string, accountIDs []string, currency string, start, end time.Time) ([]models.AccountBalanceSeries, error) {
	results := make([]models.AccountBalanceSeries, 0, len(accountIDs))
	for _, accountID := range accountIDs {
		account, err := e.accounts.GetByID(ctx, tenantID, accountID)
		if err != nil {
			return nil, err
		}
		points, err := e.ComputeBalanceOverTime(ctx, tenantID, accountID, currency, start, end)
		if err != nil {
			return nil, err
		}
		results = append(results, models.AccountBalanceSeries{Account: *account, Points: points})
	}
	return results, nil
}

// taggedEntries expands the subtree, fetches the touching ledger entries in
// one round trip and tags each with its direction.
func (e *BalanceEngine) taggedEntries(ctx context.Context, tenantID, accountID string, until *time.Time) ([]taggedEntry, error) {
	ids, err := e.accounts.Subtree(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	member := make(map[string]bool, len(ids))
	for _, id := range ids {
		member[id] = true
	}

	entries, err := e.ledger.ListBySubtree(ctx, tenantID, ids, until)
	if err != nil {
		return nil, err
	}

	tagged := make([]taggedEntry, 0, len(entries))
	for _, entry := range entries {
		sourceIn := member[entry.SourceAccountID]
		targetIn := member[entry.TargetAccountID]
		switch {
		case targetIn && !sourceIn:
			tagged = append(tagged, taggedEntry{entry: entry, sign: 1})
		case sourceIn && !targetIn:
			tagged = append(tagged, taggedEntry{entry: entry, sign: -1})
		case sourceIn && targetIn:
			tagged = append(tagged, taggedEntry{entry: entry, sign: 0})
		}
	}
	return tagged, nil
}

// conversionFactors batch-resolves the rate for every distinct
// (day, currency) pair among the entries. Same-currency entries need no
// lookup at all.
func (e *BalanceEngine) conversionFactors(ctx context.Context, tagged []taggedEntry, currency string) (map[models.RateKey]decimal.Decimal, error) {
	seen := make(map[models.RateKey]bool)
	var keys []models.RateKey
	for _, t := range tagged {
		if t.entry.Currency == currency || t.sign == 0 {
			continue
		}
		key := models.RateKey{
			Date:           models.DayFloor(t.entry.Date),
			SourceCurrency: t.entry.Currency,
			TargetCurrency: currency,
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return map[models.RateKey]decimal.Decimal{}, nil
	}
	return e.rates.Lookup(ctx, keys)
}

// contribution is the entry's signed amount in the target currency. A
// missing rate row deliberately falls back to a 1:1 conversion instead of
// failing the whole computation; callers should treat such balances as an
// approximation.
func (t taggedEntry) contribution(currency string, factors map[models.RateKey]decimal.Decimal) decimal.Decimal {
	if t.sign == 0 {
		return decimal.Zero
	}
	value := t.entry.Amount
	if t.entry.Currency != currency {
		key := models.RateKey{
			Date:           models.DayFloor(t.entry.Date),
			SourceCurrency: t.entry.Currency,
			TargetCurrency: currency,
		}
		if factor, ok := factors[key]; ok {
			value = value.Mul(factor)
		}
	}
	if t.sign < 0 {
		return value.Neg()
	}
	return value
}
