package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyRate is a day-granular conversion factor: 1 unit of the source
// currency equals Rate units of the target currency. The primary key is
// (Date, SourceCurrencyCode, TargetCurrencyCode); inverse pairs are stored
// as independent rows by the ingestion job.
type CurrencyRate struct {
	Date               time.Time       `json:"date"`
	SourceCurrencyCode string          `json:"sourceCurrencyCode"`
	TargetCurrencyCode string          `json:"targetCurrencyCode"`
	Rate               decimal.Decimal `json:"rate"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// RateKey identifies a rate row for batch lookups. Date must be truncated
// to day granularity in UTC.
type RateKey struct {
	Date           time.Time
	SourceCurrency string
	TargetCurrency string
}

// DayFloor truncates t to the start of its UTC calendar day, matching the
// granularity of the rate table.
func DayFloor(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
