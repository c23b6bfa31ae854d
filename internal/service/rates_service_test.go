package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/household-ledger/internal/logging"
	"github.com/household-ledger/internal/models"
)

type mockRateProvider struct {
	quotes    map[string]decimal.Decimal
	lastFrom  time.Time
	lastTo    time.Time
	fetchedAt int
}

func (m *mockRateProvider) FetchDaily(ctx context.Context, base, quote string, from, to time.Time) (map[string]decimal.Decimal, error) {
	m.fetchedAt++
	m.lastFrom = from
	m.lastTo = to
	return m.quotes, nil
}

type mockRateStore struct {
	upserted []models.CurrencyRate
	latest   *time.Time
}

func (m *mockRateStore) Upsert(ctx context.Context, rates []models.CurrencyRate) error {
	m.upserted = append(m.upserted, rates...)
	return nil
}

func (m *mockRateStore) LatestDate(ctx context.Context, source, target string) (time.Time, bool, error) {
	if m.latest == nil {
		return time.Time{}, false, nil
	}
	return *m.latest, true, nil
}

func testLogger() *logging.Logger {
	return logging.New(logging.LevelError, logging.FormatText)
}

func TestFillMissingDates_CarriesForward(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 4)
	quotes := map[string]decimal.Decimal{
		"2026-01-01": decimal.RequireFromString("3.5"),
		"2026-01-04": decimal.RequireFromString("3.6"),
	}

	filled := FillMissingDates(quotes, from, to)
	require.Len(t, filled, 5)
	assert.Equal(t, "3.5", filled[0].Rate.String())
	assert.Equal(t, "3.5", filled[1].Rate.String())
	assert.Equal(t, "3.5", filled[2].Rate.String())
	assert.Equal(t, "3.6", filled[3].Rate.String())
	assert.Equal(t, "3.6", filled[4].Rate.String())
}

func TestFillMissingDates_OmitsDaysBeforeFirstQuote(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 3)
	quotes := map[string]decimal.Decimal{
		"2026-01-03": decimal.RequireFromString("3.5"),
	}

	filled := FillMissingDates(quotes, from, to)
	require.Len(t, filled, 2)
	assert.Equal(t, from.AddDate(0, 0, 2), filled[0].Date)
}

func TestFillMissingDates_NoQuotes(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	filled := FillMissingDates(map[string]decimal.Decimal{}, from, from.AddDate(0, 0, 5))
	assert.Empty(t, filled)
}

func TestSameCurrencyRates(t *testing.T) {
	filled := []FilledRate{
		{Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Rate: decimal.RequireFromString("3.5")},
	}
	rates := SameCurrencyRates(filled, "USD", "ILS")
	require.Len(t, rates, 2)
	for _, r := range rates {
		assert.Equal(t, r.SourceCurrencyCode, r.TargetCurrencyCode)
		assert.Equal(t, "1", r.Rate.String())
	}
}

func TestIngestPair_StoresDirectInverseAndIdentity(t *testing.T) {
	today := models.DayFloor(time.Now())
	provider := &mockRateProvider{quotes: map[string]decimal.Decimal{
		today.Format("2006-01-02"): decimal.RequireFromString("4"),
	}}
	store := &mockRateStore{}
	ingestor := NewRatesIngestor(provider, store, testLogger())

	err := ingestor.IngestPair(context.Background(), "USD", "ILS", 0)
	require.NoError(t, err)

	byPair := make(map[[2]string]decimal.Decimal)
	for _, r := range store.upserted {
		byPair[[2]string{r.SourceCurrencyCode, r.TargetCurrencyCode}] = r.Rate
	}
	assert.Equal(t, "4", byPair[[2]string{"USD", "ILS"}].String())
	assert.Equal(t, "0.25", byPair[[2]string{"ILS", "USD"}].String())
	assert.Equal(t, "1", byPair[[2]string{"USD", "USD"}].String())
	assert.Equal(t, "1", byPair[[2]string{"ILS", "ILS"}].String())
}

func TestIngestPair_SkipsWhenUpToDate(t *testing.T) {
	today := models.DayFloor(time.Now())
	provider := &mockRateProvider{}
	store := &mockRateStore{latest: &today}
	ingestor := NewRatesIngestor(provider, store, testLogger())

	err := ingestor.IngestPair(context.Background(), "USD", "ILS", 30)
	require.NoError(t, err)
	assert.Zero(t, provider.fetchedAt)
	assert.Empty(t, store.upserted)
}

func TestIngestPair_ResumesAfterLatestStoredDate(t *testing.T) {
	today := models.DayFloor(time.Now())
	latest := today.AddDate(0, 0, -3)
	provider := &mockRateProvider{quotes: map[string]decimal.Decimal{
		today.Format("2006-01-02"): decimal.RequireFromString("4"),
	}}
	store := &mockRateStore{latest: &latest}
	ingestor := NewRatesIngestor(provider, store, testLogger())

	err := ingestor.IngestPair(context.Background(), "USD", "ILS", 30)
	require.NoError(t, err)
	assert.Equal(t, latest.AddDate(0, 0, 1), provider.lastFrom)
	assert.Equal(t, today, provider.lastTo)
}
