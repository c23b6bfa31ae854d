// Package adapter holds clients for external data providers.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/household-ledger/internal/retry"
)

// RateProvider fetches daily exchange-rate quotes for a currency pair over
// an inclusive date range. Days the provider has no quote for (weekends,
// bank holidays) are simply absent from the result.
type RateProvider interface {
	FetchDaily(ctx context.Context, base, quote string, from, to time.Time) (map[string]decimal.Decimal, error)
}

// HTTPRateProvider pulls quotes from a frankfurter-style time-series API:
// GET {baseURL}/{from}..{to}?base=USD&symbols=ILS
type HTTPRateProvider struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	retry   *retry.Config
}

// NewHTTPRateProvider creates a provider client limited to requestsPerSec.
func NewHTTPRateProvider(baseURL string, requestsPerSec float64) *HTTPRateProvider {
	return &HTTPRateProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		retry:   retry.DefaultConfig(),
	}
}

// Rates arrive as {"rates": {"2024-01-02": {"ILS": 3.61}}}; values are
// decoded through json.Number to avoid float rounding.
type timeSeriesResponse struct {
	Base     string                            `json:"base"`
	RawRates map[string]map[string]json.Number `json:"rates"`
}

// FetchDaily returns the quoted rate per ISO date string ("2006-01-02").
func (p *HTTPRateProvider) FetchDaily(ctx context.Context, base, quote string, from, to time.Time) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s..%s?base=%s&symbols=%s",
		p.baseURL, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"), base, quote)

	var body []byte
	err := retry.Do(ctx, p.retry, func(ctx context.Context, attempt int) error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("rates provider returned status %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates %s->%s: %w", base, quote, err)
	}

	var parsed timeSeriesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rates response: %w", err)
	}

	quotes := make(map[string]decimal.Decimal, len(parsed.RawRates))
	for day, symbols := range parsed.RawRates {
		raw, ok := symbols[quote]
		if !ok {
			continue
		}
		value, err := decimal.NewFromString(raw.String())
		if err != nil {
			return nil, fmt.Errorf("malformed rate %q for %s: %w", raw.String(), day, err)
		}
		quotes[day] = value
	}
	return quotes, nil
}
