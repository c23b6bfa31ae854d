package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/household-ledger/internal/retry"
)

func newTestProvider(serverURL string) *HTTPRateProvider {
	p := NewHTTPRateProvider(serverURL, 1000)
	p.retry = &retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	return p
}

func TestFetchDaily_ParsesTimeSeries(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"base": "USD",
			"rates": {
				"2026-01-02": {"ILS": 3.61},
				"2026-01-05": {"ILS": 3.58}
			}
		}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)

	quotes, err := provider.FetchDaily(context.Background(), "USD", "ILS", from, to)
	require.NoError(t, err)

	assert.Equal(t, "/2026-01-01..2026-01-07", gotPath)
	assert.Equal(t, "base=USD&symbols=ILS", gotQuery)
	require.Len(t, quotes, 2)
	assert.Equal(t, "3.61", quotes["2026-01-02"].String())
	assert.Equal(t, "3.58", quotes["2026-01-05"].String())
}

func TestFetchDaily_SkipsDaysMissingTheSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rates": {"2026-01-02": {"EUR": 0.9}}}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	quotes, err := provider.FetchDaily(context.Background(), "USD", "ILS",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestFetchDaily_ErrorStatusFailsAfterRetries(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	_, err := provider.FetchDaily(context.Background(), "USD", "ILS",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Equal(t, 2, hits)
}

func TestFetchDaily_RetriesTransientFailure(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"rates": {"2026-01-02": {"ILS": 3.6}}}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	quotes, err := provider.FetchDaily(context.Background(), "USD", "ILS",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "3.6", quotes["2026-01-02"].String())
	assert.Equal(t, 2, hits)
}
