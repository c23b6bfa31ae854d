package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/household-ledger/internal/config"
	"github.com/household-ledger/internal/ledgererr"
	"github.com/household-ledger/internal/models"
)

// Integration round trip against a real Postgres. Skips when the database
// is not reachable, like the Redis-backed tests do for Redis.
func TestRepositories_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := NewPostgresDB(&cfg.Postgres)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer db.Close()

	require.NoError(t, RunMigrations(cfg.Postgres.URL(), "../../migrations"))

	ctx := context.Background()
	tenants := NewTenantRepository(db.Pool())
	accounts := NewAccountRepository(db.Pool())
	transactions := NewTransactionRepository(db.Pool())
	rates := NewRateRepository(db.Pool())

	tenantID := "it-" + uuid.NewString()
	require.NoError(t, tenants.Insert(ctx, &models.Tenant{ID: tenantID, DisplayName: "Integration"}))
	t.Cleanup(func() {
		_ = tenants.Delete(context.Background(), tenantID)
	})

	t.Run("account hierarchy and subtree", func(t *testing.T) {
		root := &models.Account{ID: "checking", TenantID: tenantID, DisplayName: "Checking Accounts"}
		require.NoError(t, accounts.Insert(ctx, root))

		childParent := "checking"
		child := &models.Account{ID: "bank-a", TenantID: tenantID, DisplayName: "Bank A", ParentID: &childParent}
		require.NoError(t, accounts.Insert(ctx, child))

		grandParent := "bank-a"
		grandchild := &models.Account{ID: "bank-a-sub", TenantID: tenantID, DisplayName: "Bank A Sub", ParentID: &grandParent}
		require.NoError(t, accounts.Insert(ctx, grandchild))

		ids, err := accounts.Subtree(ctx, tenantID, "checking")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"checking", "bank-a", "bank-a-sub"}, ids)

		got, err := accounts.GetByID(ctx, tenantID, "checking")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ChildCount)

		_, err = accounts.Subtree(ctx, tenantID, "nonexistent")
		require.Error(t, err)
		assert.True(t, ledgererr.IsNotFound(err))
	})

	t.Run("transaction natural-key upsert", func(t *testing.T) {
		tx := &models.Transaction{
			TenantID:        tenantID,
			Date:            time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			Sequence:        1,
			ReferenceID:     "ref-1",
			Amount:          decimal.RequireFromString("100.50"),
			Currency:        "ILS",
			SourceAccountID: "employer",
			TargetAccountID: "bank-a",
		}
		require.NoError(t, transactions.Insert(ctx, tx))

		dup := *tx
		dup.ID = ""
		dup.Sequence = 2
		require.NoError(t, transactions.Insert(ctx, &dup))

		listed, err := transactions.ListByTenant(ctx, tenantID, nil)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, 2, listed[0].Sequence)
		assert.Equal(t, "100.5", listed[0].Amount.String())

		entries, err := transactions.ListBySubtree(ctx, tenantID, []string{"bank-a"}, nil)
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})

	t.Run("rate upsert and batch lookup", func(t *testing.T) {
		day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
		require.NoError(t, rates.Upsert(ctx, []models.CurrencyRate{
			{Date: day, SourceCurrencyCode: "USD", TargetCurrencyCode: "ILS", Rate: decimal.RequireFromString("3.61")},
		}))

		found, err := rates.Lookup(ctx, []models.RateKey{
			{Date: day, SourceCurrency: "USD", TargetCurrency: "ILS"},
			{Date: day, SourceCurrency: "EUR", TargetCurrency: "ILS"},
		})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "3.61", found[models.RateKey{Date: day, SourceCurrency: "USD", TargetCurrency: "ILS"}].String())

		latest, ok, err := rates.LatestDate(ctx, "USD", "ILS")
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, latest.Before(day))
	})
}
