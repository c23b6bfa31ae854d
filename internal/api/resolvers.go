package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/household-ledger/internal/dal"
	"github.com/household-ledger/internal/ledgererr"
	"github.com/household-ledger/internal/models"
	"github.com/household-ledger/internal/request"
)

// RegisterResolvers wires every operation field to the executor. Resolvers
// are thin: argument parsing plus data-access calls; the executor owns the
// transaction lifecycle around them.
func RegisterResolvers(ex *request.Executor) {
	ex.RegisterQuery("tenants", resolveTenants)
	ex.RegisterQuery("tenant", resolveTenant)
	ex.RegisterQuery("accounts", resolveAccounts)
	ex.RegisterQuery("transactions", resolveTransactions)
	ex.RegisterQuery("currencyRates", resolveCurrencyRates)
	ex.RegisterQuery("accountBalance", resolveAccountBalance)
	ex.RegisterQuery("accountBalanceOverTime", resolveAccountBalanceOverTime)
	ex.RegisterQuery("accountsBalanceOverTime", resolveAccountsBalanceOverTime)

	ex.RegisterMutation("createTenant", resolveCreateTenant)
	ex.RegisterMutation("deleteTenant", resolveDeleteTenant)
	ex.RegisterMutation("createAccount", resolveCreateAccount)
	ex.RegisterMutation("moveAccount", resolveMoveAccount)
	ex.RegisterMutation("deleteAccount", resolveDeleteAccount)
	ex.RegisterMutation("createTransaction", resolveCreateTransaction)
	ex.RegisterMutation("deleteTransaction", resolveDeleteTransaction)
	ex.RegisterMutation("upsertCurrencyRates", resolveUpsertCurrencyRates)
}

// Queries

func resolveTenants(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	return d.Tenants.List(ctx)
}

func resolveTenant(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	id, err := stringVar(vars, "id")
	if err != nil {
		return nil, err
	}
	return d.Tenants.GetByID(ctx, id)
}

func resolveAccounts(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	tenantID, err := stringVar(vars, "tenantID")
	if err != nil {
		return nil, err
	}
	return d.Accounts.ListByTenant(ctx, tenantID)
}

func resolveTransactions(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	tenantID, err := stringVar(vars, "tenantID")
	if err != nil {
		return nil, err
	}
	return d.Transactions.ListByTenant(ctx, tenantID, optionalStringVar(vars, "accountID"))
}

func resolveCurrencyRates(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	source, err := stringVar(vars, "sourceCurrencyCode")
	if err != nil {
		return nil, err
	}
	target, err := stringVar(vars, "targetCurrencyCode")
	if err != nil {
		return nil, err
	}
	start, err := timeVar(vars, "startDate")
	if err != nil {
		return nil, err
	}
	end, err := timeVar(vars, "endDate")
	if err != nil {
		return nil, err
	}
	return d.Rates.GetRange(ctx, source, target, start, end)
}

func resolveAccountBalance(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	tenantID, accountID, currency, err := balanceArgs(vars)
	if err != nil {
		return nil, err
	}
	until, err := optionalTimeVar(vars, "until")
	if err != nil {
		return nil, err
	}
	return d.Balances.ComputeBalance(ctx, tenantID, accountID, currency, until)
}

func resolveAccountBalanceOverTime(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	tenantID, accountID, currency, err := balanceArgs(vars)
	if err != nil {
		return nil, err
	}
	start, end, err := dateRangeArgs(vars)
	if err != nil {
		return nil, err
	}
	return d.Balances.ComputeBalanceOverTime(ctx, tenantID, accountID, currency, start, end)
}

func resolveAccountsBalanceOverTime(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	tenantID, err := stringVar(vars, "tenantID")
	if err != nil {
		return nil, err
	}
	accountIDs, err := stringListVar(vars, "accountIDs")
	if err != nil {
		return nil, err
	}
	currency, err := stringVar(vars, "currency")
	if err != nil {
		return nil, err
	}
	start, end, err := dateRangeArgs(vars)
	if err != nil {
		return nil, err
	}
	return d.Balances.ComputeBalancesOverTime(ctx, tenantID, accountIDs, currency, start, end)
}

// Mutations

func resolveCreateTenant(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	displayName, err := stringVar(vars, "displayName")
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	if explicit := optionalStringVar(vars, "id"); explicit != nil {
		id = *explicit
	}

	tenant := &models.Tenant{ID: id, DisplayName: displayName}
	if err := d.Tenants.Insert(ctx, tenant); err != nil {
		return nil, err
	}

	// Every tenant starts with a root checking node and an "unknown"
	// catch-all for transactions with one unresolved endpoint.
	checkingType := models.AccountTypeChecking
	root := &models.Account{
		ID:          models.RootAccountID,
		TenantID:    id,
		DisplayName: "Checking Accounts",
		Type:        &checkingType,
	}
	unknown := &models.Account{
		ID:          models.UnknownAccountID,
		TenantID:    id,
		DisplayName: "Unknown",
	}
	if err := d.Accounts.Insert(ctx, root); err != nil {
		return nil, err
	}
	if err := d.Accounts.Insert(ctx, unknown); err != nil {
		return nil, err
	}
	return tenant, nil
}

func resolveDeleteTenant(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	id, err := stringVar(vars, "id")
	if err != nil {
		return nil, err
	}
	if err := d.Tenants.Delete(ctx, id); err != nil {
		return nil, err
	}
	return true, nil
}

func resolveCreateAccount(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	tenantID, err := stringVar(vars, "tenantID")
	if err != nil {
		return nil, err
	}
	id, err := stringVar(vars, "id")
	if err != nil {
		return nil, err
	}
	displayName, err := stringVar(vars, "displayName")
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:          id,
		TenantID:    tenantID,
		DisplayName: displayName,
		Icon:        optionalStringVar(vars, "icon"),
		ParentID:    optionalStringVar(vars, "parentID"),
	}
	if raw := optionalStringVar(vars, "type"); raw != nil {
		accountType := models.AccountType(*raw)
		if !models.ValidAccountType(accountType) {
			return nil, ledgererr.NewValidation("type", "unsupported account type: "+*raw)
		}
		account.Type = &accountType
	}
	if account.ParentID != nil {
		if _, err := d.Accounts.GetByID(ctx, tenantID, *account.ParentID); err != nil {
			return nil, err
		}
	}
	if err := d.Accounts.Insert(ctx, account); err != nil {
		return nil, err
	}
	return d.Accounts.GetByID(ctx, tenantID, id)
}

func resolveMoveAccount(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	tenantID, err := stringVar(vars, "tenantID")
	if err != nil {
		return nil, err
	}
	id, err := stringVar(vars, "id")
	if err != nil {
		return nil, err
	}
	parentID := optionalStringVar(vars, "parentID")
	if parentID != nil {
		if _, err := d.Accounts.GetByID(ctx, tenantID, *parentID); err != nil {
			return nil, err
		}
		// The new parent must not sit inside the moved account's own
		// subtree, or the forest would gain a cycle.
		subtree, err := d.Accounts.Subtree(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		for _, member := range subtree {
			if member == *parentID {
				return nil, ledgererr.NewValidation("parentID", "cannot move an account into its own subtree")
			}
		}
	}
	if err := d.Accounts.Move(ctx, tenantID, id, parentID); err != nil {
		return nil, err
	}
	return d.Accounts.GetByID(ctx, tenantID, id)
}

func resolveDeleteAccount(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	tenantID, err := stringVar(vars, "tenantID")
	if err != nil {
		return nil, err
	}
	id, err := stringVar(vars, "id")
	if err != nil {
		return nil, err
	}
	if err := d.Accounts.Delete(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return true, nil
}

func resolveCreateTransaction(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	tenantID, err := stringVar(vars, "tenantID")
	if err != nil {
		return nil, err
	}
	date, err := timeVar(vars, "date")
	if err != nil {
		return nil, err
	}
	referenceID, err := stringVar(vars, "referenceID")
	if err != nil {
		return nil, err
	}
	amount, err := decimalVar(vars, "amount")
	if err != nil {
		return nil, err
	}
	currency, err := stringVar(vars, "currency")
	if err != nil {
		return nil, err
	}
	sourceAccountID, err := stringVar(vars, "sourceAccountID")
	if err != nil {
		return nil, err
	}
	targetAccountID, err := stringVar(vars, "targetAccountID")
	if err != nil {
		return nil, err
	}
	if sourceAccountID == models.UnknownAccountID && targetAccountID == models.UnknownAccountID {
		return nil, ledgererr.NewValidation("accounts", "at least one endpoint must be a real account")
	}

	tx := &models.Transaction{
		TenantID:        tenantID,
		Date:            date,
		Sequence:        intVar(vars, "sequence", 0),
		ReferenceID:     referenceID,
		Amount:          amount,
		Currency:        currency,
		SourceAccountID: sourceAccountID,
		TargetAccountID: targetAccountID,
	}
	if description := optionalStringVar(vars, "description"); description != nil {
		tx.Description = *description
	}
	if err := d.Transactions.Insert(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func resolveDeleteTransaction(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	tenantID, err := stringVar(vars, "tenantID")
	if err != nil {
		return nil, err
	}
	id, err := stringVar(vars, "id")
	if err != nil {
		return nil, err
	}
	if err := d.Transactions.Delete(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return true, nil
}

func resolveUpsertCurrencyRates(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error) {
	raw, ok := vars["rates"].([]interface{})
	if !ok {
		return nil, ledgererr.NewValidation("rates", "must be a list")
	}
	rates := make([]models.CurrencyRate, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, ledgererr.NewValidation("rates", "each entry must be an object")
		}
		date, err := timeVar(entry, "date")
		if err != nil {
			return nil, err
		}
		source, err := stringVar(entry, "sourceCurrencyCode")
		if err != nil {
			return nil, err
		}
		target, err := stringVar(entry, "targetCurrencyCode")
		if err != nil {
			return nil, err
		}
		rate, err := decimalVar(entry, "rate")
		if err != nil {
			return nil, err
		}
		rates = append(rates, models.CurrencyRate{
			Date:               date,
			SourceCurrencyCode: source,
			TargetCurrencyCode: target,
			Rate:               rate,
		})
	}
	if err := d.Rates.Upsert(ctx, rates); err != nil {
		return nil, err
	}
	return len(rates), nil
}

// Shared argument helpers.

func balanceArgs(vars map[string]interface{}) (tenantID, accountID, currency string, err error) {
	if tenantID, err = stringVar(vars, "tenantID"); err != nil {
		return
	}
	if accountID, err = stringVar(vars, "accountID"); err != nil {
		return
	}
	currency, err = stringVar(vars, "currency")
	return
}

func dateRangeArgs(vars map[string]interface{}) (start, end time.Time, err error) {
	if start, err = timeVar(vars, "startDate"); err != nil {
		return
	}
	end, err = timeVar(vars, "endDate")
	return
}

func stringVar(vars map[string]interface{}, key string) (string, error) {
	value, ok := vars[key].(string)
	if !ok || value == "" {
		return "", ledgererr.NewValidation(key, "required string variable")
	}
	return value, nil
}

func optionalStringVar(vars map[string]interface{}, key string) *string {
	if value, ok := vars[key].(string); ok && value != "" {
		return &value
	}
	return nil
}

func stringListVar(vars map[string]interface{}, key string) ([]string, error) {
	raw, ok := vars[key].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, ledgererr.NewValidation(key, "required non-empty string list")
	}
	values := make([]string, 0, len(raw))
	for _, item := range raw {
		value, ok := item.(string)
		if !ok || value == "" {
			return nil, ledgererr.NewValidation(key, "entries must be non-empty strings")
		}
		values = append(values, value)
	}
	return values, nil
}

func intVar(vars map[string]interface{}, key string, defaultValue int) int {
	if value, ok := vars[key].(float64); ok {
		return int(value)
	}
	return defaultValue
}

// timeVar accepts RFC 3339 timestamps and bare ISO dates.
func timeVar(vars map[string]interface{}, key string) (time.Time, error) {
	raw, ok := vars[key].(string)
	if !ok || raw == "" {
		return time.Time{}, ledgererr.NewValidation(key, "required date variable")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, ledgererr.NewValidation(key, "must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

func optionalTimeVar(vars map[string]interface{}, key string) (*time.Time, error) {
	if _, present := vars[key]; !present {
		return nil, nil
	}
	t, err := timeVar(vars, key)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// decimalVar accepts amounts as strings (preferred, lossless) or JSON
// numbers.
func decimalVar(vars map[string]interface{}, key string) (decimal.Decimal, error) {
	switch value := vars[key].(type) {
	case string:
		parsed, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, ledgererr.NewValidation(key, "malformed decimal")
		}
		return parsed, nil
	case float64:
		return decimal.NewFromFloat(value), nil
	default:
		return decimal.Zero, ledgererr.NewValidation(key, "required decimal variable")
	}
}
