// Package dal exposes the per-request data-access facade. A DAL is built
// fresh for every operation, bound to that operation's single checked-out
// transaction, and must not outlive it.
package dal

import (
	"github.com/household-ledger/internal/service"
	"github.com/household-ledger/internal/storage"
)

// DAL aggregates the per-entity repositories and the balance engine over one
// querier. Binding to a request-scoped transaction gives every read within
// an operation the same snapshot.
type DAL struct {
	Tenants      *storage.TenantRepository
	Accounts     *storage.AccountRepository
	Transactions *storage.TransactionRepository
	Rates        *storage.RateRepository
	Balances     *service.BalanceEngine
}

// New builds a facade over q, which is either a request-scoped transaction
// or, for out-of-request work such as the rates job, the pool itself.
func New(q storage.Querier) *DAL {
	accounts := storage.NewAccountRepository(q)
	transactions := storage.NewTransactionRepository(q)
	rates := storage.NewRateRepository(q)
	return &DAL{
		Tenants:      storage.NewTenantRepository(q),
		Accounts:     accounts,
		Transactions: transactions,
		Rates:        rates,
		Balances:     service.NewBalanceEngine(accounts, transactions, rates),
	}
}
