package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a double-entry style ledger row: Amount flows from the
// source account to the target account. Sequence breaks ties between
// transactions carrying the same timestamp.
type Transaction struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenantId"`
	Date            time.Time       `json:"date"`
	Sequence        int             `json:"sequence"`
	ReferenceID     string          `json:"referenceId"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	SourceAccountID string          `json:"sourceAccountId"`
	TargetAccountID string          `json:"targetAccountId"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// LedgerEntry is the slice of a transaction the balance engine needs:
// endpoints, amount, currency and date. Repositories return these in bulk.
type LedgerEntry struct {
	Date            time.Time
	Amount          decimal.Decimal
	Currency        string
	SourceAccountID string
	TargetAccountID string
}
