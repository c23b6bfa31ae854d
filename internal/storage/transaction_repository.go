package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/household-ledger/internal/ledgererr"
	"github.com/household-ledger/internal/models"
)

// TransactionRepository handles ledger persistence. Transactions are
// append-mostly: ingestion re-runs hit the natural-key conflict path and
// only bump the sequence.
type TransactionRepository struct {
	q Querier
}

// NewTransactionRepository creates a transaction repository over q.
func NewTransactionRepository(q Querier) *TransactionRepository {
	return &TransactionRepository{q: q}
}

// Insert creates a transaction. The natural key
// (tenant, date, reference ID, source account, target account) dedupes
// idempotent scraper re-runs; on conflict only the sequence is updated.
func (r *TransactionRepository) Insert(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Amount.IsNegative() {
		return ledgererr.NewValidation("amount", "must not be negative")
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	tag, err := r.q.Exec(ctx, `
		INSERT INTO transactions
			(id, tenant_id, date, sequence, reference_id, amount, currency,
			 description, source_account_id, target_account_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id, date, reference_id, source_account_id, target_account_id)
		DO UPDATE SET sequence = EXCLUDED.sequence, updated_at = EXCLUDED.updated_at
	`, tx.ID, tx.TenantID, tx.Date, tx.Sequence, tx.ReferenceID, tx.Amount.String(),
		tx.Currency, tx.Description, tx.SourceAccountID, tx.TargetAccountID,
		tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		return ledgererr.NewDatabase("insert transaction", err)
	}
	if tag.RowsAffected() != 1 {
		return ledgererr.NewIntegrity("insert transaction", 1, tag.RowsAffected())
	}
	return nil
}

// Delete removes a transaction by ID within a tenant.
func (r *TransactionRepository) Delete(ctx context.Context, tenantID, id string) error {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM transactions WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	if err != nil {
		return ledgererr.NewDatabase("delete transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return ledgererr.NewNotFound("transaction", id)
	}
	return nil
}

// ListByTenant returns a tenant's transactions ordered by date then
// sequence, optionally restricted to those touching accountID.
func (r *TransactionRepository) ListByTenant(ctx context.Context, tenantID string, accountID *string) ([]*models.Transaction, error) {
	query := `
		SELECT id, tenant_id, date, sequence, reference_id, amount::text, currency,
		       description, source_account_id, target_account_id, created_at, updated_at
		FROM transactions
		WHERE tenant_id = $1`
	args := []any{tenantID}
	if accountID != nil {
		query += ` AND (source_account_id = $2 OR target_account_id = $2)`
		args = append(args, *accountID)
	}
	query += ` ORDER BY date, sequence`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, ledgererr.NewDatabase("list transactions", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var amount string
		err := rows.Scan(
			&tx.ID, &tx.TenantID, &tx.Date, &tx.Sequence, &tx.ReferenceID, &amount,
			&tx.Currency, &tx.Description, &tx.SourceAccountID, &tx.TargetAccountID,
			&tx.CreatedAt, &tx.UpdatedAt,
		)
		if err != nil {
			return nil, ledgererr.NewDatabase("scan transaction", err)
		}
		tx.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, ledgererr.NewDatabase("parse transaction amount", err)
		}
		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, ledgererr.NewDatabase("list transactions", err)
	}
	return txs, nil
}

// ListBySubtree returns every ledger entry whose source or target falls in
// accountIDs, optionally bounded by an inclusive cutoff. This is the single
// bulk fetch behind the balance engine.
func (r *TransactionRepository) ListBySubtree(ctx context.Context, tenantID string, accountIDs []string, until *time.Time) ([]models.LedgerEntry, error) {
	query := `
		SELECT date, amount::text, currency, source_account_id, target_account_id
		FROM transactions
		WHERE tenant_id = $1
		  AND (source_account_id = ANY($2) OR target_account_id = ANY($2))`
	args := []any{tenantID, accountIDs}
	if until != nil {
		query += ` AND date <= $3`
		args = append(args, *until)
	}
	query += ` ORDER BY date, sequence`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, ledgererr.NewDatabase("list subtree transactions", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var amount string
		if err := rows.Scan(&e.Date, &amount, &e.Currency, &e.SourceAccountID, &e.TargetAccountID); err != nil {
			return nil, ledgererr.NewDatabase("scan ledger entry", err)
		}
		e.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, ledgererr.NewDatabase("parse ledger amount", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ledgererr.NewDatabase("list subtree transactions", err)
	}
	return entries, nil
}
