package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/household-ledger/internal/ledgererr"
	"github.com/household-ledger/internal/models"
)

// AccountRepository handles account-hierarchy persistence. Accounts form a
// forest per tenant via parent references; subtree expansion stays
// database-resident through a recursive query.
type AccountRepository struct {
	q Querier
}

// NewAccountRepository creates an account repository over q.
func NewAccountRepository(q Querier) *AccountRepository {
	return &AccountRepository{q: q}
}

const accountColumns = `
	a.id, a.tenant_id, a.display_name, a.icon, a.type, a.parent_id,
	(SELECT count(*) FROM accounts c WHERE c.tenant_id = a.tenant_id AND c.parent_id = a.id),
	a.created_at, a.updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var accountType *string
	err := row.Scan(
		&a.ID, &a.TenantID, &a.DisplayName, &a.Icon, &accountType, &a.ParentID,
		&a.ChildCount, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if accountType != nil {
		t := models.AccountType(*accountType)
		a.Type = &t
	}
	return &a, nil
}

// Insert creates a new account.
func (r *AccountRepository) Insert(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	var accountType *string
	if account.Type != nil {
		s := string(*account.Type)
		accountType = &s
	}

	tag, err := r.q.Exec(ctx, `
		INSERT INTO accounts (id, tenant_id, display_name, icon, type, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, account.ID, account.TenantID, account.DisplayName, account.Icon, accountType,
		account.ParentID, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return ledgererr.NewDatabase("insert account", err)
	}
	if tag.RowsAffected() != 1 {
		return ledgererr.NewIntegrity("insert account", 1, tag.RowsAffected())
	}
	return nil
}

// GetByID retrieves an account within a tenant.
func (r *AccountRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Account, error) {
	account, err := scanAccount(r.q.QueryRow(ctx, `
		SELECT`+accountColumns+`
		FROM accounts a
		WHERE a.tenant_id = $1 AND a.id = $2
	`, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledgererr.NewNotFound("account", id)
		}
		return nil, ledgererr.NewDatabase("get account", err)
	}
	return account, nil
}

// ListByTenant returns all of a tenant's accounts with derived child counts.
func (r *AccountRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Account, error) {
	rows, err := r.q.Query(ctx, `
		SELECT`+accountColumns+`
		FROM accounts a
		WHERE a.tenant_id = $1
		ORDER BY a.id
	`, tenantID)
	if err != nil {
		return nil, ledgererr.NewDatabase("list accounts", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, ledgererr.NewDatabase("scan account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, ledgererr.NewDatabase("list accounts", err)
	}
	return accounts, nil
}

// Subtree returns the IDs of the account and all of its transitive
// descendants within the tenant. A nonexistent root yields NotFound.
func (r *AccountRepository) Subtree(ctx context.Context, tenantID, accountID string) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		WITH RECURSIVE subtree AS (
			SELECT id FROM accounts WHERE tenant_id = $1 AND id = $2
			UNION ALL
			SELECT a.id
			FROM accounts a
			JOIN subtree s ON a.parent_id = s.id
			WHERE a.tenant_id = $1
		)
		SELECT id FROM subtree
	`, tenantID, accountID)
	if err != nil {
		return nil, ledgererr.NewDatabase("expand account subtree", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ledgererr.NewDatabase("scan subtree row", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, ledgererr.NewDatabase("expand account subtree", err)
	}
	if len(ids) == 0 {
		return nil, ledgererr.NewNotFound("account", accountID)
	}
	return ids, nil
}

// Move reparents an account. The caller validates that the new parent
// exists in the same tenant.
func (r *AccountRepository) Move(ctx context.Context, tenantID, id string, parentID *string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE accounts
		SET parent_id = $3, updated_at = $4
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id, parentID, time.Now().UTC())
	if err != nil {
		return ledgererr.NewDatabase("move account", err)
	}
	if tag.RowsAffected() == 0 {
		return ledgererr.NewNotFound("account", id)
	}
	if tag.RowsAffected() != 1 {
		return ledgererr.NewIntegrity("move account", 1, tag.RowsAffected())
	}
	return nil
}

// Delete removes an account within a tenant.
func (r *AccountRepository) Delete(ctx context.Context, tenantID, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM accounts WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return ledgererr.NewDatabase("delete account", err)
	}
	if tag.RowsAffected() == 0 {
		return ledgererr.NewNotFound("account", id)
	}
	return nil
}
