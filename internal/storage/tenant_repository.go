package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/household-ledger/internal/ledgererr"
	"github.com/household-ledger/internal/models"
)

// TenantRepository handles tenant persistence.
type TenantRepository struct {
	q Querier
}

// NewTenantRepository creates a tenant repository over q.
func NewTenantRepository(q Querier) *TenantRepository {
	return &TenantRepository{q: q}
}

// Insert creates a new tenant.
func (r *TenantRepository) Insert(ctx context.Context, tenant *models.Tenant) error {
	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	tag, err := r.q.Exec(ctx, `
		INSERT INTO tenants (id, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, tenant.ID, tenant.DisplayName, tenant.CreatedAt, tenant.UpdatedAt)
	if err != nil {
		return ledgererr.NewDatabase("insert tenant", err)
	}
	if tag.RowsAffected() != 1 {
		return ledgererr.NewIntegrity("insert tenant", 1, tag.RowsAffected())
	}
	return nil
}

// GetByID retrieves a tenant by ID.
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	var t models.Tenant
	err := r.q.QueryRow(ctx, `
		SELECT id, display_name, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`, id).Scan(&t.ID, &t.DisplayName, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledgererr.NewNotFound("tenant", id)
		}
		return nil, ledgererr.NewDatabase("get tenant", err)
	}
	return &t, nil
}

// List returns all tenants ordered by creation time.
func (r *TenantRepository) List(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, display_name, created_at, updated_at
		FROM tenants
		ORDER BY created_at
	`)
	if err != nil {
		return nil, ledgererr.NewDatabase("list tenants", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.DisplayName, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, ledgererr.NewDatabase("scan tenant", err)
		}
		tenants = append(tenants, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, ledgererr.NewDatabase("list tenants", err)
	}
	return tenants, nil
}

// Delete removes a tenant. Accounts and transactions cascade at the
// schema level.
func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return ledgererr.NewDatabase("delete tenant", err)
	}
	if tag.RowsAffected() == 0 {
		return ledgererr.NewNotFound("tenant", id)
	}
	return nil
}
