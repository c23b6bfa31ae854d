package models

import "time"

// AccountType classifies an account for presentation purposes.
type AccountType string

const (
	AccountTypeChecking AccountType = "CheckingAccount"
)

// ValidAccountType reports whether t is a supported account type.
func ValidAccountType(t AccountType) bool {
	return t == AccountTypeChecking
}

// Account is a node in a tenant's account forest. IDs are tenant-scoped
// strings; ParentID is nil for root accounts.
type Account struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenantId"`
	DisplayName string       `json:"displayName"`
	Icon        *string      `json:"icon,omitempty"`
	Type        *AccountType `json:"type,omitempty"`
	ParentID    *string      `json:"parentId,omitempty"`
	ChildCount  int64        `json:"childCount"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
