// Package models defines the domain entities shared across storage and services.
package models

import "time"

// Tenant is an isolated household namespace. Every other entity is scoped
// by tenant ID.
type Tenant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Built-in accounts created alongside every tenant.
const (
	RootAccountID    = "checking"
	UnknownAccountID = "unknown"
)
