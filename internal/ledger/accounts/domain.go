package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// TenantID identifies the organisation that owns an account. Every store
// operation is scoped to exactly one tenant.
type TenantID int64

// AccountType tags an account. The two system types are managed by the
// find-or-create operations; any other non-empty value is user-defined.
type AccountType string

const (
	TypeReceivable AccountType = "accounts-receivable"
	TypePayable    AccountType = "accounts-payable"
	TypeAsset      AccountType = "asset"
	TypeLiability  AccountType = "liability"
	TypeEquity     AccountType = "equity"
	TypeIncome     AccountType = "income"
	TypeExpense    AccountType = "expense"
)

// IsSystem reports whether t is kept unique per (tenant, currency).
func (t AccountType) IsSystem() bool {
	return t == TypeReceivable || t == TypePayable
}

// Account is a persisted ledger account.
type Account struct {
	ID           int64           `json:"id"`
	TenantID     TenantID        `json:"tenant_id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Code         string          `json:"code,omitempty"`
	AccountType  AccountType     `json:"account_type"`
	CurrencyCode string          `json:"currency_code"`
	ParentID     *int64          `json:"parent_id,omitempty"`
	Description  string          `json:"description,omitempty"`
	Active       bool            `json:"active"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Attributes overrides computed defaults when a system account is created.
// Nil fields keep the default. Account type and currency are never taken
// from here.
type Attributes struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Slug        *string `json:"slug,omitempty" validate:"omitempty,max=64"`
	Code        *string `json:"code,omitempty" validate:"omitempty,max=32"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	ParentID    *int64  `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
	Active      *bool   `json:"active,omitempty"`
}

func (a *Attributes) applyTo(acc *Account) {
	if a == nil {
		return
	}
	if a.Name != nil {
		acc.Name = *a.Name
	}
	if a.Slug != nil {
		acc.Slug = *a.Slug
	}
	if a.Code != nil {
		acc.Code = *a.Code
	}
	if a.Description != nil {
		acc.Description = *a.Description
	}
	if a.ParentID != nil {
		id := *a.ParentID
		acc.ParentID = &id
	}
	if a.Active != nil {
		acc.Active = *a.Active
	}
}

// CreateInput carries the fields of a generic account creation.
type CreateInput struct {
	Name         string      `validate:"required,max=200"`
	Slug         string      `validate:"omitempty,max=64"`
	Code         string      `validate:"omitempty,max=32"`
	AccountType  AccountType `validate:"required,max=64"`
	CurrencyCode string
	ParentID     *int64 `validate:"omitempty,gt=0"`
	Description  string `validate:"omitempty,max=500"`
	// Active defaults to true when nil.
	Active *bool
}

// ListFilter narrows List results. Zero values do not filter.
type ListFilter struct {
	AccountType  AccountType
	CurrencyCode string
	Active       *bool
	Limit        int
	Offset       int
}

// SystemFilter selects a system account. The currency only takes part in the
// match when MatchCurrency is set.
type SystemFilter struct {
	AccountType   AccountType
	CurrencyCode  string
	MatchCurrency bool
}
