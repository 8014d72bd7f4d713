package accounts

import "github.com/shopspring/decimal"

type createRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Slug         string `json:"slug" validate:"omitempty,max=64"`
	Code         string `json:"code" validate:"omitempty,max=32"`
	AccountType  string `json:"account_type" validate:"required,max=64"`
	CurrencyCode string `json:"currency_code" validate:"omitempty,len=3"`
	ParentID     *int64 `json:"parent_id" validate:"omitempty,gt=0"`
	Description  string `json:"description" validate:"omitempty,max=500"`
	Active       *bool  `json:"active"`
}

func (r createRequest) input() CreateInput {
	return CreateInput{
		Name:         r.Name,
		Slug:         r.Slug,
		Code:         r.Code,
		AccountType:  AccountType(r.AccountType),
		CurrencyCode: r.CurrencyCode,
		ParentID:     r.ParentID,
		Description:  r.Description,
		Active:       r.Active,
	}
}

type adjustRequest struct {
	Delta *decimal.Decimal `json:"delta" validate:"required"`
}

type bulkStatusRequest struct {
	IDs []int64 `json:"ids" validate:"max=1000,dive,gt=0"`
}

type bulkStatusResponse struct {
	Affected int64 `json:"affected"`
}

type systemAccountRequest struct {
	CurrencyCode string      `json:"currency_code" validate:"omitempty,len=3"`
	Attributes   *Attributes `json:"attributes"`
}

type listResponse struct {
	Accounts []Account `json:"accounts"`
}

type descendantsResponse struct {
	AccountID   int64   `json:"account_id"`
	Descendants []int64 `json:"descendants"`
}
