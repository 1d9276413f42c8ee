package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemInput describes one requested invoice line. When ProductID is set the
// catalog supplies any of unit price, unit weight, tax rate and description
// left empty by the caller.
type ItemInput struct {
	ProductID   *int64           `json:"product_id"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	UnitWeight  *decimal.Decimal `json:"unit_weight"`
	TaxRate     *decimal.Decimal `json:"tax_rate"`
}

// CreateInput groups fields required to create an invoice.
type CreateInput struct {
	CustomerID int64           `json:"customer_id" validate:"required,gt=0"`
	BranchID   int64           `json:"branch_id" validate:"required,gt=0"`
	Discount   decimal.Decimal `json:"discount_amount"`
	Notes      *string         `json:"notes"`
	Items      []ItemInput     `json:"items"`
	CreatedBy  int64           `json:"-"`
}

// UpdateItemsInput replaces the invoice's line items and discount.
type UpdateItemsInput struct {
	InvoiceID int64           `json:"-"`
	Discount  decimal.Decimal `json:"discount_amount"`
	Items     []ItemInput     `json:"items"`
	UpdatedBy int64           `json:"-"`
}

// CancelInput wraps parameters for cancellation.
type CancelInput struct {
	InvoiceID   int64
	Reason      string
	CancelledBy int64
}

// ListRequest filters invoice listings.
type ListRequest struct {
	Status        Status
	PaymentStatus PaymentStatus
	CustomerID    int64
	BranchID      int64
	FromDate      time.Time
	ToDate        time.Time
	Page          int
	PerPage       int
}
