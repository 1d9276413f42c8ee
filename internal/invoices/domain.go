// Package invoices manages invoice documents, their line items and the
// derived totals produced by the pricing engine.
package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle of an invoice.
type Status string

const (
	StatusDraft      Status = "draft"      // being prepared, items editable
	StatusPending    Status = "pending"    // submitted, awaiting payment
	StatusProcessing Status = "processing" // print job in production
	StatusCompleted  Status = "completed"  // production finished
	StatusCancelled  Status = "cancelled"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanEditItems checks if invoice items may still be changed.
func (s Status) CanEditItems() bool {
	return s == StatusDraft || s == StatusPending
}

// CanSubmit checks if the invoice can move to pending.
func (s Status) CanSubmit() bool {
	return s == StatusDraft
}

// CanCancel checks if the invoice can be cancelled.
func (s Status) CanCancel() bool {
	return s == StatusDraft || s == StatusPending
}

// CanDelete checks if the invoice can be soft deleted.
func (s Status) CanDelete() bool {
	return s == StatusDraft || s == StatusCancelled
}

// PaymentStatus is derived from the invoice's payment aggregates.
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentPaid          PaymentStatus = "paid"
	PaymentRefunded      PaymentStatus = "refunded"
)

// DerivePaymentStatus maps the verified payment total onto a payment status.
// A zero-total invoice is owed nothing and counts as paid.
func DerivePaymentStatus(totalAmount, totalPaid decimal.Decimal) PaymentStatus {
	switch {
	case totalPaid.GreaterThanOrEqual(totalAmount):
		return PaymentPaid
	case totalPaid.IsPositive():
		return PaymentPartiallyPaid
	default:
		return PaymentPending
	}
}

// Invoice is a billing document for one customer and branch.
type Invoice struct {
	ID             int64           `json:"id"`
	Number         string          `json:"number"`
	CustomerID     int64           `json:"customer_id"`
	BranchID       int64           `json:"branch_id"`
	Status         Status          `json:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	WeightCharge   decimal.Decimal `json:"weight_charge"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalWeight    decimal.Decimal `json:"total_weight"`
	Notes          *string         `json:"notes,omitempty"`
	CancelReason   *string         `json:"cancel_reason,omitempty"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      *time.Time      `json:"deleted_at,omitempty"`
	Items          []Item          `json:"items,omitempty"`
}

// Item is a priced invoice line.
type Item struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	ProductID   *int64          `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UnitWeight  decimal.Decimal `json:"unit_weight"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	LineTotal   decimal.Decimal `json:"line_total"`
	LineWeight  decimal.Decimal `json:"line_weight"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PaymentSummary is a read model of a payment attached to an invoice.
type PaymentSummary struct {
	ID                 int64           `json:"id"`
	ReceiptNumber      string          `json:"receipt_number"`
	Amount             decimal.Decimal `json:"amount"`
	Method             string          `json:"method"`
	Status             string          `json:"status"`
	VerificationStatus string          `json:"verification_status"`
	PaymentDate        time.Time       `json:"payment_date"`
}

// WithDetails includes joined data and payment aggregates for display.
type WithDetails struct {
	Invoice
	CustomerName     string           `json:"customer_name"`
	BranchName       string           `json:"branch_name"`
	Payments         []PaymentSummary `json:"payments"`
	PaidAmount       decimal.Decimal  `json:"paid_amount"`
	PendingAmount    decimal.Decimal  `json:"pending_amount"`
	RemainingBalance decimal.Decimal  `json:"remaining_balance"`
	DisplayTotal     string           `json:"display_total"`
	DisplayBalance   string           `json:"display_balance"`
}

// Summary aggregates receivables for the dashboard.
type Summary struct {
	TotalInvoices   int             `json:"total_invoices"`
	ByStatus        map[string]int  `json:"by_status"`
	ReceivableTotal decimal.Decimal `json:"receivable_total"`
	CollectedTotal  decimal.Decimal `json:"collected_total"`
}
