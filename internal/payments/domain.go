// Package payments records customer payments against invoices and keeps the
// invoice payment status reconciled with its verified payment total.
package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pressroom-erp/pressroom-erp/internal/invoices"
)

// Method is how a payment was made.
type Method string

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodCheque       Method = "cheque"
	MethodOnline       Method = "online"
)

// IsValid checks if the method is valid.
func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCheque, MethodOnline:
		return true
	default:
		return false
	}
}

// RequiresBankName reports whether the method needs a bank reference.
func (m Method) RequiresBankName() bool {
	return m == MethodBankTransfer || m == MethodCheque
}

// RequiresChequeNumber reports whether the method needs a cheque number.
func (m Method) RequiresChequeNumber() bool {
	return m == MethodCheque
}

// RequiresGatewayReference reports whether the method needs a gateway id.
func (m Method) RequiresGatewayReference() bool {
	return m == MethodOnline
}

// VerificationStatus tracks the review state of a payment.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// IsTerminal reports whether no further verification transitions exist.
func (v VerificationStatus) IsTerminal() bool {
	return v == VerificationVerified || v == VerificationRejected
}

// Status reflects whether the payment counts into the invoice's paid total.
// Only completed payments do.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Payment is money received against an invoice.
type Payment struct {
	ID                 int64              `json:"id"`
	InvoiceID          int64              `json:"invoice_id"`
	ReceiptNumber      string             `json:"receipt_number"`
	Amount             decimal.Decimal    `json:"amount"`
	Method             Method             `json:"method"`
	PaymentDate        time.Time          `json:"payment_date"`
	BankName           *string            `json:"bank_name,omitempty"`
	ChequeNumber       *string            `json:"cheque_number,omitempty"`
	GatewayReference   *string            `json:"gateway_reference,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	Status             Status             `json:"status"`
	RejectionReason    *string            `json:"rejection_reason,omitempty"`
	VerifiedBy         *int64             `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	RecordedBy         int64              `json:"recorded_by"`
	Notes              *string            `json:"notes,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// DerivePaymentStatus maps verified totals onto the invoice payment status.
func DerivePaymentStatus(totalAmount, totalPaid decimal.Decimal) invoices.PaymentStatus {
	return invoices.DerivePaymentStatus(totalAmount, totalPaid)
}
