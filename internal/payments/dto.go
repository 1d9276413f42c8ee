package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordInput groups fields required to record a payment.
type RecordInput struct {
	InvoiceID        int64           `json:"invoice_id" validate:"required,gt=0"`
	Amount           decimal.Decimal `json:"amount"`
	Method           Method          `json:"method" validate:"required"`
	PaymentDate      time.Time       `json:"payment_date"`
	BankName         *string         `json:"bank_name"`
	ChequeNumber     *string         `json:"cheque_number"`
	GatewayReference *string         `json:"gateway_reference"`
	Notes            *string         `json:"notes"`
	RecordedBy       int64           `json:"-"`
	IdempotencyKey   string          `json:"-"`
}

// VerifyInput approves a pending payment.
type VerifyInput struct {
	PaymentID  int64
	VerifiedBy int64
}

// RejectInput declines a pending payment with a reason.
type RejectInput struct {
	PaymentID  int64
	Reason     string
	RejectedBy int64
}

// ListRequest filters payment listings.
type ListRequest struct {
	InvoiceID          int64
	VerificationStatus VerificationStatus
	Method             Method
	Page               int
	PerPage            int
}
