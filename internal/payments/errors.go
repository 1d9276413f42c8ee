package payments

import "errors"

// Domain errors for payments.
var (
	ErrNotFound        = errors.New("payment not found")
	ErrInvoiceNotFound = errors.New("invoice not found")

	ErrInvalidAmount    = errors.New("payment amount must be greater than zero")
	ErrExceedsBalance   = errors.New("payment exceeds remaining invoice balance")
	ErrInvalidMethod    = errors.New("unknown payment method")
	ErrInvoiceNotOpen   = errors.New("invoice does not accept payments in its current status")
	ErrBankNameRequired = errors.New("bank name is required for this method")
	ErrChequeRequired   = errors.New("cheque number is required for cheque payments")
	ErrGatewayRequired  = errors.New("gateway reference is required for online payments")

	ErrReasonRequired   = errors.New("rejection reason is required")
	ErrAlreadyFinalized = errors.New("payment verification is already finalized")
	ErrNotPendingReview = errors.New("payment is not pending verification")
)
