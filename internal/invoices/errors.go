package invoices

import "errors"

// Domain errors for invoices.
var (
	ErrNotFound = errors.New("invoice not found")

	ErrCannotEditItems   = errors.New("cannot edit items in current status")
	ErrTotalBelowPaid    = errors.New("invoice total cannot fall below recorded payments")
	ErrCannotSubmit      = errors.New("cannot submit invoice in current status")
	ErrCannotCancel      = errors.New("cannot cancel invoice in current status")
	ErrCannotDelete      = errors.New("cannot delete invoice in current status")
	ErrInvalidTransition = errors.New("invalid invoice status transition")

	ErrCustomerRequired = errors.New("customer is required")
	ErrBranchRequired   = errors.New("branch is required")
	ErrEmptyItems       = errors.New("at least one item is required")
	ErrReasonRequired   = errors.New("cancellation reason is required")
	ErrProductInactive  = errors.New("product is inactive")
	ErrProductNotFound  = errors.New("product not found")
)
