package production

import "errors"

// Domain errors for production.
var (
	ErrNotFound        = errors.New("print job not found")
	ErrInvoiceNotFound = errors.New("invoice not found")

	ErrJobExists      = errors.New("print job already exists for invoice")
	ErrInvoiceNotPaid = errors.New("invoice is not fully paid")
	ErrNotPermitted   = errors.New("missing production permission")

	ErrInvalidTransition  = errors.New("invalid production status transition")
	ErrInvalidPriority    = errors.New("unknown priority")
	ErrProgressOutOfRange = errors.New("progress must be between 0 and 100")
	ErrProgressDecreased  = errors.New("progress may not decrease")
	ErrJobFinished        = errors.New("print job is already completed")
)
