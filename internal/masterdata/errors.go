package masterdata

import "errors"

// Domain errors for master data.
var (
	ErrNotFound        = errors.New("record not found")
	ErrNameRequired    = errors.New("name is required")
	ErrCodeRequired    = errors.New("code is required")
	ErrDuplicateCode   = errors.New("code already in use")
	ErrNegativePrice   = errors.New("unit price must not be negative")
	ErrNegativeWeight  = errors.New("unit weight must not be negative")
	ErrNegativeTaxRate = errors.New("tax rate must not be negative")
)
