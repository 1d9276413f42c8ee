package users

import "errors"

var (
	ErrNotFound       = errors.New("user not found")
	ErrEmailRequired  = errors.New("email is required")
	ErrNameRequired   = errors.New("name is required")
	ErrWeakPassword   = errors.New("password must be at least 8 characters")
	ErrDuplicateEmail = errors.New("email already registered")
)
