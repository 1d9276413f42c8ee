package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid occurs when a bearer token cannot be resolved.
	ErrTokenInvalid = errors.New("token invalid or expired")
	// ErrLockNotAcquired occurs when a critical-section lock is held elsewhere.
	ErrLockNotAcquired = errors.New("lock not acquired")
)
