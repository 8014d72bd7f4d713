package accounts

import "errors"

var (
	// ErrNotFound indicates the target account does not exist for the tenant.
	ErrNotFound = errors.New("accounts: account not found")
	// ErrDuplicate indicates a unique constraint other than the system-account key tripped.
	ErrDuplicate = errors.New("accounts: duplicate account")
	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("accounts: validation failed")
	// ErrConflict indicates a concurrent insert won the system-account key.
	ErrConflict = errors.New("accounts: system account conflict")
	// ErrCycle indicates the parent links form a loop.
	ErrCycle = errors.New("accounts: parent cycle detected")
)
