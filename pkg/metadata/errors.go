package metadata

import (
	"errors"
	"fmt"
)

// StoreError represents a domain error from database operations.
//
// These are business logic errors (directory not found, name taken, etc.)
// as opposed to infrastructure errors (transaction conflict, disk error),
// which are returned wrapped but otherwise untouched.
//
// Callers translate StoreError codes to their own response categories
// (not found, forbidden, conflict, internal error).
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// ID is the identifier the error refers to (0 if not applicable)
	ID uint64
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s: %s (id %d)", e.Code, e.Message, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode represents the category of a StoreError.
type ErrorCode int

const (
	// ErrNoSuchFile indicates the file record doesn't exist
	ErrNoSuchFile ErrorCode = iota + 1

	// ErrNoSuchDir indicates the directory record doesn't exist
	ErrNoSuchDir

	// ErrNoSuchTarget is the generic missing-entity error for groups,
	// sessions and permission records
	ErrNoSuchTarget

	// ErrNoSuchUser indicates the user doesn't exist
	ErrNoSuchUser

	// ErrTargetExists indicates a name collision
	ErrTargetExists

	// ErrForbiddenAction indicates the operation is never allowed
	// (removing a root directory) or the principal lacks access
	ErrForbiddenAction

	// ErrInconsistentDbState indicates an invariant the engine relies on
	// was already broken, e.g. a parent missing during a child removal.
	// Never retried by the engine.
	ErrInconsistentDbState

	// ErrBadCall indicates invalid arguments: oversized lists, zero IDs,
	// invalid text
	ErrBadCall

	// ErrEncoding indicates stored bytes are not a valid record
	ErrEncoding

	// ErrInternal indicates a fatal internal failure such as the identifier
	// allocator repeatedly drawing taken IDs
	ErrInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNoSuchFile:
		return "no such file"
	case ErrNoSuchDir:
		return "no such directory"
	case ErrNoSuchTarget:
		return "no such target"
	case ErrNoSuchUser:
		return "no such user"
	case ErrTargetExists:
		return "target exists"
	case ErrForbiddenAction:
		return "forbidden action"
	case ErrInconsistentDbState:
		return "inconsistent database state"
	case ErrBadCall:
		return "bad call"
	case ErrEncoding:
		return "encoding error"
	case ErrInternal:
		return "internal error"
	default:
		return fmt.Sprintf("error code %d", int(c))
	}
}

// NewError creates a StoreError.
func NewError(code ErrorCode, id uint64, format string, args ...any) *StoreError {
	return &StoreError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		ID:      id,
	}
}

// CodeOf returns the code of the first StoreError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Code, true
	}
	return 0, false
}

// IsCode reports whether err's chain contains a StoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
