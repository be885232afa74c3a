package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperation is returned for local precondition violations. No
	// network call is made when it is returned.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrAlreadyAtRoot is returned by Up when the navigator is at the root.
	ErrAlreadyAtRoot = fmt.Errorf("%w: already at root", ErrInvalidOperation)
)

// InvalidOperation builds an ErrInvalidOperation with context.
func InvalidOperation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}
