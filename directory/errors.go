package directory

import (
	"errors"
	"fmt"
)

// ErrDecodeResponse indicates a successful response whose body did not
// decode into the expected type.
var ErrDecodeResponse = errors.New("directory: failed to decode response")

// Error describes a failed directory operation.
type Error struct {
	Op       string // list, get, create, update, delete, me, ...
	Resource string // e.g. centers; empty for client-level operations
	Err      error
}

func (e *Error) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("directory: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("directory: %s.%s: %v", e.Resource, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func wrapErr(resource, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Resource: resource, Err: err}
}
