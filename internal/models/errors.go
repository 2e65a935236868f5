package models

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrNotConnected       = errors.New("connection is not connected")
	ErrSecretNotFound     = errors.New("secret not found")
	// ErrSuperseded is returned by an operation whose result was dropped
	// because a newer one for the same connection finished first.
	ErrSuperseded = errors.New("superseded by a newer operation")
)

// ValidationError belongs to a form field and blocks submission only
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RemoteOperationError is returned when a connect, disconnect, save, update
// or delete call fails. State is left as it was before the call.
type RemoteOperationError struct {
	Op           string
	ConnectionID int64
	Err          error
}

func (e *RemoteOperationError) Error() string {
	if e.ConnectionID == 0 {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s connection %d failed: %v", e.Op, e.ConnectionID, e.Err)
}

func (e *RemoteOperationError) Unwrap() error { return e.Err }

// FetchError is returned by paginated listing, counting and search.
// Previously displayed data stays visible.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
