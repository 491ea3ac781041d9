package backend

import (
	"errors"
	"fmt"
)

// Conventional statuses adapters map native store failures into.
const (
	StatusBadRequest  = 400
	StatusNotFound    = 404
	StatusConflict    = 409
	StatusInternal    = 500
	StatusUnavailable = 503
)

// ErrHandleClosed reports use of a handle after Close. It signals a
// lifecycle bug rather than a data condition, so callers propagate it
// instead of degrading.
var ErrHandleClosed = errors.New("docstore: store handle is closed")

// StoreError is the closed failure taxonomy for store operations. Adapters
// translate native errors into it at the boundary, so retry and
// reconciliation logic match on the status instead of probing unknown error
// shapes.
type StoreError struct {
	Status  int
	Message string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("docstore: store error (status %d): %s", e.Status, e.Message)
}

// Transient reports whether the failure is a server-side, transient-class
// condition worth retrying.
func (e *StoreError) Transient() bool { return e.Status >= 500 }

// NewStoreError builds a StoreError with a formatted message.
func NewStoreError(status int, format string, args ...any) *StoreError {
	return &StoreError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// IsTransient reports whether err carries a transient store status
// (>= 500) anywhere in its chain. Everything else, 4xx-class conditions and
// arbitrary errors included, is terminal.
func IsTransient(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Transient()
}

// StatusOf returns the store status carried by err, or 0 when err does not
// originate from the store taxonomy.
func StatusOf(err error) int {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// IsHandleClosed reports whether err is the closed-handle condition.
func IsHandleClosed(err error) bool { return errors.Is(err, ErrHandleClosed) }
