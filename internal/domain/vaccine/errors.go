package vaccine

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden    = errors.New("caller is not allowed to administer vaccines")
	ErrNotFound     = errors.New("not found")
	ErrInUse        = errors.New("vaccine still has service days or time slots")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreError wraps a persistence or lock failure. The operation did not
// commit and may be retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Retryable() bool { return true }

// storeErr wraps err as a StoreError unless it is a rejection or already a
// StoreError. Rejections keep their kind and are never retryable.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if isRejection(err) || errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
