package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrTradeNotOpen is returned by CloseTrade when the row is missing or already closed.
	ErrTradeNotOpen = errors.New("trade is not open")
	// ErrInvalidPrice is returned when a price is zero or negative.
	ErrInvalidPrice = errors.New("price must be greater than 0")
)

// PersistenceError wraps a failure of the underlying storage engine.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
