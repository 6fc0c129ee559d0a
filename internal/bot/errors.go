package bot

import (
	"errors"
	"fmt"
)

// ErrUnknownCommand is reported for command names the processor does not handle.
var ErrUnknownCommand = errors.New("unknown command")

// ValidationError reports bad user input: wrong argument count or an unusable price.
// Message is shown to the user as-is.
type ValidationError struct {
	Command string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid /%s: %s", e.Command, e.Message)
}

// NotFoundError reports a sell for a ticker without an open position.
type NotFoundError struct {
	Ticker string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no open position found for %s", e.Ticker)
}
