package service

import "fmt"

// ConflictError reports the first seat of a batch that was not in the
// state required for the requested transition.  The whole batch is rolled
// back before the error is returned, so callers can re-query and retry
// with adjusted seats.
type ConflictError struct {
	SeatNumber string
	Reason     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seat %s: %s", e.SeatNumber, e.Reason)
}

// ValidationError reports malformed input.  It is a caller error and is
// never retried automatically.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
