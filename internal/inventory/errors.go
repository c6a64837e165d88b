// Error taxonomy for the inventory engine.  Every failure the engine can
// produce is one of the values below, so handlers can map outcomes to
// user-facing responses with errors.Is / errors.As and nothing is ever
// swallowed silently.
package inventory

import (
	"errors"
	"fmt"
)

// ErrEventNotFound is returned when the referenced event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrEmptyParty is returned when the computed party size is zero, e.g. an
// INVITED reservation whose guest list is empty after dropping blanks.
var ErrEmptyParty = errors.New("party size is zero")

// ErrReservationNotFound is returned by Cancel when the member has no
// reservation for the event.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrContention is returned when the store could not commit the
// transaction within its retry budget because of concurrent writers.  The
// operation had no effect and the caller may retry.
var ErrContention = errors.New("transaction contention, retry")

// TooManyGuestsError is returned when the guest list exceeds the event's
// companion limit as read inside the transaction.  The orchestrator
// checks the limit before calling the engine, but a concurrent admin
// shrink of max_companions is only caught here.
type TooManyGuestsError struct {
	MaxCompanions int
}

func (e *TooManyGuestsError) Error() string {
	return fmt.Sprintf("guest list exceeds the companion limit of %d", e.MaxCompanions)
}

// SoldOutError is returned when committing the requested party size would
// push the reserved total past the ticket stock.  Remaining carries the
// number of seats that were still available when the transaction ran, so
// the caller can report something actionable.
type SoldOutError struct {
	Remaining int
}

func (e *SoldOutError) Error() string {
	return fmt.Sprintf("sold out: %d seat(s) remaining", e.Remaining)
}
