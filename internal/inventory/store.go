package inventory

import "context"

// Tx is the engine's view of one atomic unit spanning the event capacity
// record and the reservation records.  Reads inside a Tx observe a state
// that is guaranteed not to change underneath the transaction before it
// commits; implementations achieve that with row locks (MySQL) or a
// store-wide mutex (memory).
type Tx interface {
	// EventForUpdate reads the capacity record and locks it against
	// concurrent writers for the remainder of the transaction.  Returns
	// ErrEventNotFound when the event does not exist.
	EventForUpdate(ctx context.Context, eventID uint64) (*Event, error)

	// Reservation reads the member's reservation for the event, locked
	// like EventForUpdate.  Returns (nil, nil) when none exists.
	Reservation(ctx context.Context, eventID, memberID uint64) (*Reservation, error)

	// PutReservation creates the reservation or replaces its mutable
	// fields.  Code and CreatedAt are only written on first insert.
	PutReservation(ctx context.Context, r *Reservation) error

	// DeleteReservation removes the member's reservation for the event.
	DeleteReservation(ctx context.Context, eventID, memberID uint64) error

	// SetTotalReserved writes the event's reserved counter.  This is the
	// only way the counter is ever mutated.
	SetTotalReserved(ctx context.Context, eventID uint64, total int) error
}

// Store provides transactional access to events and reservations.
type Store interface {
	// GetEvent reads the capacity record without locking.  Used for
	// pre-checks and display; never for writes.
	GetEvent(ctx context.Context, eventID uint64) (*Event, error)

	// WithinTx runs fn inside one atomic unit.  Either every write fn
	// performed is committed or none is.  When the underlying primitive
	// detects a conflicting concurrent writer the whole fn re-executes
	// from scratch against fresh state, up to a bounded attempt budget;
	// after that WithinTx returns ErrContention.  fn must therefore be
	// free of side effects outside the Tx.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
