package inventory

import (
	"context"
	"time"
)

// Engine executes reservation commits and cancellations against a Store.
// It owns the capacity invariant: after any committed operation the
// event's TotalReserved equals the sum of PartySize over its live
// reservations and never exceeds TicketStock.
type Engine struct {
	store Store
}

// NewEngine returns an Engine bound to the given store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Store exposes the engine's store for read-only use by callers that need
// pre-transaction lookups (e.g. acceptance-window checks).
func (e *Engine) Store() Store {
	return e.store
}

// CommitRequest describes the desired state of one member's reservation.
// GuestNames may contain blank entries; the engine cleans the list before
// computing the party size and persists the cleaned form.
type CommitRequest struct {
	EventID            uint64
	MemberID           uint64
	Type               ReservationType
	RepresentativeName string
	GuestNames         []string
}

// Commit creates or edits the member's reservation for the event.  The
// whole read-validate-write sequence runs inside one atomic unit: it
// re-reads the capacity record, applies the delta between the old and new
// party size, and writes both the reservation and the counter, or writes
// nothing at all.  On an edit the existing reservation code is carried
// forward unchanged.  Possible errors: ErrEventNotFound, ErrEmptyParty,
// *TooManyGuestsError, *SoldOutError, ErrContention.
func (e *Engine) Commit(ctx context.Context, req CommitRequest) (*Reservation, error) {
	guests := NormalizeGuests(req.GuestNames)
	newSize := PartySize(req.Type, guests)
	if newSize == 0 {
		// The orchestrator validates this up front, but the engine is the
		// last line of defense for the party-size invariant.
		return nil, ErrEmptyParty
	}

	var out *Reservation
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		ev, err := tx.EventForUpdate(ctx, req.EventID)
		if err != nil {
			return err
		}
		// Re-check the companion limit against the locked event: callers
		// validate it up front, but only this read is authoritative when
		// an admin shrinks max_companions concurrently.
		if len(guests) > ev.MaxCompanions {
			return &TooManyGuestsError{MaxCompanions: ev.MaxCompanions}
		}
		existing, err := tx.Reservation(ctx, req.EventID, req.MemberID)
		if err != nil {
			return err
		}
		oldSize := 0
		if existing != nil {
			oldSize = existing.PartySize
		}
		delta := newSize - oldSize
		if ev.TotalReserved+delta > ev.TicketStock {
			return &SoldOutError{Remaining: ev.Remaining()}
		}

		code := ""
		createdAt := time.Now().UTC()
		if existing != nil {
			code = existing.Code
			createdAt = existing.CreatedAt
		} else {
			code, err = NewReservationCode()
			if err != nil {
				return err
			}
		}

		res := &Reservation{
			EventID:            req.EventID,
			MemberID:           req.MemberID,
			Type:               req.Type,
			RepresentativeName: req.RepresentativeName,
			GuestNames:         guests,
			PartySize:          newSize,
			Code:               code,
			CreatedAt:          createdAt,
			UpdatedAt:          time.Now().UTC(),
		}
		if err := tx.PutReservation(ctx, res); err != nil {
			return err
		}
		if err := tx.SetTotalReserved(ctx, req.EventID, ev.TotalReserved+delta); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel deletes the member's reservation for the event and returns the
// freed seats to the pool.  It returns the removed reservation so callers
// can report what was cancelled.  Possible errors: ErrEventNotFound,
// ErrReservationNotFound, ErrContention.
func (e *Engine) Cancel(ctx context.Context, eventID, memberID uint64) (*Reservation, error) {
	var out *Reservation
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		// Event row first, same order as Commit, so a concurrent commit
		// and cancel for one member can never deadlock on each other.
		ev, err := tx.EventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		existing, err := tx.Reservation(ctx, eventID, memberID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrReservationNotFound
		}
		if err := tx.DeleteReservation(ctx, eventID, memberID); err != nil {
			return err
		}
		total := ev.TotalReserved - existing.PartySize
		if total < 0 {
			// Under the maintained invariant this cannot happen; the clamp
			// keeps a corrupted counter from going negative.
			total = 0
		}
		if err := tx.SetTotalReserved(ctx, eventID, total); err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
