// Package inventory implements ticket stock accounting for events.  It is
// the only place in the application allowed to change an event's reserved
// total: every reservation commit and cancellation runs through the Engine,
// which validates capacity and writes the reservation record and the
// counter inside a single atomic unit.  Storage is abstracted behind the
// Store interface so the same engine runs against MySQL in production and
// against the in-memory store in tests and single-node setups.
package inventory

import "time"

// ReservationType distinguishes how a party occupies seats.  A GENERAL
// reservation is made under a representative who takes a seat themselves;
// an INVITED reservation only counts the listed guests.
type ReservationType string

const (
	TypeGeneral ReservationType = "GENERAL"
	TypeInvited ReservationType = "INVITED"
)

// Valid reports whether t is one of the known reservation types.
func (t ReservationType) Valid() bool {
	return t == TypeGeneral || t == TypeInvited
}

// Event is the capacity record for a single event.  TotalReserved is the
// sum of PartySize over all live reservations and must never exceed
// TicketStock in committed state.  The acceptance window fields are kept
// in the "YYYY.MM.DD" display form and compared lexically.
type Event struct {
	ID            uint64
	Title         string
	Venue         string
	EventDate     string // "YYYY.MM.DD"
	TicketStock   int
	TotalReserved int
	MaxCompanions int
	AcceptStart   string // "YYYY.MM.DD", inclusive
	AcceptEnd     string // "YYYY.MM.DD", inclusive
	IsAccepting   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Remaining returns the number of seats still available for the event.
func (e *Event) Remaining() int {
	return e.TicketStock - e.TotalReserved
}

// Reservation is one member's claim on seats for one event.  The pair
// (EventID, MemberID) is the identity; a member holds at most one
// reservation per event.  Code is assigned on first creation and survives
// any number of edits.  GuestNames holds the cleaned guest list (blank
// entries already dropped) and PartySize is derived from it via PartySize.
type Reservation struct {
	EventID            uint64
	MemberID           uint64
	Type               ReservationType
	RepresentativeName string
	GuestNames         []string
	PartySize          int
	Code               string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
