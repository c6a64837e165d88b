// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationConfirmedEvent is published after a reservation commit
// (create or edit) succeeds.  It carries enough information for
// downstream consumers to log or notify without querying the primary
// database.
type ReservationConfirmedEvent struct {
	EventID            uint64   `json:"event_id"`
	EventTitle         string   `json:"event_title"`
	MemberID           uint64   `json:"member_id"`
	ReservationType    string   `json:"reservation_type"`
	RepresentativeName string   `json:"representative_name"`
	GuestNames         []string `json:"guest_names"`
	PartySize          int      `json:"party_size"`
	ReservationCode    string   `json:"reservation_code"`
	ConfirmedAt        string   `json:"confirmed_at"`
}

// ReservationCancelledEvent is published after a cancellation returns the
// party's seats to the pool.
type ReservationCancelledEvent struct {
	EventID         uint64 `json:"event_id"`
	EventTitle      string `json:"event_title"`
	MemberID        uint64 `json:"member_id"`
	PartySize       int    `json:"party_size"`
	ReservationCode string `json:"reservation_code"`
	CancelledAt     string `json:"cancelled_at"`
}
