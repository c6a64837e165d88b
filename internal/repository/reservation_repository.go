package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/tappy-heartful/streak-navi-sub000/internal/inventory"
)

// ReservationRepo provides CRUD operations for reservations.  A
// reservation is keyed by the (event_id, member_id) pair: one member holds
// at most one reservation per event.  The guest list is stored as a JSON
// array in the guest_names column.  All timestamp fields are stored in
// UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `event_id, member_id, reservation_type, representative_name,
       guest_names, party_size, reservation_code, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*inventory.Reservation, error) {
	var (
		res    inventory.Reservation
		guests []byte
	)
	err := row.Scan(
		&res.EventID, &res.MemberID, &res.Type, &res.RepresentativeName,
		&guests, &res.PartySize, &res.Code, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(guests) > 0 {
		if err := json.Unmarshal(guests, &res.GuestNames); err != nil {
			return nil, err
		}
	}
	if res.GuestNames == nil {
		res.GuestNames = []string{}
	}
	return &res, nil
}

// GetTx reads one reservation within the provided transaction and locks
// the row.  It returns (nil, nil) when the member has no reservation for
// the event, which is how the inventory engine distinguishes a create
// from an edit.
func (r *ReservationRepo) GetTx(ctx context.Context, tx *sql.Tx, eventID, memberID uint64) (*inventory.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
               WHERE event_id = ? AND member_id = ? FOR UPDATE`
	res, err := scanReservation(tx.QueryRowContext(ctx, q, eventID, memberID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return res, nil
}

// UpsertTx creates the reservation or replaces its mutable fields within
// the provided transaction.  The ON DUPLICATE KEY UPDATE list is limited
// to the columns the inventory engine owns: reservation_code and
// created_at are only ever written by the initial INSERT and survive
// every subsequent edit.
func (r *ReservationRepo) UpsertTx(ctx context.Context, tx *sql.Tx, res *inventory.Reservation) error {
	guests, err := json.Marshal(res.GuestNames)
	if err != nil {
		return err
	}
	const q = `INSERT INTO reservations
               (event_id, member_id, reservation_type, representative_name,
                guest_names, party_size, reservation_code)
               VALUES (?, ?, ?, ?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE
                 reservation_type = VALUES(reservation_type),
                 representative_name = VALUES(representative_name),
                 guest_names = VALUES(guest_names),
                 party_size = VALUES(party_size),
                 updated_at = CURRENT_TIMESTAMP`
	_, err = tx.ExecContext(ctx, q,
		res.EventID, res.MemberID, string(res.Type), res.RepresentativeName,
		guests, res.PartySize, res.Code,
	)
	return err
}

// DeleteTx removes the member's reservation for the event within the
// provided transaction.  Deleting a missing row is not an error here; the
// engine checks existence before deleting.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, eventID, memberID uint64) error {
	const q = `DELETE FROM reservations WHERE event_id = ? AND member_id = ?`
	_, err := tx.ExecContext(ctx, q, eventID, memberID)
	return err
}

// GetByEventAndMember reads one reservation outside any transaction, for
// display.  Returns (nil, nil) when none exists.
func (r *ReservationRepo) GetByEventAndMember(ctx context.Context, eventID, memberID uint64) (*inventory.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
               WHERE event_id = ? AND member_id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, eventID, memberID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return res, nil
}

// ReservationDetail pairs a reservation with the event attributes needed
// to render a member's reservation list.
type ReservationDetail struct {
	EventID            uint64   `json:"event_id"`
	EventTitle         string   `json:"event_title"`
	EventDate          string   `json:"event_date"`
	Venue              string   `json:"venue"`
	ReservationType    string   `json:"reservation_type"`
	RepresentativeName string   `json:"representative_name"`
	GuestNames         []string `json:"guest_names"`
	PartySize          int      `json:"party_size"`
	ReservationCode    string   `json:"reservation_code"`
	UpdatedAt          string   `json:"updated_at"`
}

// ListByMember returns all reservations for the given member along with
// event details, newest first.  When no reservations exist, an empty
// slice is returned.
func (r *ReservationRepo) ListByMember(ctx context.Context, memberID uint64) ([]ReservationDetail, error) {
	const q = `SELECT r.event_id, e.title, e.event_date, e.venue,
                      r.reservation_type, r.representative_name, r.guest_names,
                      r.party_size, r.reservation_code, r.updated_at
               FROM reservations r
               JOIN events e ON e.id = r.event_id
               WHERE r.member_id = ?
               ORDER BY r.updated_at DESC`
	return r.queryDetails(ctx, q, memberID)
}

// ListByEvent returns all reservations for the given event, newest first.
// Used by the admin surface to review who reserved what.
func (r *ReservationRepo) ListByEvent(ctx context.Context, eventID uint64) ([]ReservationDetail, error) {
	const q = `SELECT r.event_id, e.title, e.event_date, e.venue,
                      r.reservation_type, r.representative_name, r.guest_names,
                      r.party_size, r.reservation_code, r.updated_at
               FROM reservations r
               JOIN events e ON e.id = r.event_id
               WHERE r.event_id = ?
               ORDER BY r.updated_at DESC`
	return r.queryDetails(ctx, q, eventID)
}

func (r *ReservationRepo) queryDetails(ctx context.Context, query string, arg uint64) ([]ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]ReservationDetail, 0)
	for rows.Next() {
		var (
			d         ReservationDetail
			guests    []byte
			updatedAt time.Time
		)
		if err := rows.Scan(
			&d.EventID, &d.EventTitle, &d.EventDate, &d.Venue,
			&d.ReservationType, &d.RepresentativeName, &guests,
			&d.PartySize, &d.ReservationCode, &updatedAt,
		); err != nil {
			return nil, err
		}
		d.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
		d.GuestNames = []string{}
		if len(guests) > 0 {
			if err := json.Unmarshal(guests, &d.GuestNames); err != nil {
				return nil, err
			}
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
