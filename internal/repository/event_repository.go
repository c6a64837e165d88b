// Package repository contains data access logic over database/sql.  This
// file manages the `events` table: the per-event capacity record pairing
// total ticket stock with the running reserved count, plus the display
// attributes shown on the event page.  total_reserved is written only by
// the transactional methods used by the inventory store; the plain CRUD
// methods never touch it.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tappy-heartful/streak-navi-sub000/internal/inventory"
)

// EventRepo manages persistence for events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *EventRepo) DB() *sql.DB {
	return r.db
}

const eventColumns = `id, title, venue, event_date, ticket_stock, total_reserved,
       max_companions, accept_start, accept_end, is_accepting, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*inventory.Event, error) {
	var ev inventory.Event
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Venue, &ev.EventDate, &ev.TicketStock, &ev.TotalReserved,
		&ev.MaxCompanions, &ev.AcceptStart, &ev.AcceptEnd, &ev.IsAccepting,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Create inserts a new event and assigns the generated ID back to the
// struct.  total_reserved always starts at zero regardless of the input.
func (r *EventRepo) Create(ctx context.Context, ev *inventory.Event) error {
	const q = `INSERT INTO events
               (title, venue, event_date, ticket_stock, total_reserved, max_companions,
                accept_start, accept_end, is_accepting)
               VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		ev.Title, ev.Venue, ev.EventDate, ev.TicketStock, ev.MaxCompanions,
		ev.AcceptStart, ev.AcceptEnd, ev.IsAccepting,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	// Query the inserted row to obtain DB-default fields and timestamps.
	const sel = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	got, err := scanEvent(r.db.QueryRowContext(ctx, sel, ev.ID))
	if err != nil {
		return err
	}
	*ev = *got
	return nil
}

// GetByID retrieves an event by its ID.  It returns
// inventory.ErrEventNotFound if there is no matching row.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*inventory.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	ev, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrEventNotFound
		}
		return nil, err
	}
	return ev, nil
}

// List returns all events ordered by event date ascending.  When no
// events exist it returns an empty slice and nil error.
func (r *EventRepo) List(ctx context.Context) ([]inventory.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events ORDER BY event_date ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]inventory.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update writes the administrative attributes of an event.  The reserved
// counter is deliberately absent from the SET list.  Shrinking the stock
// below the live reserved total is rejected inside the same statement to
// avoid racing a concurrent commit; in that case ErrConflict is returned.
// When the row does not exist, inventory.ErrEventNotFound is returned.
func (r *EventRepo) Update(ctx context.Context, ev *inventory.Event) error {
	const q = `UPDATE events
               SET title = ?, venue = ?, event_date = ?, ticket_stock = ?,
                   max_companions = ?, accept_start = ?, accept_end = ?,
                   is_accepting = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND total_reserved <= ?`
	res, err := r.db.ExecContext(ctx, q,
		ev.Title, ev.Venue, ev.EventDate, ev.TicketStock,
		ev.MaxCompanions, ev.AcceptStart, ev.AcceptEnd,
		ev.IsAccepting, ev.ID, ev.TicketStock,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Zero rows: either the event is missing or the new stock is below the
	// reserved total.  MySQL also reports zero affected rows for identical
	// values, which callers treat as success, so distinguish via a lookup.
	cur, err := r.GetByID(ctx, ev.ID)
	if err != nil {
		return err
	}
	if cur.TotalReserved > ev.TicketStock {
		return ErrConflict
	}
	return nil
}

// Delete removes an event provided it has no live reservations.  The
// check and the delete run in one transaction so a reservation committed
// in between cannot be orphaned.  Returns inventory.ErrEventNotFound when
// the event does not exist and ErrConflict when reservations remain.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var one int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ? FOR UPDATE`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.ErrEventNotFound
		}
		return err
	}
	var resCount int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE event_id = ?`, id).Scan(&resCount); err != nil {
		return err
	}
	if resCount > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetForUpdateTx reads the capacity record within the provided transaction
// and locks the row until the transaction ends.  Every reservation commit
// and cancellation goes through this lock, which is what serializes
// concurrent writers against the same event.
func (r *EventRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*inventory.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ? FOR UPDATE`
	ev, err := scanEvent(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrEventNotFound
		}
		return nil, err
	}
	return ev, nil
}

// SetTotalReservedTx writes the reserved counter within the provided
// transaction.  Callers must hold the row lock from GetForUpdateTx.
func (r *EventRepo) SetTotalReservedTx(ctx context.Context, tx *sql.Tx, id uint64, total int) error {
	const q = `UPDATE events SET total_reserved = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, total, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Row vanished mid-transaction; should be impossible under the lock.
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return inventory.ErrEventNotFound
			}
			return err
		}
	}
	return nil
}
