package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/tappy-heartful/streak-navi-sub000/internal/inventory"
)

// maxTxAttempts bounds the automatic re-execution of a conflicting
// transaction before surfacing inventory.ErrContention.  The FOR UPDATE
// row lock on the event serializes most writers up front, so genuine
// retries only happen on deadlocks between cross-event transactions.
const maxTxAttempts = 3

// InventoryStore implements inventory.Store on MySQL.  Both records live
// in the same database, so one sql.Tx is the atomicity boundary: the
// reservation write and the counter write commit together or not at all.
type InventoryStore struct {
	db           *sql.DB
	events       *EventRepo
	reservations *ReservationRepo
}

// NewInventoryStore builds an InventoryStore over the given repositories.
func NewInventoryStore(db *sql.DB, events *EventRepo, reservations *ReservationRepo) *InventoryStore {
	return &InventoryStore{db: db, events: events, reservations: reservations}
}

// GetEvent implements inventory.Store.
func (s *InventoryStore) GetEvent(ctx context.Context, eventID uint64) (*inventory.Event, error) {
	return s.events.GetByID(ctx, eventID)
}

// WithinTx implements inventory.Store.  fn re-executes from scratch when
// MySQL aborts the transaction because of a conflicting concurrent writer
// (deadlock or lock wait timeout); after maxTxAttempts such aborts the
// call fails with inventory.ErrContention and nothing is applied.
func (s *InventoryStore) WithinTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	return withRetry(maxTxAttempts, func() error {
		return s.runOnce(ctx, fn)
	})
}

// withRetry re-runs run while it fails with a retryable MySQL abort and
// surfaces inventory.ErrContention once the attempt budget is spent.
// Any other outcome, success included, is returned as is.
func withRetry(attempts int, run func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = run()
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return inventory.ErrContention
}

func (s *InventoryStore) runOnce(ctx context.Context, fn func(tx inventory.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx, store: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// isRetryable reports whether the error is a MySQL transaction abort that
// is safe to re-execute: 1213 (deadlock victim) or 1205 (lock wait
// timeout).
func isRetryable(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}

// sqlTx adapts one sql.Tx to the inventory.Tx interface by delegating to
// the repositories' Tx methods.
type sqlTx struct {
	tx    *sql.Tx
	store *InventoryStore
}

func (t *sqlTx) EventForUpdate(ctx context.Context, eventID uint64) (*inventory.Event, error) {
	return t.store.events.GetForUpdateTx(ctx, t.tx, eventID)
}

func (t *sqlTx) Reservation(ctx context.Context, eventID, memberID uint64) (*inventory.Reservation, error) {
	return t.store.reservations.GetTx(ctx, t.tx, eventID, memberID)
}

func (t *sqlTx) PutReservation(ctx context.Context, r *inventory.Reservation) error {
	return t.store.reservations.UpsertTx(ctx, t.tx, r)
}

func (t *sqlTx) DeleteReservation(ctx context.Context, eventID, memberID uint64) error {
	return t.store.reservations.DeleteTx(ctx, t.tx, eventID, memberID)
}

func (t *sqlTx) SetTotalReserved(ctx context.Context, eventID uint64, total int) error {
	return t.store.events.SetTotalReservedTx(ctx, t.tx, eventID, total)
}
