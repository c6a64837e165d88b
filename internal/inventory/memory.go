package inventory

import (
	"context"
	"sync"
)

// MemoryStore is an in-process implementation of Store for single-node
// deployments and tests.  A store-wide mutex makes every transaction
// serializable, so WithinTx never needs to retry and ErrContention is
// never produced.  Writes are staged per transaction and applied on
// success only, which preserves the all-or-nothing contract when fn fails
// after a partial write.
type MemoryStore struct {
	mu           sync.Mutex
	events       map[uint64]Event
	reservations map[resKey]Reservation
}

type resKey struct {
	eventID  uint64
	memberID uint64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:       make(map[uint64]Event),
		reservations: make(map[resKey]Reservation),
	}
}

// PutEvent creates or replaces an event record.  Intended for seeding and
// for the admin surface in single-node setups.
func (s *MemoryStore) PutEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev
}

// GetEvent implements Store.
func (s *MemoryStore) GetEvent(ctx context.Context, eventID uint64) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	cp := ev
	return &cp, nil
}

// GetReservation returns a copy of the stored reservation, or nil when
// none exists.  Exposed for handlers and tests reading outside a Tx.
func (s *MemoryStore) GetReservation(ctx context.Context, eventID, memberID uint64) (*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[resKey{eventID, memberID}]
	if !ok {
		return nil, nil
	}
	cp := copyReservation(r)
	return &cp, nil
}

// ReservationsByEvent returns copies of all live reservations for the
// event, in unspecified order.
func (s *MemoryStore) ReservationsByEvent(eventID uint64) []Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for k, r := range s.reservations {
		if k.eventID == eventID {
			out = append(out, copyReservation(r))
		}
	}
	return out
}

// WithinTx implements Store.  The mutex is held for the duration of fn,
// serializing all transactions against the store.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{
		store:     s,
		reStaged:  make(map[resKey]*Reservation),
		totStaged: make(map[uint64]int),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

// memTx stages writes until commit.  A nil value in reStaged is a delete.
type memTx struct {
	store     *MemoryStore
	reStaged  map[resKey]*Reservation
	totStaged map[uint64]int
}

func (t *memTx) EventForUpdate(ctx context.Context, eventID uint64) (*Event, error) {
	ev, ok := t.store.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	cp := ev
	if total, staged := t.totStaged[eventID]; staged {
		cp.TotalReserved = total
	}
	return &cp, nil
}

func (t *memTx) Reservation(ctx context.Context, eventID, memberID uint64) (*Reservation, error) {
	key := resKey{eventID, memberID}
	if staged, ok := t.reStaged[key]; ok {
		if staged == nil {
			return nil, nil
		}
		cp := copyReservation(*staged)
		return &cp, nil
	}
	r, ok := t.store.reservations[key]
	if !ok {
		return nil, nil
	}
	cp := copyReservation(r)
	return &cp, nil
}

func (t *memTx) PutReservation(ctx context.Context, r *Reservation) error {
	cp := copyReservation(*r)
	t.reStaged[resKey{r.EventID, r.MemberID}] = &cp
	return nil
}

func (t *memTx) DeleteReservation(ctx context.Context, eventID, memberID uint64) error {
	t.reStaged[resKey{eventID, memberID}] = nil
	return nil
}

func (t *memTx) SetTotalReserved(ctx context.Context, eventID uint64, total int) error {
	if _, ok := t.store.events[eventID]; !ok {
		return ErrEventNotFound
	}
	t.totStaged[eventID] = total
	return nil
}

func (t *memTx) apply() {
	for key, r := range t.reStaged {
		if r == nil {
			delete(t.store.reservations, key)
		} else {
			t.store.reservations[key] = *r
		}
	}
	for id, total := range t.totStaged {
		ev := t.store.events[id]
		ev.TotalReserved = total
		t.store.events[id] = ev
	}
}

func copyReservation(r Reservation) Reservation {
	guests := make([]string, len(r.GuestNames))
	copy(guests, r.GuestNames)
	r.GuestNames = guests
	return r
}
