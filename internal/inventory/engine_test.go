package inventory

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(stock int) (*Engine, *MemoryStore) {
	store := NewMemoryStore()
	store.PutEvent(Event{
		ID:            1,
		Title:         "Summer Live",
		TicketStock:   stock,
		MaxCompanions: 8,
		IsAccepting:   true,
	})
	return NewEngine(store), store
}

func mustEvent(t *testing.T, store *MemoryStore, id uint64) *Event {
	t.Helper()
	ev, err := store.GetEvent(context.Background(), id)
	require.NoError(t, err)
	return ev
}

// Walks the literal end-to-end scenario: two members reserve, one edits,
// an oversized request bounces, one cancels.
func TestEngineCommitAndCancelFlow(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(10)

	// A: GENERAL, representative only.
	resA, err := eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 100, Type: TypeGeneral, RepresentativeName: "Taro",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resA.PartySize)
	assert.Len(t, resA.Code, 4)
	assert.Equal(t, 1, mustEvent(t, store, 1).TotalReserved)

	// B: INVITED with two guests.
	resB, err := eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 200, Type: TypeInvited,
		RepresentativeName: "Hanako", GuestNames: []string{"Hanako", "Jiro"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resB.PartySize)
	assert.Equal(t, 3, mustEvent(t, store, 1).TotalReserved)

	// A edits to add one guest: delta +1, code unchanged.
	resA2, err := eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 100, Type: TypeGeneral,
		RepresentativeName: "Taro", GuestNames: []string{"Ken"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resA2.PartySize)
	assert.Equal(t, resA.Code, resA2.Code)
	assert.Equal(t, resA.CreatedAt, resA2.CreatedAt)
	assert.Equal(t, 4, mustEvent(t, store, 1).TotalReserved)

	// B cancels: seats return to the pool, record is gone.
	cancelled, err := eng.Cancel(ctx, 1, 200)
	require.NoError(t, err)
	assert.Equal(t, 2, cancelled.PartySize)
	assert.Equal(t, 2, mustEvent(t, store, 1).TotalReserved)
	gone, err := store.GetReservation(ctx, 1, 200)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestEngineSoldOutLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(5)

	_, err := eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 100, Type: TypeInvited,
		GuestNames: []string{"a", "b", "c", "d"},
	})
	require.NoError(t, err)
	require.Equal(t, 4, mustEvent(t, store, 1).TotalReserved)

	// partySize 3 over 1 remaining seat.
	_, err = eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 300, Type: TypeGeneral,
		RepresentativeName: "C", GuestNames: []string{"x", "y"},
	})
	var soldOut *SoldOutError
	require.ErrorAs(t, err, &soldOut)
	assert.Equal(t, 1, soldOut.Remaining)
	assert.Equal(t, 4, mustEvent(t, store, 1).TotalReserved)
	r, err := store.GetReservation(ctx, 1, 300)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestEngineExactlyLastSeat(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(3)

	_, err := eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 100, Type: TypeInvited, GuestNames: []string{"a", "b"},
	})
	require.NoError(t, err)

	// Exactly the last remaining seat succeeds.
	_, err = eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 200, Type: TypeGeneral, RepresentativeName: "B",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, mustEvent(t, store, 1).TotalReserved)

	// One more than remaining fails.
	_, err = eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 300, Type: TypeGeneral, RepresentativeName: "C",
	})
	var soldOut *SoldOutError
	require.ErrorAs(t, err, &soldOut)
	assert.Equal(t, 0, soldOut.Remaining)
}

func TestEngineEmptyPartyRejected(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(10)

	_, err := eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 100, Type: TypeInvited, GuestNames: []string{"", "  "},
	})
	require.ErrorIs(t, err, ErrEmptyParty)
	assert.Equal(t, 0, mustEvent(t, store, 1).TotalReserved)
}

func TestEngineEventNotFound(t *testing.T) {
	eng, _ := newTestEngine(10)
	_, err := eng.Commit(context.Background(), CommitRequest{
		EventID: 99, MemberID: 100, Type: TypeGeneral, RepresentativeName: "T",
	})
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestEngineCancelMissingReservation(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(10)

	_, err := eng.Cancel(ctx, 1, 100)
	require.ErrorIs(t, err, ErrReservationNotFound)
	assert.Equal(t, 0, mustEvent(t, store, 1).TotalReserved)
}

// Identical resubmission must not double count and must keep the code.
func TestEngineCommitIdempotentResubmission(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(10)

	req := CommitRequest{
		EventID: 1, MemberID: 100, Type: TypeGeneral,
		RepresentativeName: "Taro", GuestNames: []string{"Ken"},
	}
	first, err := eng.Commit(ctx, req)
	require.NoError(t, err)
	second, err := eng.Commit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.PartySize, second.PartySize)
	assert.Equal(t, 2, mustEvent(t, store, 1).TotalReserved)
}

func TestEngineCodeStableAcrossEdits(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(50)

	res, err := eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 100, Type: TypeGeneral, RepresentativeName: "Taro",
	})
	require.NoError(t, err)
	code := res.Code
	for i := 1; i <= 5; i++ {
		guests := make([]string, i)
		for j := range guests {
			guests[j] = "guest"
		}
		res, err = eng.Commit(ctx, CommitRequest{
			EventID: 1, MemberID: 100, Type: TypeGeneral,
			RepresentativeName: "Taro", GuestNames: guests,
		})
		require.NoError(t, err)
		assert.Equal(t, code, res.Code)
	}
}

// The companion limit is re-validated against the locked event, so an
// admin shrink that lands between the orchestrator's pre-check and the
// transaction cannot slip an oversized guest list into the record.
func TestEngineCompanionLimitInsideTx(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.PutEvent(Event{
		ID:            1,
		Title:         "Summer Live",
		TicketStock:   10,
		MaxCompanions: 2,
		IsAccepting:   true,
	})
	eng := NewEngine(store)

	_, err := eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 100, Type: TypeGeneral,
		RepresentativeName: "Taro", GuestNames: []string{"a", "b", "c"},
	})
	var tooMany *TooManyGuestsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 2, tooMany.MaxCompanions)

	assert.Equal(t, 0, mustEvent(t, store, 1).TotalReserved)
	r, err := store.GetReservation(ctx, 1, 100)
	require.NoError(t, err)
	assert.Nil(t, r)

	// At the limit is fine.
	res, err := eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 100, Type: TypeGeneral,
		RepresentativeName: "Taro", GuestNames: []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.PartySize)
}

// lockOrderStore records the order of Tx reads so the locking discipline
// is observable: both entry points must take the event row before the
// reservation row, or a concurrent commit+cancel pair could deadlock.
type lockOrderStore struct {
	inner Store
	calls []string
}

func (s *lockOrderStore) GetEvent(ctx context.Context, eventID uint64) (*Event, error) {
	return s.inner.GetEvent(ctx, eventID)
}

func (s *lockOrderStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.inner.WithinTx(ctx, func(tx Tx) error {
		return fn(&lockOrderTx{inner: tx, calls: &s.calls})
	})
}

type lockOrderTx struct {
	inner Tx
	calls *[]string
}

func (t *lockOrderTx) EventForUpdate(ctx context.Context, eventID uint64) (*Event, error) {
	*t.calls = append(*t.calls, "event")
	return t.inner.EventForUpdate(ctx, eventID)
}

func (t *lockOrderTx) Reservation(ctx context.Context, eventID, memberID uint64) (*Reservation, error) {
	*t.calls = append(*t.calls, "reservation")
	return t.inner.Reservation(ctx, eventID, memberID)
}

func (t *lockOrderTx) PutReservation(ctx context.Context, r *Reservation) error {
	return t.inner.PutReservation(ctx, r)
}

func (t *lockOrderTx) DeleteReservation(ctx context.Context, eventID, memberID uint64) error {
	return t.inner.DeleteReservation(ctx, eventID, memberID)
}

func (t *lockOrderTx) SetTotalReserved(ctx context.Context, eventID uint64, total int) error {
	return t.inner.SetTotalReserved(ctx, eventID, total)
}

func TestEngineLockOrderEventFirst(t *testing.T) {
	ctx := context.Background()
	_, mem := newTestEngine(10)
	store := &lockOrderStore{inner: mem}
	eng := NewEngine(store)

	_, err := eng.Commit(ctx, CommitRequest{
		EventID: 1, MemberID: 100, Type: TypeGeneral, RepresentativeName: "Taro",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"event", "reservation"}, store.calls)

	store.calls = nil
	_, err = eng.Cancel(ctx, 1, 100)
	require.NoError(t, err)
	require.Equal(t, []string{"event", "reservation"}, store.calls)
}

// Two concurrent commits for the last seat: exactly one wins.
func TestEngineConcurrentLastSeat(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Commit(ctx, CommitRequest{
				EventID: 1, MemberID: uint64(100 + i), Type: TypeGeneral,
				RepresentativeName: "racer",
			})
		}(i)
	}
	wg.Wait()

	var okCount, soldOutCount int
	for _, err := range errs {
		var soldOut *SoldOutError
		switch {
		case err == nil:
			okCount++
		case errors.As(err, &soldOut):
			soldOutCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, soldOutCount)
	assert.Equal(t, 1, mustEvent(t, store, 1).TotalReserved)
}

// Property: after any settled mix of concurrent commits, edits and
// cancels, TotalReserved equals the sum of live party sizes and stays
// within stock.
func TestEngineConservationUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(40)

	const members = 16
	var wg sync.WaitGroup
	for m := 0; m < members; m++ {
		wg.Add(1)
		go func(m int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(m)))
			for i := 0; i < 25; i++ {
				if rng.Intn(4) == 0 {
					_, _ = eng.Cancel(ctx, 1, uint64(1000+m))
					continue
				}
				guests := make([]string, rng.Intn(4))
				for j := range guests {
					guests[j] = "g"
				}
				_, _ = eng.Commit(ctx, CommitRequest{
					EventID: 1, MemberID: uint64(1000 + m), Type: TypeGeneral,
					RepresentativeName: "m", GuestNames: guests,
				})
			}
		}(m)
	}
	wg.Wait()

	ev := mustEvent(t, store, 1)
	sum := 0
	for _, r := range store.ReservationsByEvent(1) {
		require.GreaterOrEqual(t, r.PartySize, 1)
		sum += r.PartySize
	}
	assert.Equal(t, sum, ev.TotalReserved)
	assert.LessOrEqual(t, ev.TotalReserved, ev.TicketStock)
	assert.GreaterOrEqual(t, ev.TotalReserved, 0)
}
