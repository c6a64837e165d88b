package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tappy-heartful/streak-navi-sub000/internal/inventory"
	"github.com/tappy-heartful/streak-navi-sub000/internal/repository"
)

// memoryViews adapts the in-memory store to the read interface so the
// handler can be exercised without MySQL.
type memoryViews struct {
	store *inventory.MemoryStore
}

func (v memoryViews) GetByEventAndMember(ctx context.Context, eventID, memberID uint64) (*inventory.Reservation, error) {
	return v.store.GetReservation(ctx, eventID, memberID)
}

func (v memoryViews) ListByMember(ctx context.Context, memberID uint64) ([]repository.ReservationDetail, error) {
	return []repository.ReservationDetail{}, nil
}

func newTestHandler(store *inventory.MemoryStore) *ReservationHandler {
	h := NewReservationHandler(inventory.NewEngine(store), memoryViews{store: store})
	h.Publish = false
	h.Now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return h
}

func seedEvent(store *inventory.MemoryStore, stock, reserved int) {
	store.PutEvent(inventory.Event{
		ID:            1,
		Title:         "Summer Live",
		Venue:         "Club Hall",
		EventDate:     "2025.07.01",
		TicketStock:   stock,
		TotalReserved: reserved,
		MaxCompanions: 3,
		AcceptStart:   "2025.06.01",
		AcceptEnd:     "2025.06.30",
		IsAccepting:   true,
	})
}

func doRequest(t *testing.T, h echo.HandlerFunc, method, body string, memberID uint64, displayName string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/events/:id/reservation")
	c.SetParamNames("id")
	c.SetParamValues("1")
	c.Set("user_id", float64(memberID))
	c.Set("display_name", displayName)
	require.NoError(t, h(c))
	return rec
}

func TestCommitCreatesReservation(t *testing.T) {
	store := inventory.NewMemoryStore()
	seedEvent(store, 10, 0)
	h := newTestHandler(store)

	rec := doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"GENERAL","representative_name":"Taro","guest_names":[]}`, 7, "Taro")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp reservationResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.PartySize)
	assert.Equal(t, "Taro", resp.RepresentativeName)
	assert.Regexp(t, `^[1-9]\d{3}$`, resp.ReservationCode)

	ev, err := store.GetEvent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, ev.TotalReserved)
}

func TestCommitOutsideWindow(t *testing.T) {
	store := inventory.NewMemoryStore()
	seedEvent(store, 10, 0)
	h := newTestHandler(store)
	h.Now = func() time.Time { return time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC) }

	rec := doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"GENERAL","representative_name":"Taro"}`, 7, "Taro")
	require.Equal(t, http.StatusForbidden, rec.Code)
	// The message names the valid window.
	assert.Contains(t, rec.Body.String(), "2025.06.01")
	assert.Contains(t, rec.Body.String(), "2025.06.30")

	ev, err := store.GetEvent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, ev.TotalReserved)
}

func TestCommitClosedFlag(t *testing.T) {
	store := inventory.NewMemoryStore()
	store.PutEvent(inventory.Event{
		ID: 1, Title: "Closed", TicketStock: 10,
		AcceptStart: "2025.06.01", AcceptEnd: "2025.06.30", IsAccepting: false,
	})
	h := newTestHandler(store)

	rec := doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"GENERAL","representative_name":"Taro"}`, 7, "Taro")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCommitSoldOutReportsRemaining(t *testing.T) {
	store := inventory.NewMemoryStore()
	seedEvent(store, 5, 0)
	h := newTestHandler(store)

	// Fill four seats first.
	rec := doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"GENERAL","representative_name":"A","guest_names":["B","C","D"]}`, 2, "A")
	require.Equal(t, http.StatusOK, rec.Code)

	// A party of three cannot fit in the last seat.
	rec = doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"GENERAL","representative_name":"C","guest_names":["D","E"]}`, 3, "C")
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error     string `json:"error"`
		Remaining int    `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Remaining)

	ev, err := store.GetEvent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, ev.TotalReserved)
}

func TestCommitInvitedEmptyGuestList(t *testing.T) {
	store := inventory.NewMemoryStore()
	seedEvent(store, 10, 0)
	h := newTestHandler(store)

	rec := doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"INVITED","guest_names":["  ",""]}`, 7, "Hanako")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitTooManyCompanions(t *testing.T) {
	store := inventory.NewMemoryStore()
	seedEvent(store, 10, 0) // MaxCompanions = 3
	h := newTestHandler(store)

	rec := doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"GENERAL","representative_name":"Taro","guest_names":["a","b","c","d"]}`, 7, "Taro")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "3")
}

// A companion-limit failure surfaced by the engine itself (admin shrank
// max_companions after the pre-check) maps to the same 400 as the
// pre-check.
func TestEngineCompanionLimitMapsToBadRequest(t *testing.T) {
	store := inventory.NewMemoryStore()
	seedEvent(store, 10, 0)
	h := newTestHandler(store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(""))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.writeEngineError(c, &inventory.TooManyGuestsError{MaxCompanions: 2}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at most 2 companions")
}

func TestCommitDefaultsRepresentativeForInvited(t *testing.T) {
	store := inventory.NewMemoryStore()
	seedEvent(store, 10, 0)
	h := newTestHandler(store)

	rec := doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"INVITED","guest_names":["Hanako","Jiro"]}`, 7, "Yamada")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp reservationResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Yamada", resp.RepresentativeName)
	assert.Equal(t, 2, resp.PartySize)
}

func TestCommitGeneralRequiresRepresentative(t *testing.T) {
	store := inventory.NewMemoryStore()
	seedEvent(store, 10, 0)
	h := newTestHandler(store)

	rec := doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"GENERAL","guest_names":["Hanako"]}`, 7, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitInvalidType(t *testing.T) {
	store := inventory.NewMemoryStore()
	seedEvent(store, 10, 0)
	h := newTestHandler(store)

	rec := doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"VIP","representative_name":"Taro"}`, 7, "Taro")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitEventNotFound(t *testing.T) {
	store := inventory.NewMemoryStore()
	h := newTestHandler(store)

	rec := doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"GENERAL","representative_name":"Taro"}`, 7, "Taro")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommitEditKeepsCode(t *testing.T) {
	store := inventory.NewMemoryStore()
	seedEvent(store, 10, 0)
	h := newTestHandler(store)

	rec := doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"GENERAL","representative_name":"Taro"}`, 7, "Taro")
	require.Equal(t, http.StatusOK, rec.Code)
	var first reservationResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"GENERAL","representative_name":"Taro","guest_names":["Ken"]}`, 7, "Taro")
	require.Equal(t, http.StatusOK, rec.Code)
	var second reservationResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))

	assert.Equal(t, first.ReservationCode, second.ReservationCode)
	assert.Equal(t, 2, second.PartySize)

	ev, err := store.GetEvent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, ev.TotalReserved)
}

func TestCancelReturnsSeats(t *testing.T) {
	store := inventory.NewMemoryStore()
	seedEvent(store, 10, 0)
	h := newTestHandler(store)

	rec := doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"INVITED","guest_names":["Hanako","Jiro"]}`, 7, "Yamada")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h.Cancel, http.MethodDelete, "", 7, "Yamada")
	require.Equal(t, http.StatusNoContent, rec.Code)

	ev, err := store.GetEvent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, ev.TotalReserved)

	// A second cancel has nothing to remove.
	rec = doRequest(t, h.Cancel, http.MethodDelete, "", 7, "Yamada")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOwnReservation(t *testing.T) {
	store := inventory.NewMemoryStore()
	seedEvent(store, 10, 0)
	h := newTestHandler(store)

	rec := doRequest(t, h.Get, http.MethodGet, "", 7, "Taro")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h.Commit, http.MethodPut,
		`{"reservation_type":"GENERAL","representative_name":"Taro"}`, 7, "Taro")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h.Get, http.MethodGet, "", 7, "Taro")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp reservationResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "GENERAL", resp.ReservationType)
}
