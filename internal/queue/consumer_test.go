package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleConfirmedFormatsLine(t *testing.T) {
	ev := ReservationConfirmedEvent{
		EventID:            3,
		EventTitle:         "Summer Live",
		MemberID:           7,
		ReservationType:    "GENERAL",
		RepresentativeName: "Taro",
		GuestNames:         []string{"Hanako", "Jiro"},
		PartySize:          3,
		ReservationCode:    "4821",
		ConfirmedAt:        "2025-06-15T12:00:00Z",
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	line, err := handleConfirmed(body)
	require.NoError(t, err)
	assert.Contains(t, line, "Reservation confirmed")
	assert.Contains(t, line, "event_id=3")
	assert.Contains(t, line, `event="Summer Live"`)
	assert.Contains(t, line, "code=4821")
	assert.Contains(t, line, "party_size=3")
	assert.Contains(t, line, "[Hanako,Jiro]")
}

func TestHandleConfirmedEmptyGuests(t *testing.T) {
	body, err := json.Marshal(ReservationConfirmedEvent{ReservationType: "INVITED"})
	require.NoError(t, err)

	line, err := handleConfirmed(body)
	require.NoError(t, err)
	assert.Contains(t, line, "guests=[]")
}

func TestHandleCancelledFormatsLine(t *testing.T) {
	ev := ReservationCancelledEvent{
		EventID:         3,
		EventTitle:      "Summer Live",
		MemberID:        7,
		PartySize:       2,
		ReservationCode: "4821",
		CancelledAt:     "2025-06-16T09:30:00Z",
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	line, err := handleCancelled(body)
	require.NoError(t, err)
	assert.Contains(t, line, "Reservation cancelled")
	assert.Contains(t, line, "freed_seats=2")
}

func TestHandleMessageRejectsBadJSON(t *testing.T) {
	_, err := handleConfirmed([]byte("{not json"))
	assert.Error(t, err)
	_, err = handleCancelled([]byte("{not json"))
	assert.Error(t, err)
}
