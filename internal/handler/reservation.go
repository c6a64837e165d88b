package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tappy-heartful/streak-navi-sub000/internal/inventory"
	"github.com/tappy-heartful/streak-navi-sub000/internal/queue"
	"github.com/tappy-heartful/streak-navi-sub000/internal/repository"
	queue_publisher "github.com/tappy-heartful/streak-navi-sub000/internal/service"
)

// ReservationViews is the read side used to render reservations.  The
// SQL implementation is repository.ReservationRepo.
type ReservationViews interface {
	GetByEventAndMember(ctx context.Context, eventID, memberID uint64) (*inventory.Reservation, error)
	ListByMember(ctx context.Context, memberID uint64) ([]repository.ReservationDetail, error)
}

// ReservationHandler is the lifecycle orchestrator: it turns a member's
// form submission or cancellation request into one engine call and maps
// the engine's outcome to an HTTP response.  It never mutates capacity
// state itself; the only writes happen inside the engine's transaction.
type ReservationHandler struct {
	Engine *inventory.Engine
	Views  ReservationViews

	// Now is the clock used for the acceptance-window check.  Overridable
	// in tests; defaults to time.Now.
	Now func() time.Time

	// Publish toggles RabbitMQ notifications after successful mutations.
	Publish bool
}

func NewReservationHandler(engine *inventory.Engine, views ReservationViews) *ReservationHandler {
	return &ReservationHandler{Engine: engine, Views: views, Now: time.Now, Publish: true}
}

type commitReq struct {
	ReservationType    string   `json:"reservation_type"`    // GENERAL | INVITED
	RepresentativeName string   `json:"representative_name"` // optional for INVITED
	GuestNames         []string `json:"guest_names"`
}

type reservationResp struct {
	EventID            uint64   `json:"event_id"`
	ReservationType    string   `json:"reservation_type"`
	RepresentativeName string   `json:"representative_name"`
	GuestNames         []string `json:"guest_names"`
	PartySize          int      `json:"party_size"`
	ReservationCode    string   `json:"reservation_code"`
	UpdatedAt          string   `json:"updated_at"`
}

func toReservationResp(r *inventory.Reservation) reservationResp {
	return reservationResp{
		EventID:            r.EventID,
		ReservationType:    string(r.Type),
		RepresentativeName: r.RepresentativeName,
		GuestNames:         r.GuestNames,
		PartySize:          r.PartySize,
		ReservationCode:    r.Code,
		UpdatedAt:          r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// withinAcceptance reports whether the event currently accepts reservation
// changes.  Dates are kept in the "YYYY.MM.DD" form, so the inclusive
// range check is a plain string comparison.
func withinAcceptance(ev *inventory.Event, now time.Time) bool {
	today := now.Format("2006.01.02")
	return ev.IsAccepting && ev.AcceptStart <= today && today <= ev.AcceptEnd
}

// Commit handles PUT /v1/events/:id/reservation: create or edit the
// member's reservation for the event.  The acceptance-window check runs
// before any transaction so closed events never reach the engine.
func (h *ReservationHandler) Commit(c echo.Context) error {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	memberID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req commitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	typ := inventory.ReservationType(strings.ToUpper(strings.TrimSpace(req.ReservationType)))
	if !typ.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_type must be GENERAL or INVITED"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Engine.Store().GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, inventory.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if !withinAcceptance(ev, h.Now()) {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": fmt.Sprintf("reservations are accepted from %s to %s", ev.AcceptStart, ev.AcceptEnd),
		})
	}

	guests := inventory.NormalizeGuests(req.GuestNames)
	if len(guests) > ev.MaxCompanions {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": fmt.Sprintf("at most %d companions allowed", ev.MaxCompanions),
		})
	}

	rep := strings.TrimSpace(req.RepresentativeName)
	if rep == "" {
		if typ == inventory.TypeGeneral {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "representative_name required"})
		}
		// Invited reservations default the representative to the member's
		// display name from the token.
		rep = strings.TrimSpace(getDisplayName(c))
	}

	res, err := h.Engine.Commit(ctx, inventory.CommitRequest{
		EventID:            eventID,
		MemberID:           memberID,
		Type:               typ,
		RepresentativeName: rep,
		GuestNames:         guests,
	})
	if err != nil {
		return h.writeEngineError(c, err)
	}

	if h.Publish {
		go func(r inventory.Reservation, title string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = queue_publisher.PublishReservationConfirmed(ctx, queue.ReservationConfirmedEvent{
				EventID:            r.EventID,
				EventTitle:         title,
				MemberID:           r.MemberID,
				ReservationType:    string(r.Type),
				RepresentativeName: r.RepresentativeName,
				GuestNames:         r.GuestNames,
				PartySize:          r.PartySize,
				ReservationCode:    r.Code,
				ConfirmedAt:        r.UpdatedAt.UTC().Format(time.RFC3339),
			})
		}(*res, ev.Title)
	}

	return c.JSON(http.StatusOK, toReservationResp(res))
}

// Get handles GET /v1/events/:id/reservation: the member's own
// reservation for one event.
func (h *ReservationHandler) Get(c echo.Context) error {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	memberID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Views.GetByEventAndMember(ctx, eventID, memberID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load reservation failed"})
	}
	if res == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// Cancel handles DELETE /v1/events/:id/reservation.  Cancellation follows
// the same acceptance window as commits: once the window closes the guest
// list is considered final.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	memberID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Engine.Store().GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, inventory.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if !withinAcceptance(ev, h.Now()) {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": fmt.Sprintf("reservations are accepted from %s to %s", ev.AcceptStart, ev.AcceptEnd),
		})
	}

	removed, err := h.Engine.Cancel(ctx, eventID, memberID)
	if err != nil {
		return h.writeEngineError(c, err)
	}

	if h.Publish {
		go func(r inventory.Reservation, title string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = queue_publisher.PublishReservationCancelled(ctx, queue.ReservationCancelledEvent{
				EventID:         r.EventID,
				EventTitle:      title,
				MemberID:        r.MemberID,
				PartySize:       r.PartySize,
				ReservationCode: r.Code,
				CancelledAt:     time.Now().UTC().Format(time.RFC3339),
			})
		}(*removed, ev.Title)
	}

	return c.NoContent(http.StatusNoContent)
}

// ListMine handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	memberID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	details, err := h.Views.ListByMember(ctx, memberID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load reservations failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": details})
}

// writeEngineError maps the engine's error taxonomy onto HTTP responses.
func (h *ReservationHandler) writeEngineError(c echo.Context, err error) error {
	var (
		soldOut *inventory.SoldOutError
		tooMany *inventory.TooManyGuestsError
	)
	switch {
	case errors.Is(err, inventory.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, inventory.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, inventory.ErrEmptyParty):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "party size must be at least 1"})
	case errors.As(err, &tooMany):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": fmt.Sprintf("at most %d companions allowed", tooMany.MaxCompanions),
		})
	case errors.As(err, &soldOut):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "sold out",
			"remaining": soldOut.Remaining,
		})
	case errors.Is(err, inventory.ErrContention):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, please retry"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
	}
}
