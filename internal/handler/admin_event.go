package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tappy-heartful/streak-navi-sub000/internal/inventory"
	"github.com/tappy-heartful/streak-navi-sub000/internal/repository"
)

// AdminEventHandler exposes the event CRUD surface for admins.  The
// reserved counter is never writable here; it belongs to the inventory
// engine.
type AdminEventHandler struct {
	Events       *repository.EventRepo
	Reservations *repository.ReservationRepo
}

func NewAdminEventHandler(events *repository.EventRepo, reservations *repository.ReservationRepo) *AdminEventHandler {
	return &AdminEventHandler{Events: events, Reservations: reservations}
}

type eventReq struct {
	Title         string `json:"title"`
	Venue         string `json:"venue"`
	EventDate     string `json:"event_date"` // "YYYY.MM.DD"
	TicketStock   int    `json:"ticket_stock"`
	MaxCompanions int    `json:"max_companions"`
	AcceptStart   string `json:"accept_start"` // "YYYY.MM.DD"
	AcceptEnd     string `json:"accept_end"`   // "YYYY.MM.DD"
	IsAccepting   bool   `json:"is_accepting"`
}

type eventResp struct {
	ID            uint64 `json:"id"`
	Title         string `json:"title"`
	Venue         string `json:"venue"`
	EventDate     string `json:"event_date"`
	TicketStock   int    `json:"ticket_stock"`
	TotalReserved int    `json:"total_reserved"`
	Remaining     int    `json:"remaining"`
	MaxCompanions int    `json:"max_companions"`
	AcceptStart   string `json:"accept_start"`
	AcceptEnd     string `json:"accept_end"`
	IsAccepting   bool   `json:"is_accepting"`
}

func toEventResp(ev *inventory.Event) eventResp {
	return eventResp{
		ID:            ev.ID,
		Title:         ev.Title,
		Venue:         ev.Venue,
		EventDate:     ev.EventDate,
		TicketStock:   ev.TicketStock,
		TotalReserved: ev.TotalReserved,
		Remaining:     ev.Remaining(),
		MaxCompanions: ev.MaxCompanions,
		AcceptStart:   ev.AcceptStart,
		AcceptEnd:     ev.AcceptEnd,
		IsAccepting:   ev.IsAccepting,
	}
}

var dateForm = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

func (req *eventReq) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	req.Venue = strings.TrimSpace(req.Venue)
	if req.Title == "" {
		return "title required"
	}
	if req.TicketStock < 1 {
		return "ticket_stock must be at least 1"
	}
	if req.MaxCompanions < 0 {
		return "max_companions must not be negative"
	}
	for _, d := range []string{req.EventDate, req.AcceptStart, req.AcceptEnd} {
		if !dateForm.MatchString(d) {
			return "dates must use the YYYY.MM.DD form"
		}
	}
	if req.AcceptEnd < req.AcceptStart {
		return "accept_end must not precede accept_start"
	}
	return ""
}

// Create handles POST /v1/admin/events.
func (h *AdminEventHandler) Create(c echo.Context) error {
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev := &inventory.Event{
		Title:         req.Title,
		Venue:         req.Venue,
		EventDate:     req.EventDate,
		TicketStock:   req.TicketStock,
		MaxCompanions: req.MaxCompanions,
		AcceptStart:   req.AcceptStart,
		AcceptEnd:     req.AcceptEnd,
		IsAccepting:   req.IsAccepting,
	}
	if err := h.Events.Create(ctx, ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, toEventResp(ev))
}

// Update handles PUT /v1/admin/events/:id.  Shrinking the stock below the
// live reserved total is rejected with 409.
func (h *AdminEventHandler) Update(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev := &inventory.Event{
		ID:            id,
		Title:         req.Title,
		Venue:         req.Venue,
		EventDate:     req.EventDate,
		TicketStock:   req.TicketStock,
		MaxCompanions: req.MaxCompanions,
		AcceptStart:   req.AcceptStart,
		AcceptEnd:     req.AcceptEnd,
		IsAccepting:   req.IsAccepting,
	}
	if err := h.Events.Update(ctx, ev); err != nil {
		switch {
		case errors.Is(err, inventory.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket_stock below reserved total"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
		}
	}
	got, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	return c.JSON(http.StatusOK, toEventResp(got))
}

// Delete handles DELETE /v1/admin/events/:id.  Events with live
// reservations cannot be removed.
func (h *AdminEventHandler) Delete(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, inventory.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "event has live reservations"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete event failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// ListReservations handles GET /v1/admin/events/:id/reservations.
func (h *AdminEventHandler) ListReservations(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Events.GetByID(ctx, id); err != nil {
		if errors.Is(err, inventory.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	details, err := h.Reservations.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load reservations failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": details})
}
