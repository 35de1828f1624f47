package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/repository"
)

// PublicEventHandler serves the unauthenticated surface: event browsing
// and the ticket validation gateway used by door staff.
type PublicEventHandler struct {
	Events  *repository.EventRepo
	Tickets *repository.TicketRepo
}

func NewPublicEventHandler(events *repository.EventRepo, tickets *repository.TicketRepo) *PublicEventHandler {
	return &PublicEventHandler{Events: events, Tickets: tickets}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// A redemption code is at least "ING-" plus a millisecond timestamp in
	// base 36 plus the random suffix; anything shorter cannot be valid and
	// is rejected before touching storage.
	minCodeLength = 12
)

// List returns upcoming events that still have availability, with
// optional ?search= matching name or location and ?page=/?limit=
// pagination (page is 1-based).
func (h *PublicEventHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	search := c.QueryParam("search")

	items, err := h.Events.ListUpcoming(c.Request().Context(), search, limit, (page-1)*limit)
	if err != nil {
		c.Logger().Errorf("list events: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list events"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"events": items,
		"page":   page,
		"limit":  limit,
	})
}

// Get returns a single event by ID, whether or not it is still open for
// purchase.
func (h *PublicEventHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ev, err := h.Events.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		c.Logger().Errorf("get event: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load event"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":          ev.ID,
		"promoter_id": ev.PromoterID,
		"name":        ev.Name,
		"description": ev.Description,
		"starts_at":   ev.StartsAt,
		"location":    ev.Location,
		"image_url":   ev.ImageURL,
		"price_cents": ev.PriceCents,
		"total":       ev.Total,
		"available":   ev.Available,
	})
}

// ValidateTicket is the gateway used at the door: it looks up a ticket
// by redemption code and reports whether the event has already begun.
// The code is matched exactly as stored; codes are generated uppercase,
// so the input is uppercased before lookup to tolerate hand-typed codes.
func (h *PublicEventHandler) ValidateTicket(c echo.Context) error {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if len(code) < minCodeLength {
		return c.JSON(http.StatusBadRequest, echo.Map{"valid": false, "error": "malformed code"})
	}
	d, err := h.Tickets.GetByCode(c.Request().Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"valid": false, "error": "unknown code"})
		}
		c.Logger().Errorf("validate ticket: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validation failed"})
	}

	now := time.Now().UTC()
	return c.JSON(http.StatusOK, echo.Map{
		"valid":         true,
		"code":          d.Code,
		"buyer_name":    d.BuyerName,
		"event_id":      d.EventID,
		"event_name":    d.EventName,
		"starts_at":     d.EventStartsAt,
		"location":      d.Location,
		"promoter_name": d.PromoterName,
		"purchased_at":  d.PurchasedAt,
		"event_elapsed": !d.EventStartsAt.After(now),
	})
}
