package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/reservation"
	queuepub "github.com/iliyamo/event-ticketing/internal/service"
)

// BuyerTicketHandler covers the buyer surface: purchasing a ticket and
// reading owned tickets.
type BuyerTicketHandler struct {
	Engine  *reservation.Engine
	Tickets *repository.TicketRepo

	// PublishEnabled gates the broker notification so tests and broker-less
	// deployments run without RabbitMQ.
	PublishEnabled bool
}

func NewBuyerTicketHandler(engine *reservation.Engine, tickets *repository.TicketRepo, publish bool) *BuyerTicketHandler {
	return &BuyerTicketHandler{Engine: engine, Tickets: tickets, PublishEnabled: publish}
}

// Purchase issues at most one ticket for the authenticated buyer on the
// given event. The reservation core does all the work atomically; this
// handler only translates its error kinds into HTTP responses and
// notifies the broker once the ticket is durable.
func (h *BuyerTicketHandler) Purchase(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ticket, err := h.Engine.Reserve(ctx, eventID, uid)
	if err != nil {
		return h.purchaseError(c, err)
	}

	if h.PublishEnabled {
		h.notifyIssued(c, ticket.ID, uid)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":           ticket.ID,
		"event_id":     ticket.EventID,
		"buyer_id":     ticket.BuyerID,
		"code":         ticket.Code,
		"purchased_at": ticket.PurchasedAt,
	})
}

// purchaseError maps the reservation error taxonomy onto HTTP statuses.
// Conflict-family errors use 409; infrastructure failures use 5xx.
func (h *BuyerTicketHandler) purchaseError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, reservation.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, reservation.ErrEventClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "event already started"})
	case errors.Is(err, reservation.ErrSoldOut):
		return c.JSON(http.StatusConflict, echo.Map{"error": "event sold out"})
	case errors.Is(err, reservation.ErrDuplicatePurchase):
		return c.JSON(http.StatusConflict, echo.Map{"error": "you already hold a ticket for this event"})
	case errors.Is(err, reservation.ErrReservationConflict):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation conflict, please retry"})
	case errors.Is(err, reservation.ErrCodeGenerationFailed):
		c.Logger().Errorf("purchase: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue ticket"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "purchase timed out"})
	default:
		c.Logger().Errorf("purchase: %v", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable"})
	}
}

// notifyIssued loads the full ticket context and publishes it to the
// broker in the background. The purchase already committed; a publish
// failure is logged, never surfaced to the buyer.
func (h *BuyerTicketHandler) notifyIssued(c echo.Context, ticketID, buyerID uint64) {
	logger := c.Logger()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		d, err := h.Tickets.GetByIDForBuyer(ctx, ticketID, buyerID)
		if err != nil {
			logger.Errorf("notify issued: load ticket %d: %v", ticketID, err)
			return
		}
		ev := queue.TicketIssuedEvent{
			TicketID:    d.ID,
			Code:        d.Code,
			EventID:     d.EventID,
			EventName:   d.EventName,
			StartsAt:    d.EventStartsAt.Format(time.RFC3339),
			Location:    d.Location,
			BuyerID:     d.BuyerID,
			PriceCents:  d.PriceCents,
			PurchasedAt: d.PurchasedAt.Format(time.RFC3339),
		}
		if err := queuepub.PublishTicketIssued(ctx, ev); err != nil {
			logger.Errorf("notify issued: publish ticket %d: %v", ticketID, err)
		}
	}()
}

// MyTickets returns every ticket the authenticated buyer holds, most
// recent first.
func (h *BuyerTicketHandler) MyTickets(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	items, err := h.Tickets.ListByBuyer(c.Request().Context(), uid)
	if err != nil {
		c.Logger().Errorf("my tickets: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list tickets"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": items})
}

// GetTicket returns one owned ticket with full event context.
func (h *BuyerTicketHandler) GetTicket(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	d, err := h.Tickets.GetByIDForBuyer(c.Request().Context(), id, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your ticket"})
		default:
			c.Logger().Errorf("get ticket: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load ticket"})
		}
	}
	return c.JSON(http.StatusOK, d)
}
