package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// PromoterEventHandler covers the promoter-facing event lifecycle:
// create, list own, update (including inventory adjustment) and delete.
type PromoterEventHandler struct {
	Events *repository.EventRepo
	Txm    repository.TxManager
}

func NewPromoterEventHandler(events *repository.EventRepo, txm repository.TxManager) *PromoterEventHandler {
	return &PromoterEventHandler{Events: events, Txm: txm}
}

type createEventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	Location    string    `json:"location"`
	ImageURL    string    `json:"image_url"`
	PriceCents  uint32    `json:"price_cents"`
	Total       uint32    `json:"total"`
}

// Create registers a new event owned by the authenticated promoter.
// Available starts equal to Total; the event must start in the future.
func (h *PromoterEventHandler) Create(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Location == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and location are required"})
	}
	if !req.StartsAt.After(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be in the future"})
	}

	ev, err := model.NewEvent(uid, req.Name, req.Description, req.StartsAt, req.Location, req.ImageURL, req.PriceCents, req.Total)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Events.Create(c.Request().Context(), ev); err != nil {
		c.Logger().Errorf("create event: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create event"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":          ev.ID,
		"name":        ev.Name,
		"starts_at":   ev.StartsAt,
		"location":    ev.Location,
		"price_cents": ev.PriceCents,
		"total":       ev.Total,
		"available":   ev.Available,
	})
}

// ListMine returns every event the authenticated promoter owns,
// including past and sold-out ones.
func (h *PromoterEventHandler) ListMine(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	items, err := h.Events.ListByPromoter(c.Request().Context(), uid)
	if err != nil {
		c.Logger().Errorf("list my events: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list events"})
	}
	out := make([]echo.Map, 0, len(items))
	for i := range items {
		e := &items[i]
		out = append(out, echo.Map{
			"id":          e.ID,
			"name":        e.Name,
			"description": e.Description,
			"starts_at":   e.StartsAt,
			"location":    e.Location,
			"image_url":   e.ImageURL,
			"price_cents": e.PriceCents,
			"total":       e.Total,
			"available":   e.Available,
			"sold":        e.Sold(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

type updateEventRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	Location    *string    `json:"location"`
	ImageURL    *string    `json:"image_url"`
	PriceCents  *uint32    `json:"price_cents"`
	Total       *uint32    `json:"total"`
}

// Update modifies an owned event. Attribute changes and total
// adjustment run in one unit of work under a row lock so a concurrent
// purchase cannot slip between the sold-count check and the write. A
// new total shifts availability by the same delta and is rejected when
// it would drop below the number of tickets already sold.
func (h *PromoterEventHandler) Update(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req updateEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	tx, err := h.Txm.Begin(ctx)
	if err != nil {
		c.Logger().Errorf("update event begin: %v", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ev, err := h.Events.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		c.Logger().Errorf("update event lock: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update event"})
	}
	if ev.PromoterID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
		}
		ev.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		ev.Description = *req.Description
	}
	if req.StartsAt != nil {
		if !req.StartsAt.After(time.Now().UTC()) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be in the future"})
		}
		ev.StartsAt = req.StartsAt.UTC()
	}
	if req.Location != nil {
		ev.Location = *req.Location
	}
	if req.ImageURL != nil {
		ev.ImageURL = *req.ImageURL
	}
	if req.PriceCents != nil {
		ev.PriceCents = *req.PriceCents
	}

	if req.Total != nil && *req.Total != ev.Total {
		// Validate against the locked row first for a precise error, then
		// apply through the guarded UPDATE.
		if err := ev.AdjustTotal(*req.Total); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		if err := h.Events.AdjustTotal(ctx, tx, id, *req.Total); err != nil {
			if errors.Is(err, repository.ErrInvalidAdjustment) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "total below sold count"})
			}
			c.Logger().Errorf("adjust total: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update event"})
		}
	}

	if err := h.Events.Update(ctx, tx, ev); err != nil {
		c.Logger().Errorf("update event: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update event"})
	}
	if err := tx.Commit(); err != nil {
		c.Logger().Errorf("update event commit: %v", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"id":          ev.ID,
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

// Delete removes an owned event. Events with any sold ticket cannot be
// deleted; the guard is enforced inside the repository under a row lock.
func (h *PromoterEventHandler) Delete(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	switch err := h.Events.DeleteByIDAndPromoter(c.Request().Context(), id, uid); {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "event deleted"})
	case errors.Is(err, repository.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "tickets already sold for this event"})
	default:
		c.Logger().Errorf("delete event: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete event"})
	}
}
