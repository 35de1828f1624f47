package model

import (
	"errors"
	"time"
)

// Event represents a promoter-owned offering with a fixed, finite ticket
// inventory and a future start time.  This struct corresponds to a row in
// the `events` table.
//
// The inventory invariant 0 <= Available <= Total holds at all times.
// Available only decreases through a successful reservation and only
// increases through an explicit total adjustment by the owning promoter.
type Event struct {
	ID          uint64    // events.id
	PromoterID  uint64    // events.promoter_id
	Name        string    // events.name
	Description string    // events.description
	StartsAt    time.Time // events.starts_at (UTC)
	Location    string    // events.location
	ImageURL    string    // events.image_url
	PriceCents  uint32    // events.price_cents
	Total       uint32    // events.total
	Available   uint32    // events.available
	CreatedAt   time.Time // events.created_at
	UpdatedAt   time.Time // events.updated_at
}

// ErrInvalidAdjustment is returned when a requested total would leave
// fewer seats than have already been sold.
var ErrInvalidAdjustment = errors.New("total below sold count")

// ErrZeroTotal is returned when an event is created with no inventory.
var ErrZeroTotal = errors.New("total must be at least 1")

// NewEvent builds an unsaved event with Available set to Total.  The
// available count is computed here, at construction time, so that no
// persistence-layer hook has to backfill it.
func NewEvent(promoterID uint64, name, description string, startsAt time.Time, location, imageURL string, priceCents, total uint32) (*Event, error) {
	if total < 1 {
		return nil, ErrZeroTotal
	}
	return &Event{
		PromoterID:  promoterID,
		Name:        name,
		Description: description,
		StartsAt:    startsAt.UTC(),
		Location:    location,
		ImageURL:    imageURL,
		PriceCents:  priceCents,
		Total:       total,
		Available:   total,
	}, nil
}

// Sold returns how many tickets have been issued for the event.
func (e *Event) Sold() uint32 { return e.Total - e.Available }

// CanDelete reports whether the event may be removed.  An event is
// deletable only while no ticket exists for it.
func (e *Event) CanDelete() bool { return e.Sold() == 0 }

// HasStarted reports whether the event's start time has passed relative
// to now.  A purchase is only allowed while the start is strictly in the
// future.
func (e *Event) HasStarted(now time.Time) bool { return !e.StartsAt.After(now) }

// AdjustTotal changes the declared inventory to newTotal and shifts
// Available by the same delta, keeping the sold count fixed.  It fails
// with ErrInvalidAdjustment when newTotal would drop below the number of
// tickets already sold, and with ErrZeroTotal when newTotal is zero.
func (e *Event) AdjustTotal(newTotal uint32) error {
	if newTotal < 1 {
		return ErrZeroTotal
	}
	if newTotal < e.Sold() {
		return ErrInvalidAdjustment
	}
	e.Available = newTotal - e.Sold()
	e.Total = newTotal
	return nil
}
