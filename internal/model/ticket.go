package model

import "time"

// Ticket binds one buyer to one unit of one event's inventory.  This
// struct corresponds to a row in the `tickets` table.
//
// Two uniqueness constraints back it in storage: the pair
// (EventID, BuyerID) is unique, so a buyer holds at most one ticket per
// event, and Code is unique across all tickets.  Tickets are created
// only by a successful reservation and are immutable afterwards; there
// is no cancellation or refund flow.
type Ticket struct {
	ID          uint64    // tickets.id
	EventID     uint64    // tickets.event_id
	BuyerID     uint64    // tickets.buyer_id
	Code        string    // tickets.code (unique redemption code)
	PurchasedAt time.Time // tickets.purchased_at
}
