// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketIssuedEvent is published when a reservation commits. It carries
// enough context for downstream consumers to log, notify, or feed
// analytics without querying the primary database.
type TicketIssuedEvent struct {
	TicketID    uint64 `json:"ticket_id"`
	Code        string `json:"code"`
	EventID     uint64 `json:"event_id"`
	EventName   string `json:"event_name"`
	StartsAt    string `json:"starts_at"`
	Location    string `json:"location"`
	BuyerID     uint64 `json:"buyer_id"`
	PriceCents  uint32 `json:"price_cents"`
	PurchasedAt string `json:"purchased_at"`
}
