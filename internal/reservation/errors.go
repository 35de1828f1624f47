// Package reservation implements the purchase core: the atomic workflow
// that checks an event's state, takes exactly one unit of inventory and
// issues a uniquely coded ticket. Everything here returns sentinel error
// kinds; translating them into user-facing responses is the handlers'
// job.
package reservation

import "errors"

// ErrEventNotFound means the referenced event does not exist. Not
// retryable.
var ErrEventNotFound = errors.New("event not found")

// ErrEventClosed means the event's start time has already passed. Not
// retryable.
var ErrEventClosed = errors.New("event already started")

// ErrSoldOut means no inventory remained at check or commit time. Not
// retried automatically; the caller may re-poll.
var ErrSoldOut = errors.New("event sold out")

// ErrDuplicatePurchase means the buyer already holds a ticket for this
// event. Not retryable.
var ErrDuplicatePurchase = errors.New("buyer already holds a ticket")

// ErrReservationConflict means the unit of work lost a lock wait or
// deadlock race. Nothing was persisted; a bounded retry with backoff is
// safe.
var ErrReservationConflict = errors.New("reservation conflict")

// ErrCodeGenerationFailed means the retry budget for unique redemption
// codes was exhausted. Fatal for the request; practically this requires
// an astronomical collision streak and is logged for attention.
var ErrCodeGenerationFailed = errors.New("code generation failed")

// ErrStorageUnavailable means the durable store could not be reached or
// the unit of work could not be finished. No partial state persists.
var ErrStorageUnavailable = errors.New("storage unavailable")
