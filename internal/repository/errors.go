// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the reservation engine to distinguish between different
// failure scenarios without parsing driver messages themselves. For
// example, ErrForbidden indicates that the current user is not
// authorized to operate on a resource owned by someone else, while
// ErrConflict signals that an operation cannot proceed because of
// dependent records (e.g. deleting an event with sold tickets).
package repository

import (
	"errors"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete an event that already has sold tickets. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEventNotFound is returned when the referenced event row does
// not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrTicketNotFound is returned when no ticket matches the given
// identifier or redemption code.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrNoInventory is returned by the atomic decrement when the event
// has no available tickets left at the moment the update executes.
var ErrNoInventory = errors.New("no inventory")

// ErrTicketExists is returned when inserting a ticket violates the
// (event_id, buyer_id) uniqueness constraint: the buyer already holds
// a ticket for the event.
var ErrTicketExists = errors.New("ticket already exists for buyer")

// ErrCodeTaken is returned when inserting a ticket violates the
// redemption-code uniqueness constraint. Callers regenerate the code
// and retry.
var ErrCodeTaken = errors.New("redemption code already in use")

// ErrInvalidAdjustment is returned when a total adjustment would drop
// the declared inventory below the number of tickets already sold.
var ErrInvalidAdjustment = errors.New("invalid total adjustment")

// ErrLockConflict is returned when MySQL reports a lock wait timeout
// (1205) or deadlock (1213) while serializing access to an event row.
// The statement left no effect and the whole unit of work may be retried.
var ErrLockConflict = errors.New("lock conflict")

// MySQL surfaces constraint and locking failures as numbered errors in
// the message text; the driver does not expose typed values for them,
// so classification inspects the text.
func isDuplicateErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}

func isLockErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "1205") || strings.Contains(msg, "1213")
}
