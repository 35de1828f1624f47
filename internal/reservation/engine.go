package reservation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// Ledger is the slice of the event store the engine needs: a locked
// read and the atomic fetch-and-decrement. repository.EventRepo is the
// MySQL implementation; tests plug in an in-memory fake.
type Ledger interface {
	GetForUpdate(ctx context.Context, tx repository.Tx, eventID uint64) (*model.Event, error)
	DecrementAvailable(ctx context.Context, tx repository.Tx, eventID uint64) error
}

// TicketStore is the slice of the ticket store the engine needs.
// Create must surface repository.ErrTicketExists and
// repository.ErrCodeTaken for the two uniqueness constraints so the
// engine can distinguish a duplicate buyer from a code collision.
type TicketStore interface {
	ExistsForBuyer(ctx context.Context, tx repository.Tx, eventID, buyerID uint64) (bool, error)
	Create(ctx context.Context, tx repository.Tx, t *model.Ticket) error
}

// Engine orchestrates the reservation workflow. One Engine is shared by
// all requests; it holds no per-request state.
type Engine struct {
	txm     repository.TxManager
	ledger  Ledger
	tickets TicketStore

	// now is injectable so tests control temporal validity checks.
	now func() time.Time
	// codeRetries bounds how many fresh codes are tried when an insert
	// hits the code uniqueness constraint.
	codeRetries int
}

// NewEngine builds an Engine. codeRetries below 1 is raised to 1 so the
// insert always gets at least one attempt.
func NewEngine(txm repository.TxManager, ledger Ledger, tickets TicketStore, codeRetries int) *Engine {
	if codeRetries < 1 {
		codeRetries = 1
	}
	return &Engine{
		txm:         txm,
		ledger:      ledger,
		tickets:     tickets,
		now:         func() time.Time { return time.Now().UTC() },
		codeRetries: codeRetries,
	}
}

// Reserve issues exactly one ticket for (eventID, buyerID) or returns
// one of the package error kinds with zero persisted effect.
//
// The whole workflow runs in a single unit of work. The FOR UPDATE read
// serializes concurrent purchases of the same event, so under N
// simultaneous calls with k tickets available exactly k commit and the
// rest observe available == 0. The duplicate-buyer rule is pre-checked
// for a fast error and enforced again by the storage constraint at
// insert time, which closes the check-then-insert race for concurrent
// calls from the same buyer.
func (e *Engine) Reserve(ctx context.Context, eventID, buyerID uint64) (*model.Ticket, error) {
	tx, err := e.txm.Begin(ctx)
	if err != nil {
		return nil, ErrStorageUnavailable
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ev, err := e.ledger.GetForUpdate(ctx, tx, eventID)
	if err != nil {
		return nil, e.classify(err)
	}
	if ev.HasStarted(e.now()) {
		return nil, ErrEventClosed
	}
	if ev.Available == 0 {
		return nil, ErrSoldOut
	}
	already, err := e.tickets.ExistsForBuyer(ctx, tx, eventID, buyerID)
	if err != nil {
		return nil, e.classify(err)
	}
	if already {
		return nil, ErrDuplicatePurchase
	}

	if err := e.ledger.DecrementAvailable(ctx, tx, eventID); err != nil {
		return nil, e.classify(err)
	}

	// A failed INSERT does not abort a MySQL transaction, so a code
	// collision can be retried inside the same unit of work while the
	// decrement above stays staged.
	var ticket *model.Ticket
	for attempt := 0; attempt < e.codeRetries; attempt++ {
		t := &model.Ticket{
			EventID:     eventID,
			BuyerID:     buyerID,
			Code:        GenerateCode(e.now()),
			PurchasedAt: e.now(),
		}
		err = e.tickets.Create(ctx, tx, t)
		if err == nil {
			ticket = t
			break
		}
		if errors.Is(err, repository.ErrCodeTaken) {
			continue
		}
		return nil, e.classify(err)
	}
	if ticket == nil {
		log.Printf("reservation: code retry budget (%d) exhausted for event=%d buyer=%d", e.codeRetries, eventID, buyerID)
		return nil, ErrCodeGenerationFailed
	}

	if err := tx.Commit(); err != nil {
		return nil, e.classify(err)
	}
	committed = true
	return ticket, nil
}

// classify maps storage-layer sentinels onto the reservation error
// taxonomy. Anything unrecognized is treated as the store being
// unavailable: the transaction is rolled back and the caller may retry.
func (e *Engine) classify(err error) error {
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repository.ErrNoInventory):
		return ErrSoldOut
	case errors.Is(err, repository.ErrTicketExists):
		return ErrDuplicatePurchase
	case errors.Is(err, repository.ErrLockConflict):
		return ErrReservationConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	default:
		return ErrStorageUnavailable
	}
}
