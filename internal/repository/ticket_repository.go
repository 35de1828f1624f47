package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// TicketRepo persists issued tickets. Both uniqueness rules that protect
// the purchase flow live in the schema itself, not in application
// locking: uq_tickets_event_buyer on (event_id, buyer_id) and
// uq_tickets_code on the redemption code. They therefore hold across
// process restarts and multiple service instances.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// index names referenced when classifying duplicate-entry errors
const (
	idxEventBuyer = "uq_tickets_event_buyer"
	idxCode       = "uq_tickets_code"
)

// ExistsForBuyer reports, inside the given unit of work, whether the
// buyer already holds a ticket for the event. This is the fast pre-check;
// the race it cannot close is closed again by uq_tickets_event_buyer at
// insert time.
func (r *TicketRepo) ExistsForBuyer(ctx context.Context, tx Tx, eventID, buyerID uint64) (bool, error) {
	stx, err := unwrapTx(tx)
	if err != nil {
		return false, err
	}
	var one int
	err = stx.QueryRowContext(ctx,
		`SELECT 1 FROM tickets WHERE event_id = ? AND buyer_id = ? LIMIT 1`,
		eventID, buyerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create inserts a ticket inside the given unit of work and populates
// its generated ID. Constraint violations are classified by the index
// named in the duplicate-entry message: ErrTicketExists for the
// (event, buyer) pair, ErrCodeTaken for a redemption-code collision.
func (r *TicketRepo) Create(ctx context.Context, tx Tx, t *model.Ticket) error {
	stx, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	const q = `INSERT INTO tickets (event_id, buyer_id, code, purchased_at) VALUES (?, ?, ?, ?)`
	res, err := stx.ExecContext(ctx, q, t.EventID, t.BuyerID, t.Code, t.PurchasedAt.UTC())
	if err != nil {
		if isDuplicateErr(err) {
			switch {
			case strings.Contains(err.Error(), idxEventBuyer):
				return ErrTicketExists
			case strings.Contains(err.Error(), idxCode):
				return ErrCodeTaken
			}
			return ErrTicketExists
		}
		if isLockErr(err) {
			return ErrLockConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// TicketDetail is a ticket joined with its event and promoter context,
// the shape returned to buyers and by the validation gateway.
type TicketDetail struct {
	ID            uint64    `json:"id"`
	Code          string    `json:"code"`
	PurchasedAt   time.Time `json:"purchased_at"`
	BuyerID       uint64    `json:"buyer_id"`
	BuyerName     string    `json:"buyer_name"`
	EventID       uint64    `json:"event_id"`
	EventName     string    `json:"event_name"`
	EventStartsAt time.Time `json:"event_starts_at"`
	Location      string    `json:"location"`
	PriceCents    uint32    `json:"price_cents"`
	PromoterName  string    `json:"promoter_name"`
}

const ticketDetailQuery = `SELECT t.id, t.code, t.purchased_at,
       t.buyer_id, b.name,
       e.id, e.name, e.starts_at, e.location, e.price_cents,
       p.name
  FROM tickets t
  JOIN users b ON b.id = t.buyer_id
  JOIN events e ON e.id = t.event_id
  JOIN users p ON p.id = e.promoter_id`

func scanTicketDetail(row interface{ Scan(...any) error }) (*TicketDetail, error) {
	var d TicketDetail
	err := row.Scan(
		&d.ID, &d.Code, &d.PurchasedAt,
		&d.BuyerID, &d.BuyerName,
		&d.EventID, &d.EventName, &d.EventStartsAt, &d.Location, &d.PriceCents,
		&d.PromoterName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	d.PurchasedAt = d.PurchasedAt.UTC()
	d.EventStartsAt = d.EventStartsAt.UTC()
	return &d, nil
}

// GetByIDForBuyer returns one ticket with full context. ErrForbidden is
// returned when the ticket exists but belongs to a different buyer.
func (r *TicketRepo) GetByIDForBuyer(ctx context.Context, id, buyerID uint64) (*TicketDetail, error) {
	d, err := scanTicketDetail(r.db.QueryRowContext(ctx, ticketDetailQuery+` WHERE t.id = ?`, id))
	if err != nil {
		return nil, err
	}
	if d.BuyerID != buyerID {
		return nil, ErrForbidden
	}
	return d, nil
}

// GetByCode looks up a ticket by its redemption code. Pure read; used by
// the validation gateway.
func (r *TicketRepo) GetByCode(ctx context.Context, code string) (*TicketDetail, error) {
	return scanTicketDetail(r.db.QueryRowContext(ctx, ticketDetailQuery+` WHERE t.code = ?`, code))
}

// ListByBuyer returns every ticket the buyer holds, most recent
// purchase first.
func (r *TicketRepo) ListByBuyer(ctx context.Context, buyerID uint64) ([]TicketDetail, error) {
	rows, err := r.db.QueryContext(ctx, ticketDetailQuery+` WHERE t.buyer_id = ? ORDER BY t.purchased_at DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]TicketDetail, 0)
	for rows.Next() {
		d, err := scanTicketDetail(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
