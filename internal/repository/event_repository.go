package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// EventRepo owns the authoritative ticket inventory for every event.
// The available count is never read-modified-written at the application
// layer: all decrements go through a single guarded UPDATE so that
// concurrent purchases against the same row serialize inside MySQL.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `id, promoter_id, name, description, starts_at, location, image_url, price_cents, total, available, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.PromoterID, &e.Name, &e.Description, &e.StartsAt,
		&e.Location, &e.ImageURL, &e.PriceCents, &e.Total, &e.Available,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	e.StartsAt = e.StartsAt.UTC()
	return &e, nil
}

// Create inserts a new event and populates its generated ID. The
// available count must already equal total on the passed model; the
// event factory computes it at construction time.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (promoter_id, name, description, starts_at, location, image_url, price_cents, total, available)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		e.PromoterID, e.Name, e.Description, e.StartsAt.UTC(), e.Location,
		e.ImageURL, e.PriceCents, e.Total, e.Available)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetByID fetches a single event outside any transaction.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	return scanEvent(r.db.QueryRowContext(ctx, q, id))
}

// GetForUpdate loads an event inside the given unit of work and takes a
// row-level lock on it. Concurrent reservations for the same event block
// here until the holding transaction commits or rolls back; a lock wait
// timeout or deadlock surfaces as ErrLockConflict.
func (r *EventRepo) GetForUpdate(ctx context.Context, tx Tx, id uint64) (*model.Event, error) {
	stx, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ? FOR UPDATE`
	e, err := scanEvent(stx.QueryRowContext(ctx, q, id))
	if err != nil && isLockErr(err) {
		return nil, ErrLockConflict
	}
	return e, err
}

// DecrementAvailable atomically takes one unit of inventory. The guard
// in the WHERE clause makes the check and the write a single statement:
// when no inventory remains, zero rows are affected and ErrNoInventory
// is returned without touching the row.
func (r *EventRepo) DecrementAvailable(ctx context.Context, tx Tx, id uint64) error {
	stx, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	const q = `UPDATE events SET available = available - 1 WHERE id = ? AND available > 0`
	res, err := stx.ExecContext(ctx, q, id)
	if err != nil {
		if isLockErr(err) {
			return ErrLockConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoInventory
	}
	return nil
}

// AdjustTotal sets a new declared total for the event inside the given
// unit of work, shifting available by the same delta. The caller is
// expected to hold the row lock via GetForUpdate. ErrInvalidAdjustment
// is enforced here regardless of who calls, so the invariant holds even
// if a handler skips its own validation.
func (r *EventRepo) AdjustTotal(ctx context.Context, tx Tx, id uint64, newTotal uint32) error {
	stx, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	// total - available is the sold count; the guard refuses any total
	// that would push available negative. The SET arithmetic must run
	// signed: total and available are INT UNSIGNED, and MySQL evaluates
	// subtraction as unsigned when either operand is, so a reduction such
	// as (45 - 50) would abort with a range error instead of producing a
	// negative intermediate. The guard keeps the final value at zero or
	// above.
	const q = `UPDATE events
	           SET available = CAST(available AS SIGNED) + ? - CAST(total AS SIGNED), total = ?
	           WHERE id = ? AND ? >= total - available`
	res, err := stx.ExecContext(ctx, q, newTotal, newTotal, id, newTotal)
	if err != nil {
		if isLockErr(err) {
			return ErrLockConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidAdjustment
	}
	return nil
}

// Update persists the mutable event attributes (everything except
// inventory counters, which change only via AdjustTotal and
// DecrementAvailable) inside the given unit of work.
func (r *EventRepo) Update(ctx context.Context, tx Tx, e *model.Event) error {
	stx, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	const q = `UPDATE events
	           SET name = ?, description = ?, starts_at = ?, location = ?, image_url = ?, price_cents = ?
	           WHERE id = ?`
	_, err = stx.ExecContext(ctx, q,
		e.Name, e.Description, e.StartsAt.UTC(), e.Location, e.ImageURL, e.PriceCents, e.ID)
	return err
}

// DeleteByIDAndPromoter removes an event owned by the given promoter.
// The delete is guarded twice: ErrForbidden when the event belongs to a
// different promoter, and ErrConflict when any ticket has been sold
// (total > available). The guard lives in the DELETE itself so the
// zero-sold rule holds under concurrent purchases.
func (r *EventRepo) DeleteByIDAndPromoter(ctx context.Context, id, promoterID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var ownerID uint64
	var total, available uint32
	const check = `SELECT promoter_id, total, available FROM events WHERE id = ? FOR UPDATE`
	if err := tx.QueryRowContext(ctx, check, id).Scan(&ownerID, &total, &available); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}
	if ownerID != promoterID {
		return ErrForbidden
	}
	if total != available {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// EventListing is the sanitized event shape returned by browse
// endpoints, including the promoter's public identity.
type EventListing struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	StartsAt     time.Time `json:"starts_at"`
	Location     string    `json:"location"`
	ImageURL     string    `json:"image_url"`
	PriceCents   uint32    `json:"price_cents"`
	Total        uint32    `json:"total"`
	Available    uint32    `json:"available"`
	PromoterID   uint64    `json:"promoter_id"`
	PromoterName string    `json:"promoter_name"`
}

// ListUpcoming returns future events that still have inventory,
// newest start first, with optional name/location search and
// limit/offset pagination.
func (r *EventRepo) ListUpcoming(ctx context.Context, search string, limit, offset int) ([]EventListing, error) {
	q := `SELECT e.id, e.name, e.description, e.starts_at, e.location, e.image_url,
	             e.price_cents, e.total, e.available, u.id, u.name
	      FROM events e
	      JOIN users u ON u.id = e.promoter_id
	      WHERE e.available > 0 AND e.starts_at > UTC_TIMESTAMP()`
	args := make([]any, 0, 4)
	if s := strings.TrimSpace(search); s != "" {
		q += ` AND (e.name LIKE ? OR e.location LIKE ?)`
		pat := "%" + s + "%"
		args = append(args, pat, pat)
	}
	q += ` ORDER BY e.starts_at ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]EventListing, 0)
	for rows.Next() {
		var it EventListing
		if err := rows.Scan(
			&it.ID, &it.Name, &it.Description, &it.StartsAt, &it.Location,
			&it.ImageURL, &it.PriceCents, &it.Total, &it.Available,
			&it.PromoterID, &it.PromoterName,
		); err != nil {
			return nil, err
		}
		it.StartsAt = it.StartsAt.UTC()
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListByPromoter returns every event created by the given promoter,
// newest first, including events that have started or sold out.
func (r *EventRepo) ListByPromoter(ctx context.Context, promoterID uint64) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE promoter_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, promoterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
