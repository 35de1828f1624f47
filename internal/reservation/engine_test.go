package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL ledger and ticket
// store. Its transaction holds one global mutex from Begin to
// Commit/Rollback, which models the row lock taken by FOR UPDATE:
// concurrent reservations serialize, and a rollback restores the state
// observed at Begin.
type memStore struct {
	mu      sync.Mutex
	events  map[uint64]model.Event
	tickets []model.Ticket
	codes   map[string]struct{}
	nextID  uint64

	// fault injection
	getErr         error // returned by GetForUpdate
	createErr      error // returned by Create after the decrement
	codeCollisions int   // number of Creates that fail with ErrCodeTaken
	createCalls    int
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[uint64]model.Event),
		codes:  make(map[string]struct{}),
	}
}

func (s *memStore) addEvent(id uint64, startsAt time.Time, total, available uint32) {
	s.events[id] = model.Event{
		ID: id, PromoterID: 1, Name: "show", StartsAt: startsAt,
		Total: total, Available: available,
	}
}

type memTx struct {
	s          *memStore
	events     map[uint64]model.Event
	ticketsLen int
	codes      map[string]struct{}
	done       bool
}

func (s *memStore) Begin(ctx context.Context) (repository.Tx, error) {
	s.mu.Lock()
	evSnap := make(map[uint64]model.Event, len(s.events))
	for k, v := range s.events {
		evSnap[k] = v
	}
	codeSnap := make(map[string]struct{}, len(s.codes))
	for k := range s.codes {
		codeSnap[k] = struct{}{}
	}
	return &memTx{s: s, events: evSnap, ticketsLen: len(s.tickets), codes: codeSnap}, nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("tx finished")
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.events = t.events
	t.s.tickets = t.s.tickets[:t.ticketsLen]
	t.s.codes = t.codes
	t.s.mu.Unlock()
	return nil
}

func (s *memStore) GetForUpdate(ctx context.Context, tx repository.Tx, eventID uint64) (*model.Event, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	ev, ok := s.events[eventID]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := ev
	return &cp, nil
}

func (s *memStore) DecrementAvailable(ctx context.Context, tx repository.Tx, eventID uint64) error {
	ev, ok := s.events[eventID]
	if !ok {
		return repository.ErrEventNotFound
	}
	if ev.Available == 0 {
		return repository.ErrNoInventory
	}
	ev.Available--
	s.events[eventID] = ev
	return nil
}

func (s *memStore) ExistsForBuyer(ctx context.Context, tx repository.Tx, eventID, buyerID uint64) (bool, error) {
	for _, t := range s.tickets {
		if t.EventID == eventID && t.BuyerID == buyerID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Create(ctx context.Context, tx repository.Tx, t *model.Ticket) error {
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	if s.codeCollisions > 0 {
		s.codeCollisions--
		return repository.ErrCodeTaken
	}
	for _, ex := range s.tickets {
		if ex.EventID == t.EventID && ex.BuyerID == t.BuyerID {
			return repository.ErrTicketExists
		}
	}
	if _, taken := s.codes[t.Code]; taken {
		return repository.ErrCodeTaken
	}
	s.nextID++
	t.ID = s.nextID
	s.codes[t.Code] = struct{}{}
	s.tickets = append(s.tickets, *t)
	return nil
}

func newTestEngine(s *memStore, retries int) *Engine {
	return NewEngine(s, s, s, retries)
}

func futureStart() time.Time { return time.Now().UTC().Add(24 * time.Hour) }

func TestReserveHappyPath(t *testing.T) {
	s := newMemStore()
	s.addEvent(1, futureStart(), 50, 50)
	eng := newTestEngine(s, 5)

	tk, err := eng.Reserve(context.Background(), 1, 7)
	require.NoError(t, err)
	require.NotNil(t, tk)
	assert.Equal(t, uint64(1), tk.EventID)
	assert.Equal(t, uint64(7), tk.BuyerID)
	assert.NotEmpty(t, tk.Code)
	assert.NotZero(t, tk.ID)
	assert.Equal(t, uint32(49), s.events[1].Available)
	assert.Len(t, s.tickets, 1)
}

func TestReserveEventNotFound(t *testing.T) {
	s := newMemStore()
	eng := newTestEngine(s, 5)

	_, err := eng.Reserve(context.Background(), 99, 7)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestReserveEventClosed(t *testing.T) {
	s := newMemStore()
	s.addEvent(1, time.Now().UTC().Add(-time.Hour), 50, 50)
	eng := newTestEngine(s, 5)

	_, err := eng.Reserve(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrEventClosed)
	assert.Equal(t, uint32(50), s.events[1].Available)
}

func TestReserveSoldOut(t *testing.T) {
	s := newMemStore()
	s.addEvent(1, futureStart(), 10, 0)
	eng := newTestEngine(s, 5)

	_, err := eng.Reserve(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrSoldOut)
}

func TestReserveDuplicatePurchase(t *testing.T) {
	s := newMemStore()
	s.addEvent(1, futureStart(), 10, 9)
	s.tickets = append(s.tickets, model.Ticket{ID: 1, EventID: 1, BuyerID: 7, Code: "ING-X-00001"})
	eng := newTestEngine(s, 5)

	_, err := eng.Reserve(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrDuplicatePurchase)
	assert.Equal(t, uint32(9), s.events[1].Available, "available must be unchanged")
	assert.Len(t, s.tickets, 1)
}

// Inventory conservation: with k tickets available and N > k concurrent
// buyers, exactly k succeed and the rest observe SoldOut.
func TestReserveConcurrentInventoryConservation(t *testing.T) {
	const (
		k = 5
		n = 20
	)
	s := newMemStore()
	s.addEvent(1, futureStart(), k, k)
	eng := newTestEngine(s, 5)

	results := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(buyer uint64) {
			defer wg.Done()
			_, err := eng.Reserve(context.Background(), 1, buyer)
			results <- err
		}(uint64(100 + i))
	}
	wg.Wait()
	close(results)

	var ok, soldOut int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSoldOut):
			soldOut++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, k, ok)
	assert.Equal(t, n-k, soldOut)
	assert.Equal(t, uint32(0), s.events[1].Available)
	assert.Len(t, s.tickets, k)

	seen := make(map[string]struct{}, k)
	for _, tk := range s.tickets {
		_, dup := seen[tk.Code]
		assert.False(t, dup, "code %q issued twice", tk.Code)
		seen[tk.Code] = struct{}{}
	}
}

// Same buyer racing against themselves: exactly one ticket is issued.
func TestReserveSameBuyerConcurrent(t *testing.T) {
	const n = 8
	s := newMemStore()
	s.addEvent(1, futureStart(), 10, 10)
	eng := newTestEngine(s, 5)

	results := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Reserve(context.Background(), 1, 7)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicatePurchase):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
	assert.Equal(t, uint32(9), s.events[1].Available)
	assert.Len(t, s.tickets, 1)
}

// Atomicity: a failed ticket insert must not leave the decrement behind.
func TestReserveRollbackOnInsertFault(t *testing.T) {
	s := newMemStore()
	s.addEvent(1, futureStart(), 10, 10)
	s.createErr = errors.New("disk full")
	eng := newTestEngine(s, 5)

	_, err := eng.Reserve(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, uint32(10), s.events[1].Available, "decrement must not survive a failed insert")
	assert.Empty(t, s.tickets)
}

func TestReserveCodeCollisionRetries(t *testing.T) {
	s := newMemStore()
	s.addEvent(1, futureStart(), 10, 10)
	s.codeCollisions = 2
	eng := newTestEngine(s, 5)

	tk, err := eng.Reserve(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.NotNil(t, tk)
	assert.Equal(t, 3, s.createCalls, "two collisions then one success")
	assert.Equal(t, uint32(9), s.events[1].Available)
}

func TestReserveCodeRetryBudgetExhausted(t *testing.T) {
	s := newMemStore()
	s.addEvent(1, futureStart(), 10, 10)
	s.codeCollisions = 100
	eng := newTestEngine(s, 3)

	_, err := eng.Reserve(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrCodeGenerationFailed)
	assert.Equal(t, 3, s.createCalls)
	assert.Equal(t, uint32(10), s.events[1].Available, "exhausted retries roll back the decrement")
	assert.Empty(t, s.tickets)
}

func TestReserveLockConflict(t *testing.T) {
	s := newMemStore()
	s.addEvent(1, futureStart(), 10, 10)
	s.getErr = repository.ErrLockConflict
	eng := newTestEngine(s, 5)

	_, err := eng.Reserve(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrReservationConflict)
}

func TestReserveDuplicateAtInsertTime(t *testing.T) {
	// The pre-check passes but the constraint fires at insert, as when
	// another instance committed between check and insert.
	s := newMemStore()
	s.addEvent(1, futureStart(), 10, 10)
	s.createErr = repository.ErrTicketExists
	eng := newTestEngine(s, 5)

	_, err := eng.Reserve(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrDuplicatePurchase)
	assert.Equal(t, uint32(10), s.events[1].Available)
}
