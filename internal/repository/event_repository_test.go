package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*EventRepo, sqlmock.Sqlmock, Tx) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	tx, err := NewSQLTxManager(db).Begin(context.Background())
	require.NoError(t, err)
	return NewEventRepo(db), mock, tx
}

// A total reduction sends a signed delta through the SET clause. The
// statement must cast the unsigned columns, otherwise MySQL evaluates
// (newTotal - total) as unsigned and errors out on any decrease.
func TestAdjustTotalReductionUsesSignedArithmetic(t *testing.T) {
	repo, mock, tx := newMockRepo(t)

	mock.ExpectExec(`CAST\(available AS SIGNED\) \+ \? - CAST\(total AS SIGNED\)`).
		WithArgs(45, 45, 1, 45).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AdjustTotal(context.Background(), tx, 1, 45))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustTotalRejectsTotalBelowSoldCount(t *testing.T) {
	repo, mock, tx := newMockRepo(t)

	// The guard matches no row when the requested total is below the
	// sold count, and zero affected rows classify as the sentinel.
	mock.ExpectExec(`UPDATE events`).
		WithArgs(9, 9, 1, 9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.AdjustTotal(context.Background(), tx, 1, 9)
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementAvailableExhausted(t *testing.T) {
	repo, mock, tx := newMockRepo(t)

	mock.ExpectExec(`available = available - 1 WHERE id = \? AND available > 0`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DecrementAvailable(context.Background(), tx, 1)
	assert.ErrorIs(t, err, ErrNoInventory)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustTotalClassifiesLockErrors(t *testing.T) {
	repo, mock, tx := newMockRepo(t)

	mock.ExpectExec(`UPDATE events`).
		WithArgs(20, 20, 1, 20).
		WillReturnError(errors.New("Error 1213: Deadlock found when trying to get lock"))
	mock.ExpectRollback()

	err := repo.AdjustTotal(context.Background(), tx, 1, 20)
	assert.ErrorIs(t, err, ErrLockConflict)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForUpdateMissingEvent(t *testing.T) {
	repo, mock, tx := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \? FOR UPDATE`).
		WithArgs(42).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.GetForUpdate(context.Background(), tx, 42)
	assert.ErrorIs(t, err, ErrEventNotFound)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
