package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Tx is the unit of work threaded explicitly through the reservation
// path. Every mutation performed through a Tx either commits together
// or is rolled back together; callers must finish each Tx on every
// exit path.
type Tx interface {
	Commit() error
	Rollback() error
}

// TxManager begins units of work. The MySQL implementation wraps
// *sql.DB; tests substitute an in-memory manager.
type TxManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// sqlTx adapts *sql.Tx to the Tx interface while keeping the concrete
// transaction reachable for the repositories in this package.
type sqlTx struct{ tx *sql.Tx }

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }

// SQLTxManager implements TxManager on top of a *sql.DB.
type SQLTxManager struct{ DB *sql.DB }

// NewSQLTxManager returns a manager that opens transactions on db.
func NewSQLTxManager(db *sql.DB) *SQLTxManager { return &SQLTxManager{DB: db} }

// Begin opens a database transaction with default isolation.
func (m *SQLTxManager) Begin(ctx context.Context) (Tx, error) {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

// errNotSQLTx reports a Tx value that did not originate from this
// package being handed to a SQL repository.
var errNotSQLTx = errors.New("tx is not a SQL transaction")

// unwrapTx recovers the *sql.Tx from a Tx produced by SQLTxManager.
func unwrapTx(tx Tx) (*sql.Tx, error) {
	st, ok := tx.(*sqlTx)
	if !ok {
		return nil, errNotSQLTx
	}
	return st.tx, nil
}
