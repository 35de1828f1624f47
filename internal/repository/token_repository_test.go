package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockTokenRepo(t *testing.T) (*TokenRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTokenRepo(db), mock
}

// Validity is decided in the query itself: the lookup must exclude
// revoked rows and compare the expiry against the database clock.
func TestValidateRefreshChecksStateInQuery(t *testing.T) {
	repo, mock := newMockTokenRepo(t)

	mock.ExpectQuery(`revoked_at IS NULL AND expires_at > UTC_TIMESTAMP\(\)`).
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))

	uid, err := repo.ValidateRefresh(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), uid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRefreshMissSurfacesNoRows(t *testing.T) {
	repo, mock := newMockTokenRepo(t)

	mock.ExpectQuery(`SELECT user_id FROM refresh_tokens`).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := repo.ValidateRefresh(context.Background(), "gone")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeByHashSkipsRevokedRows(t *testing.T) {
	repo, mock := newMockTokenRepo(t)

	mock.ExpectExec(`SET revoked_at = UTC_TIMESTAMP\(\) WHERE token_hash = \? AND revoked_at IS NULL`).
		WithArgs("abc123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RevokeByHash(context.Background(), "abc123"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
