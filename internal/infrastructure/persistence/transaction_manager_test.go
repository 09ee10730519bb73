package persistence

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTxManagerWithMock(t *testing.T) (*TransactionManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTransactionManager(db), mock
}

func TestWithTransactionCommits(t *testing.T) {
	tm, mock := newTxManagerWithMock(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := tm.WithTransaction(func(tx *sql.Tx) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBackAndSurfacesError(t *testing.T) {
	tm, mock := newTxManagerWithMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := tm.WithTransaction(func(tx *sql.Tx) error { return boom })
	assert.Equal(t, boom, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	tm, mock := newTxManagerWithMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = tm.WithTransaction(func(tx *sql.Tx) error { panic("boom") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRetryStopsOnNonDeadlockError(t *testing.T) {
	tm, mock := newTxManagerWithMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("syntax error")
	err := tm.WithRetry(func(tx *sql.Tx) error { return boom }, 3)
	assert.Equal(t, boom, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsDeadlock(t *testing.T) {
	assert.True(t, isDeadlock(errors.New("Error 1213: Deadlock found when trying to get lock")))
	assert.True(t, isDeadlock(errors.New("Error 1205: Lock wait timeout exceeded")))
	assert.False(t, isDeadlock(errors.New("syntax error")))
	assert.False(t, isDeadlock(nil))
}
