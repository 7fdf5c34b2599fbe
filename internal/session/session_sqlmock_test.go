package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/worksite/pkg/types"
)

var errDiskIO = errors.New("disk I/O error")

// mockStore returns a Store over a sqlmock database.
func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return &Store{db: db, now: time.Now}, mock
}

func TestSaveWrapsDatabaseErrors(t *testing.T) {
	st, mock := mockStore(t)
	mock.ExpectExec("INSERT INTO sessions").WillReturnError(errDiskIO)

	err := st.Save(context.Background(), Session{Server: "http://a", Username: "ann", Token: "t"})
	require.ErrorIs(t, err, errDiskIO)
	assert.Contains(t, err.Error(), "save session")
}

func TestLoadWrapsDatabaseErrors(t *testing.T) {
	st, mock := mockStore(t)
	mock.ExpectQuery("SELECT server, username").WithArgs("http://a").WillReturnError(errDiskIO)

	_, err := st.Load(context.Background(), "http://a")
	require.ErrorIs(t, err, errDiskIO)
	assert.NotErrorIs(t, err, types.ErrNoSession)
}

func TestLoadIgnoresMalformedTimes(t *testing.T) {
	st, mock := mockStore(t)
	rows := sqlmock.NewRows([]string{"server", "username", "token", "user_id", "role", "expires_at", "created_at"}).
		AddRow("http://a", "ann", "t", 7, "user", "not-a-time", nil)
	mock.ExpectQuery("SELECT server, username").WithArgs("http://a").WillReturnRows(rows)

	s, err := st.Load(context.Background(), "http://a")
	require.NoError(t, err)
	assert.Equal(t, "ann", s.Username)
	assert.True(t, s.ExpiresAt.IsZero(), "unparsable expiry reads as no expiry")
	assert.True(t, s.CreatedAt.IsZero())
}

func TestListStopsOnScanError(t *testing.T) {
	st, mock := mockStore(t)
	rows := sqlmock.NewRows([]string{"server", "username", "token", "user_id", "role", "expires_at", "created_at"}).
		AddRow("http://a", "ann", "t", "not-a-number", "user", nil, nil)
	mock.ExpectQuery("SELECT server, username").WillReturnRows(rows)

	_, err := st.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list sessions")
}

func TestDeleteWrapsDatabaseErrors(t *testing.T) {
	st, mock := mockStore(t)
	mock.ExpectExec("DELETE FROM sessions").WithArgs("http://a").WillReturnError(errDiskIO)

	err := st.Delete(context.Background(), "http://a")
	require.ErrorIs(t, err, errDiskIO)
}
