package sqlstore

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// TestSQLStoreGetPropagatesDriverError exercises the error path using a
// mocked driver rather than a real SQLite file, so a connection failure
// can be simulated deterministically.
func TestSQLStoreGetPropagatesDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT key, value, updated_at FROM kv WHERE key = \?`).
		WithArgs("foo").
		WillReturnError(errors.New("driver: connection lost"))

	store := &Store{db: sqlx.NewDb(db, "sqlmock")}
	_, _, err = store.Get(context.Background(), "foo")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
