package state

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// newMockedPostgres prepares the adapter over a sqlmock connection. The four
// statement preparations happen during construction.
func newMockedPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta(queryGetState))
	mock.ExpectPrepare(regexp.QuoteMeta(queryPutState))
	mock.ExpectPrepare(regexp.QuoteMeta(queryDelState))
	mock.ExpectPrepare(regexp.QuoteMeta(queryRangeState))

	adapter, err := newPostgresWithDB(db)
	require.NoError(t, err)
	return adapter, mock
}

func TestPostgres_GetState(t *testing.T) {
	adapter, mock := newMockedPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetState)).
		WithArgs("card_001").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"docType":"sensorEvent"}`)))

	got, err := adapter.GetState(context.Background(), "card_001")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"docType":"sensorEvent"}`), got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetState_AbsentKey(t *testing.T) {
	adapter, mock := newMockedPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetState)).
		WithArgs("ghost_001").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	got, err := adapter.GetState(context.Background(), "ghost_001")
	require.NoError(t, err)
	require.Nil(t, got, "absent key must return nil, nil")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutState(t *testing.T) {
	adapter, mock := newMockedPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(queryPutState)).
		WithArgs("card_001", []byte(`{"eventID":"card_001"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.PutState(context.Background(), "card_001", []byte(`{"eventID":"card_001"}`))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DelState(t *testing.T) {
	adapter, mock := newMockedPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(queryDelState)).
		WithArgs("card_001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.DelState(context.Background(), "card_001")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetStateByRange(t *testing.T) {
	adapter, mock := newMockedPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryRangeState)).
		WithArgs("", "").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("card_001", []byte(`{"a":1}`)).
			AddRow("cctv_001", []byte(`{"b":2}`)))

	it, err := adapter.GetStateByRange(context.Background(), "", "")
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for it.Next() {
		k, v := it.Entry()
		keys = append(keys, k)
		require.NotEmpty(t, v)
	}
	require.NoError(t, it.Err())
	require.Equal(t, []string{"card_001", "cctv_001"}, keys)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Close(t *testing.T) {
	adapter, mock := newMockedPostgres(t)

	mock.ExpectClose()
	require.NoError(t, adapter.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}
