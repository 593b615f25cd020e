// internal/watermark/store_test.go
package watermark

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequency(t *testing.T) {
	assert.Equal(t, "last.process.daily", Daily.Key())
	assert.Equal(t, "last.process.weekly", Weekly.Key())
	assert.True(t, Daily.Valid())
	assert.True(t, Weekly.Valid())
	assert.False(t, Frequency("hourly").Valid())
	assert.False(t, Frequency("").Valid())
}

func TestStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	stored := time.Date(2023, 6, 13, 4, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM storage WHERE key = \$1`).
		WithArgs("last.process.daily").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).
			AddRow(stored.Format(time.RFC3339)))
	mock.ExpectCommit()

	store := NewStore(db)
	ts, found, err := store.Get(context.Background(), Daily)

	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, ts.Equal(stored))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_NoRowYet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM storage WHERE key = \$1`).
		WithArgs("last.process.weekly").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectCommit()

	store := NewStore(db)
	ts, found, err := store.Get(context.Background(), Weekly)

	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, ts.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_UnparseableValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM storage WHERE key = \$1`).
		WithArgs("last.process.daily").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("not-a-timestamp"))
	mock.ExpectRollback()

	store := NewStore(db)
	_, _, err = store.Get(context.Background(), Daily)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Set_InsertsFirstRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2023, 6, 13, 4, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM storage WHERE key = \$1 FOR UPDATE`).
		WithArgs("last.process.daily").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectExec(`INSERT INTO storage \(key, value\) VALUES \(\$1, \$2\)`).
		WithArgs("last.process.daily", ts.Format(time.RFC3339)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewStore(db)
	require.NoError(t, store.Set(context.Background(), Daily, ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Set_UpdatesExistingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2023, 6, 20, 4, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM storage WHERE key = \$1 FOR UPDATE`).
		WithArgs("last.process.weekly").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("2023-06-13T04:30:00Z"))
	mock.ExpectExec(`UPDATE storage SET value = \$2 WHERE key = \$1`).
		WithArgs("last.process.weekly", ts.Format(time.RFC3339)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewStore(db)
	require.NoError(t, store.Set(context.Background(), Weekly, ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Set_StoresUTC(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2023, 6, 13, 23, 30, 0, 0, loc)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM storage WHERE key = \$1 FOR UPDATE`).
		WithArgs("last.process.daily").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectExec(`INSERT INTO storage \(key, value\) VALUES \(\$1, \$2\)`).
		WithArgs("last.process.daily", "2023-06-14T04:30:00Z").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewStore(db)
	require.NoError(t, store.Set(context.Background(), Daily, ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}
