package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mediquereminder/medique-sub000/pkg/config"
	"github.com/Mediquereminder/medique-sub000/pkg/logger"
)

func setupTestPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store := &Postgres{
		db:     db,
		config: &config.StoreConfig{Driver: "postgres"},
		logger: logger.New("debug"),
	}

	cleanup := func() {
		db.Close()
	}

	return store, mock, cleanup
}

func TestPostgres_GetFound(t *testing.T) {
	store, mock, cleanup := setupTestPostgres(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"value"}).AddRow([]byte(`[{"id":"med-1"}]`))
	mock.ExpectQuery("SELECT value FROM collections WHERE key = \\$1").
		WithArgs("medications").
		WillReturnRows(rows)

	value, err := store.Get(context.Background(), "medications")

	assert.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":"med-1"}]`), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetAbsentKeyReturnsNil(t *testing.T) {
	store, mock, cleanup := setupTestPostgres(t)
	defer cleanup()

	mock.ExpectQuery("SELECT value FROM collections WHERE key = \\$1").
		WithArgs("medicationSchedules").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	value, err := store.Get(context.Background(), "medicationSchedules")

	assert.NoError(t, err)
	assert.Nil(t, value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutUpserts(t *testing.T) {
	store, mock, cleanup := setupTestPostgres(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO collections").
		WithArgs("users", []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Put(context.Background(), "users", []byte(`[]`))

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateCommitsNewValue(t *testing.T) {
	store, mock, cleanup := setupTestPostgres(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT value FROM collections WHERE key = \\$1 FOR UPDATE").
		WithArgs("medicationStock").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`[{"quantity":3}]`)))
	mock.ExpectExec("INSERT INTO collections").
		WithArgs("medicationStock", []byte(`[{"quantity":2}]`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Update(context.Background(), "medicationStock", func(current []byte) ([]byte, error) {
		assert.Equal(t, []byte(`[{"quantity":3}]`), current)
		return []byte(`[{"quantity":2}]`), nil
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateAbsentKeyPassesNil(t *testing.T) {
	store, mock, cleanup := setupTestPostgres(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT value FROM collections WHERE key = \\$1 FOR UPDATE").
		WithArgs("medicationHistory").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectExec("INSERT INTO collections").
		WithArgs("medicationHistory", []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Update(context.Background(), "medicationHistory", func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte(`[]`), nil
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateRollsBackOnFunctionError(t *testing.T) {
	store, mock, cleanup := setupTestPostgres(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT value FROM collections WHERE key = \\$1 FOR UPDATE").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`[]`)))
	mock.ExpectRollback()

	err := store.Update(context.Background(), "users", func(current []byte) ([]byte, error) {
		return nil, fmt.Errorf("boom")
	})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
