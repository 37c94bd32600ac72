package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pandapunten/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectUsersQuery = `(?s)^\s*SELECT\s+name,\s*token,\s*last_reset\s+FROM\s+users\s+ORDER\s+BY\s+position\s*$`
	deleteUsersQuery = `^DELETE FROM users$`
	insertUserQuery  = `(?s)^\s*INSERT\s+INTO\s+users\s*\(position,\s*name,\s*token,\s*last_reset\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*$`
)

func newMockCollection(t *testing.T) (*PostgresCollection, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewPostgresCollection(db), mock
}

func TestPostgresCollection_LoadOrdered(t *testing.T) {
	c, mock := newMockCollection(t)
	reset := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(selectUsersQuery).WillReturnRows(
		sqlmock.NewRows([]string{"name", "token", "last_reset"}).
			AddRow("Zed", "z", reset).
			AddRow("Amy", "a", reset.Add(time.Hour)),
	)

	users, err := c.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Zed", users[0].Name)
	assert.Equal(t, "a", users[1].Token)
	assert.Zero(t, users[1].Points)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCollection_LoadEmpty(t *testing.T) {
	c, mock := newMockCollection(t)
	mock.ExpectQuery(selectUsersQuery).WillReturnRows(sqlmock.NewRows([]string{"name", "token", "last_reset"}))

	users, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestPostgresCollection_LoadError(t *testing.T) {
	c, mock := newMockCollection(t)
	mock.ExpectQuery(selectUsersQuery).WillReturnError(errors.New("db down"))

	_, err := c.Load(context.Background())
	require.ErrorContains(t, err, "query users: db down")
}

func TestPostgresCollection_SaveReplacesInOrder(t *testing.T) {
	c, mock := newMockCollection(t)
	reset := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	users := []types.User{
		{Name: "Zed", Token: "z", LastReset: reset},
		{Name: "Amy", Token: "a", LastReset: reset},
	}

	mock.ExpectBegin()
	mock.ExpectExec(deleteUsersQuery).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(insertUserQuery).WithArgs(0, "Zed", "z", reset).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertUserQuery).WithArgs(1, "Amy", "a", reset).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, c.Save(context.Background(), users))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCollection_SaveRollsBackOnInsertError(t *testing.T) {
	c, mock := newMockCollection(t)
	users := []types.User{{Name: "Zed", Token: "z"}}

	mock.ExpectBegin()
	mock.ExpectExec(deleteUsersQuery).WillReturnResult(driver.RowsAffected(1))
	mock.ExpectExec(insertUserQuery).WillReturnError(errors.New("duplicate"))
	mock.ExpectRollback()

	err := c.Save(context.Background(), users)
	require.ErrorContains(t, err, "insert user 0: duplicate")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCollection_SaveEmptyClearsTable(t *testing.T) {
	c, mock := newMockCollection(t)

	mock.ExpectBegin()
	mock.ExpectExec(deleteUsersQuery).WillReturnResult(driver.RowsAffected(2))
	mock.ExpectCommit()

	require.NoError(t, c.Save(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
