package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/assoc"
	"gorm.io/assoc/clause"
	"gorm.io/assoc/logger"
	"gorm.io/assoc/storage/sqlstore"
	"gorm.io/assoc/utils/tests"
)

func newStore(t *testing.T) (*sqlstore.Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlstore.New(db, tests.Catalog(), nil), mock
}

func TestFetch(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery(`SELECT "user_id","name","email" FROM "user" WHERE "user"."name" = $1`).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "email"}).AddRow("u2", "bob", nil))

	records, err := store.Fetch(context.Background(), assoc.Predicate{
		Table:      "user",
		Expression: clause.Eq{Column: clause.Column{Table: "user", Name: "name"}, Value: "bob"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]interface{}{"user_id": "u2", "name": "bob", "email": nil}, records[0].Values)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchCoercesValues(t *testing.T) {
	store, mock := newStore(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT "entity_address_id","entity_id","entity_type","address_id","emergency_address","is_primary" FROM "entity_address" WHERE ("entity_address"."entity_id" = $1 AND "entity_address"."entity_type" = $2)`).
		WithArgs("u1", "user").
		WillReturnRows(sqlmock.NewRows([]string{"entity_address_id", "entity_id", "entity_type", "address_id", "emergency_address", "is_primary"}).
			AddRow(id.String(), "u1", "user", "a1", false, nil))

	records, err := store.Fetch(context.Background(), assoc.Predicate{
		Table: "entity_address",
		Expression: clause.And(
			clause.Eq{Column: clause.Column{Table: "entity_address", Name: "entity_id"}, Value: "u1"},
			clause.Eq{Column: clause.Column{Table: "entity_address", Name: "entity_type"}, Value: "user"},
		),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].Get("entity_address_id"))
	assert.Equal(t, false, records[0].Get("emergency_address"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectExec(`INSERT INTO "user" ("user_id","name") VALUES ($1,$2) ON CONFLICT ("user_id") DO UPDATE SET "name"="excluded"."name"`).
		WithArgs("u1", "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "user_roles" ("user_id","role_id") VALUES ($1,$2) ON CONFLICT ("user_id","role_id") DO NOTHING`).
		WithArgs("u1", "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	require.NoError(t, store.Persist(ctx, assoc.NewRecord("user", map[string]interface{}{"user_id": "u1", "name": "alice"})))
	require.NoError(t, store.Persist(ctx, assoc.NewRecord("user_roles", map[string]interface{}{"user_id": "u1", "role_id": "r1"})))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectExec(`DELETE FROM "user_roles" WHERE ("user_roles"."user_id" = $1 AND "user_roles"."role_id" = $2)`).
		WithArgs("u1", "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), assoc.NewRecord("user_roles", map[string]interface{}{"user_id": "u1", "role_id": "r1"})))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreErrors(t *testing.T) {
	store, mock := newStore(t)
	ctx := context.Background()

	err := store.Persist(ctx, assoc.NewRecord("user", map[string]interface{}{"name": "anonymous"}))
	assert.True(t, errors.Is(err, assoc.ErrPrimaryKeyRequired), "got %v", err)

	err = store.Delete(ctx, assoc.NewRecord("user_roles", map[string]interface{}{"user_id": "u1"}))
	assert.True(t, errors.Is(err, assoc.ErrPrimaryKeyRequired), "got %v", err)

	_, err = store.Fetch(ctx, assoc.Predicate{Table: "missing"})
	assert.True(t, errors.Is(err, assoc.ErrNotFound), "got %v", err)

	failure := errors.New("connection reset")
	mock.ExpectQuery(`SELECT "role_id","name" FROM "role"`).WillReturnError(failure)
	_, err = store.Fetch(ctx, assoc.Predicate{Table: "role"})
	assert.ErrorIs(t, err, failure)
	require.NoError(t, mock.ExpectationsWereMet())
}

type pgError struct {
	Code    string
	Message string
}

func (e *pgError) Error() string {
	return e.Message
}

type stateError string

func (e stateError) Error() string {
	return "sqlstate " + string(e)
}

func (e stateError) SQLState() string {
	return string(e)
}

func TestTranslateErrors(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectExec(`INSERT INTO "role" ("role_id","name") VALUES ($1,$2) ON CONFLICT ("role_id") DO UPDATE SET "name"="excluded"."name"`).
		WithArgs("r1", "admin").
		WillReturnError(&pgError{Code: "23505", Message: `duplicate key value violates unique constraint "role_name_key"`})

	err := store.Persist(context.Background(), assoc.NewRecord("role", map[string]interface{}{"role_id": "r1", "name": "admin"}))
	assert.ErrorIs(t, err, assoc.ErrDuplicatedKey)
	assert.Contains(t, err.Error(), "role_name_key")

	other := errors.New("connection reset")
	assert.Equal(t, other, sqlstore.PostgresErrTranslator{}.Translate(other))

	err = sqlstore.PostgresErrTranslator{}.Translate(fmt.Errorf("delete user: %w", stateError("23503")))
	assert.ErrorIs(t, err, assoc.ErrForeignKeyViolated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTracesRoundTrips(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	assert.False(t, sqlstore.New(db, tests.Catalog(), nil).TracesRoundTrips())
	assert.True(t, sqlstore.New(db, tests.Catalog(), logger.Default).TracesRoundTrips())
}
