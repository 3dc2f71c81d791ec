package schema_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/assoc/schema"
	"gorm.io/assoc/utils/tests"
)

func TestParseTable(t *testing.T) {
	cacheStore := &sync.Map{}

	table, err := schema.Parse("entity_address", tests.Catalog(), cacheStore)
	require.NoError(t, err)

	assert.Equal(t, "entity_address", table.Name)
	assert.Equal(t, []string{"entity_address_id"}, table.PrimaryKeys)
	assert.Equal(t, "entity_address_id", table.PrioritizedPrimaryKey())
	assert.Equal(t, "entity_type", table.Discriminator().Name)
	assert.Equal(t, "entity_id", table.PolymorphicID().Name)
	assert.True(t, table.IsPrimaryKey("entity_address_id"))
	assert.False(t, table.IsPrimaryKey("address_id"))
	assert.Nil(t, table.LookUpColumn("missing"))

	if fks := table.ForeignKeysTo("address"); assert.Len(t, fks, 1) {
		assert.Equal(t, "address_id", fks[0].Name)
	}

	cached, err := schema.Parse("entity_address", tests.Catalog(), cacheStore)
	require.NoError(t, err)
	assert.Same(t, table, cached, "tables should be cached")
}

func TestParseTableErrors(t *testing.T) {
	_, err := schema.Parse("missing", tests.Catalog(), nil)
	assert.True(t, errors.Is(err, schema.ErrNotFound), "got %v", err)

	catalog := schema.NewStaticCatalog().
		Add("dup", schema.ColumnSpec{Name: "id", PrimaryKey: true}, schema.ColumnSpec{Name: "id"}).
		Add("disc", schema.ColumnSpec{Name: "kind", Discriminator: true})

	_, err = schema.Parse("dup", catalog, nil)
	assert.True(t, errors.Is(err, schema.ErrConfiguration), "got %v", err)

	_, err = schema.Parse("disc", catalog, nil)
	assert.True(t, errors.Is(err, schema.ErrConfiguration), "got %v", err)
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := schema.LoadCatalog(strings.NewReader(`
tables:
  user:
    - {name: user_id, type: String, primary_key: true}
  entity_address:
    - {name: entity_address_id, type: uuid, primary_key: true}
    - {name: entity_id, type: string, polymorphic: true}
    - {name: entity_type, type: enum, discriminator: true, enum_values: [user, role]}
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"entity_address", "user"}, catalog.EntityTypes())

	columns, err := catalog.Columns("user")
	require.NoError(t, err)
	assert.Equal(t, schema.String, columns[0].Type)

	_, err = schema.LoadCatalog(strings.NewReader("tables:\n  user:\n    - {name: id, unknown: true}\n"))
	assert.True(t, errors.Is(err, schema.ErrConfiguration), "unknown fields should be rejected, got %v", err)
}

func TestCoerce(t *testing.T) {
	id := uuid.New()

	cases := []struct {
		column schema.ColumnSpec
		value  interface{}
		expect interface{}
	}{
		{schema.ColumnSpec{Type: schema.UUID}, id.String(), id},
		{schema.ColumnSpec{Type: schema.Int}, "42", int64(42)},
		{schema.ColumnSpec{Type: schema.Int}, 42, int64(42)},
		{schema.ColumnSpec{Type: schema.Float}, 2, float64(2)},
		{schema.ColumnSpec{Type: schema.Bool}, "true", true},
		{schema.ColumnSpec{Type: schema.Bool}, 0, false},
		{schema.ColumnSpec{Type: schema.String}, []byte("abc"), "abc"},
		{schema.ColumnSpec{Type: schema.Enum, EnumValues: []string{"user"}}, "user", "user"},
		{schema.ColumnSpec{Type: schema.JSON}, map[string]interface{}{"a": 1}, map[string]interface{}{"a": 1}},
		{schema.ColumnSpec{Type: schema.Int}, nil, nil},
	}

	for _, c := range cases {
		got, err := c.column.Coerce(c.value)
		if assert.NoError(t, err) {
			assert.Equal(t, c.expect, got)
		}
	}

	parsed, err := schema.ColumnSpec{Type: schema.Time}.Coerce("2024-03-01 10:30")
	require.NoError(t, err)
	assert.Equal(t, 2024, parsed.(time.Time).Year())
	assert.Equal(t, time.March, parsed.(time.Time).Month())

	_, err = schema.ColumnSpec{Name: "entity_type", Type: schema.Enum, EnumValues: []string{"user"}}.Coerce("User")
	assert.True(t, errors.Is(err, schema.ErrConfiguration), "enum members compare exactly, got %v", err)

	_, err = schema.ColumnSpec{Type: schema.Int}.Coerce("abc")
	assert.Error(t, err)
}
