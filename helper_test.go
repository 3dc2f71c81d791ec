package assoc_test

import (
	"context"
	"reflect"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"gorm.io/assoc"
	"gorm.io/assoc/clause"
	"gorm.io/assoc/logger"
	"gorm.io/assoc/schema"
	"gorm.io/assoc/storage/memstore"
	"gorm.io/assoc/utils/tests"
)

// countingStore counts the fetches reaching storage
type countingStore struct {
	*memstore.Store
	fetches int64
}

func (s *countingStore) Fetch(ctx context.Context, predicate assoc.Predicate) ([]*assoc.Record, error) {
	atomic.AddInt64(&s.fetches, 1)
	return s.Store.Fetch(ctx, predicate)
}

func (s *countingStore) Fetches() int64 {
	return atomic.LoadInt64(&s.fetches)
}

func newEngine(t *testing.T, definitions ...schema.Definition) (*assoc.Engine, *countingStore) {
	t.Helper()

	if len(definitions) == 0 {
		definitions = tests.Definitions()
	}

	registry, err := assoc.NewRegistry(definitions...)
	require.NoError(t, err)

	catalog := tests.Catalog()
	store, err := memstore.New(catalog)
	require.NoError(t, err)

	counting := &countingStore{Store: store}
	engine, err := assoc.Open(registry, catalog, counting, assoc.WithLogger(logger.Discard))
	require.NoError(t, err)
	return engine, counting
}

func seed(t *testing.T, store assoc.Storage, entityType string, rows ...map[string]interface{}) {
	t.Helper()
	for _, values := range rows {
		require.NoError(t, store.Persist(context.Background(), assoc.NewRecord(entityType, values)))
	}
}

// attach loads the record of entityType with primary key id into g
func attach(t *testing.T, engine *assoc.Engine, g *assoc.Graph, entityType, column string, id interface{}) *assoc.Record {
	t.Helper()

	records, err := engine.Storage.Fetch(context.Background(), predicateOn(entityType, column, id))
	require.NoError(t, err)
	require.Len(t, records, 1)

	record, err := engine.Attach(context.Background(), g, records[0])
	require.NoError(t, err)
	return record
}

var compareColumn = func(records []*assoc.Record, column string, contents ...string) bool {
	values := tests.Column(records, column)
	sort.Strings(values)
	sort.Strings(contents)
	if len(values) == 0 && len(contents) == 0 {
		return true
	}
	return reflect.DeepEqual(values, contents)
}

func predicateOn(entityType, column string, value interface{}) assoc.Predicate {
	return assoc.Predicate{
		Table:      entityType,
		Expression: clause.Eq{Column: clause.Column{Table: entityType, Name: column}, Value: value},
	}
}

func resolve(t *testing.T, engine *assoc.Engine, entityType, name string) *schema.Descriptor {
	t.Helper()
	desc, err := engine.Resolve(context.Background(), entityType, name)
	require.NoError(t, err)
	return desc
}
