package assoc_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/assoc"
	"gorm.io/assoc/logger"
	"gorm.io/assoc/schema"
	"gorm.io/assoc/utils/tests"
)

func newResolver(t *testing.T, definitions ...schema.Definition) *assoc.Resolver {
	t.Helper()
	registry, err := assoc.NewRegistry(definitions...)
	require.NoError(t, err)
	return assoc.NewResolver(registry, tests.Catalog(), nil, logger.Discard)
}

func TestResolveConcurrently(t *testing.T) {
	resolver := newResolver(t, tests.Definitions()...)

	var (
		wg          sync.WaitGroup
		descriptors = make([]*schema.Descriptor, 32)
		errs        = make([]error, 32)
	)

	for i := range descriptors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			descriptors[i], errs[i] = resolver.Resolve(context.Background(), "user", "address")
		}(i)
	}
	wg.Wait()

	for i := range descriptors {
		require.NoError(t, errs[i])
		assert.Same(t, descriptors[0], descriptors[i], "every caller should share one descriptor")
	}

	again, err := resolver.Resolve(context.Background(), "user", "address")
	require.NoError(t, err)
	assert.Same(t, descriptors[0], again)
}

func TestResolveUnknown(t *testing.T) {
	resolver := newResolver(t, tests.Definitions()...)

	_, err := resolver.Resolve(context.Background(), "user", "pets")
	assert.ErrorIs(t, err, assoc.ErrNotFound)

	_, err = resolver.Table("ghost")
	assert.ErrorIs(t, err, assoc.ErrNotFound)

	table, err := resolver.Table("entity_address")
	require.NoError(t, err)
	assert.Equal(t, []string{"entity_address_id"}, table.PrimaryKeys)
}

func TestDescriptors(t *testing.T) {
	resolver := newResolver(t, tests.Definitions()...)

	descriptors, err := resolver.Descriptors(context.Background())
	require.NoError(t, err)
	assert.Len(t, descriptors, len(tests.Definitions()))

	var keys []string
	for _, desc := range descriptors[:3] {
		keys = append(keys, desc.Key())
	}
	assert.Equal(t, []string{"employee.manager", "employee.reports", "favorite_properties.user"}, keys)
}
