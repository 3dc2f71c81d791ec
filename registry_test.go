package assoc_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/assoc"
	"gorm.io/assoc/clause"
	"gorm.io/assoc/logger"
	"gorm.io/assoc/schema"
	"gorm.io/assoc/storage/memstore"
	"gorm.io/assoc/utils/tests"
)

func TestNewRegistry(t *testing.T) {
	registry, err := assoc.NewRegistry(tests.Definitions()...)
	require.NoError(t, err)

	def, err := registry.Lookup("user", "emergency_addresses")
	require.NoError(t, err)
	assert.Equal(t, "address", def.ParamKey())

	_, err = registry.Lookup("user", "pets")
	assert.ErrorIs(t, err, assoc.ErrNotFound)

	assert.Equal(t, []string{"employee", "favorite_properties", "past_rental_history", "role", "user"}, registry.EntityTypes())

	var names []string
	for _, def := range registry.DefinitionsFor("user") {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"address", "emergency_addresses", "favorites", "roles", "companies", "rental_history"}, names)

	_, err = assoc.NewRegistry(append(tests.Definitions(), schema.Definition{Owner: "user", Name: "roles", Target: "role"})...)
	assert.ErrorIs(t, err, assoc.ErrConfiguration)

	_, err = assoc.NewRegistry(schema.Definition{Name: "orphan", Target: "user"})
	assert.ErrorIs(t, err, assoc.ErrConfiguration)
}

func TestLoadRegistry(t *testing.T) {
	registry, err := assoc.LoadRegistryFile("testdata/registry.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"favorite_properties", "role", "user"}, registry.EntityTypes())

	def, err := registry.Lookup("user", "address")
	require.NoError(t, err)

	expect := schema.Definition{
		Owner:            "user",
		Name:             "address",
		Target:           "address",
		AssociationClass: "entity_address",
		EntityParamsAttr: map[string]string{"user_id": "entity_id"},
		ItemParamsAttr:   map[string]string{"emergency_address": "emergency", "city": "city"},
		SecondaryFilter:  map[string]interface{}{"emergency_address": false},
		Cascade:          schema.CascadeAll,
		ViewOnly:         true,
		Loading:          schema.Eager,
	}
	if diff := cmp.Diff(expect, *def); diff != "" {
		t.Errorf("user.address mismatch (-want +got):\n%s", diff)
	}

	def, err = registry.Lookup("role", "address")
	require.NoError(t, err)
	assert.Equal(t, schema.CascadeMerge|schema.CascadeSaveUpdate, def.Cascade)

	def, err = registry.Lookup("favorite_properties", "user")
	require.NoError(t, err)
	assert.Equal(t, schema.One, def.Cardinality)
	assert.Equal(t, "user", def.Target)

	var names []string
	for _, def := range registry.DefinitionsFor("user") {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"address", "emergency_addresses", "favorites", "roles"}, names, "declaration order is kept")
}

func TestLoadRegistryErrors(t *testing.T) {
	cases := map[string]string{
		"not a mapping":    "- user",
		"no target":        "user:\n  address:\n    viewonly: true\n",
		"unknown cascade":  "user:\n  address:\n    target: address\n    cascade: explode\n",
		"unknown loading":  "user:\n  address:\n    target: address\n    lazy: sometimes\n",
		"duplicated entry": "user:\n  address:\n    target: address\nUser:\n  address:\n    target: address\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := assoc.LoadRegistry(strings.NewReader(content))
			assert.ErrorIs(t, err, assoc.ErrConfiguration)
		})
	}

	registry, err := assoc.LoadRegistry(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, registry.EntityTypes())
}

func TestOpenFromFiles(t *testing.T) {
	f, err := os.Open("testdata/catalog.yaml")
	require.NoError(t, err)
	defer f.Close()

	catalog, err := schema.LoadCatalog(f)
	require.NoError(t, err)

	registry, err := assoc.LoadRegistryFile("testdata/registry.yaml")
	require.NoError(t, err)

	store, err := memstore.New(catalog)
	require.NoError(t, err)

	engine, err := assoc.Open(registry, catalog, store, assoc.WithLogger(logger.Discard))
	require.NoError(t, err)

	seed(t, store, "user", map[string]interface{}{"user_id": "u1", "name": "alice"})
	seed(t, store, "favorite_properties",
		map[string]interface{}{"favorite_property_id": "f1", "user_id": "u1", "property_id": "p1"},
		map[string]interface{}{"favorite_property_id": "f2", "user_id": "u1", "property_id": "p2"},
	)

	g := assoc.NewGraph()
	user := attach(t, engine, g, "user", "user_id", "u1")
	result, err := engine.Association(context.Background(), g, user, "favorites").Load()
	require.NoError(t, err)
	tests.AssertColumn(t, result.Records(), "property_id", "p2", "p1")
}

func TestLoadRegistryDump(t *testing.T) {
	// entries as the registry generator writes them, association column => owner attribute
	dump := `
user:
  address:
    target: Address
    association_class: EntityAddress
    entity_param_key: address
    entity_params_attr: {entity_id: user_id, entity_type: user}
    item_params_attr: {entity_address_id: entity_address_id, entity_type: entity_type, address_id: address_id, emergency_address: emergency_address}
    secondary_filter: {emergency_address: false}
  favorites:
    target: FavoriteProperties
    association_class: FavoriteProperties
    entity_param_key: favorites
    entity_params_attr: {user_id: user_id}
    item_params_attr: {favorite_property_id: favorite_property_id, property_id: property_id, created_at: created_at}
`
	registry, err := assoc.LoadRegistry(strings.NewReader(dump))
	require.NoError(t, err)

	favorites, err := registry.Lookup("user", "favorites")
	require.NoError(t, err)
	assert.Empty(t, favorites.AssociationClass)

	var definitions []schema.Definition
	for _, def := range registry.DefinitionsFor("user") {
		definitions = append(definitions, *def)
	}

	engine, store := newEngine(t, definitions...)
	seedRental(t, store)

	desc := resolve(t, engine, "user", "address")
	assert.Equal(t, "(user.user_id = entity_address.entity_id AND entity_address.entity_type = 'user' AND entity_address.address_id = address.address_id AND entity_address.emergency_address = false)", clause.Explain(desc.Join()))

	var (
		ctx = context.Background()
		g   = assoc.NewGraph()
		u1  = attach(t, engine, g, "user", "user_id", "u1")
	)

	addresses, err := engine.Association(ctx, g, u1, "address").Load()
	require.NoError(t, err)
	assert.True(t, compareColumn(addresses.Records(), "address_id", "a1", "a2"))

	result, err := engine.Association(ctx, g, u1, "favorites").Load()
	require.NoError(t, err)
	assert.True(t, compareColumn(result.Records(), "favorite_property_id", "f1", "f2"))

	// a dump pinning the discriminator to another owner type fails startup
	registry, err = assoc.LoadRegistry(strings.NewReader(strings.Replace(dump, "entity_type: user}", "entity_type: role}", 1)))
	require.NoError(t, err)
	_, err = assoc.Open(registry, tests.Catalog(), nil, assoc.WithLogger(logger.Discard))
	assert.ErrorIs(t, err, assoc.ErrConfiguration)
}
