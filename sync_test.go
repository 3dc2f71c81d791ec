package assoc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/assoc"
	"gorm.io/assoc/utils/tests"
)

func TestDeleteCascades(t *testing.T) {
	engine, store := newEngine(t)
	seedRental(t, store)

	var (
		ctx  = context.Background()
		g    = assoc.NewGraph()
		user = attach(t, engine, g, "user", "user_id", "u1")
	)

	require.NoError(t, engine.Delete(ctx, g, user))
	assert.False(t, g.Contains(user))

	expects := []struct {
		entityType string
		count      int
		reason     string
	}{
		{"user", 1, "the owner is deleted"},
		{"favorite_properties", 3, "favorites only cascade save-update"},
		{"user_roles", 1, "roles only cascade save-update"},
		{"role", 2, "roles only cascade save-update"},
		{"entity_company", 0, "companies cascade delete to their association rows"},
		{"company", 1, "companies aren't orphan-deleted"},
		{"past_rental_history", 0, "rental history cascades delete-orphan"},
		{"entity_address", 4, "emergency addresses cascade delete, the view-only addresses don't"},
		{"address", 4, "addresses aren't orphan-deleted"},
	}

	for _, tt := range expects {
		if got := store.Len(tt.entityType); got != tt.count {
			t.Errorf("%v should have %d rows (%v), got %d", tt.entityType, tt.count, tt.reason, got)
		}
	}

	rows, err := store.Fetch(ctx, predicateOn("favorite_properties", "user_id", "u1"))
	require.NoError(t, err)
	assert.Len(t, rows, 2, "favorites keep pointing to the deleted user")
}

func TestRemoveOrphan(t *testing.T) {
	engine, store := newEngine(t)
	seedRental(t, store)

	var (
		ctx     = context.Background()
		g       = assoc.NewGraph()
		user    = attach(t, engine, g, "user", "user_id", "u1")
		history = engine.Association(ctx, g, user, "rental_history")
	)

	result, err := history.Load()
	require.NoError(t, err)
	require.Equal(t, 2, result.Len())

	h1, ok := g.Lookup(assoc.Key{Type: "past_rental_history", ID: "h1"})
	require.True(t, ok)
	require.NoError(t, history.Remove(h1))
	assert.Equal(t, 1, store.Len("past_rental_history"))
	assert.False(t, g.Contains(h1))

	result, err = history.Load()
	require.NoError(t, err)
	tests.AssertColumn(t, result.Records(), "past_rental_history_id", "h2")

	// favorites aren't orphan-deleted, their foreign key is cleared
	favorites := engine.Association(ctx, g, user, "favorites")
	result, err = favorites.Load()
	require.NoError(t, err)
	f1, ok := g.Lookup(assoc.Key{Type: "favorite_properties", ID: "f1"})
	require.True(t, ok)
	require.NoError(t, favorites.Remove(f1))

	assert.Equal(t, 3, store.Len("favorite_properties"))
	assert.Nil(t, f1.Get("user_id"))

	count, err := favorites.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	owner, err := engine.Association(ctx, g, f1, "user").Load()
	require.NoError(t, err)
	assert.Equal(t, 0, owner.Len())

	// removing a record that isn't related is a no-op
	f3 := attach(t, engine, g, "favorite_properties", "favorite_property_id", "f3")
	require.NoError(t, favorites.Remove(f3))
	assert.Equal(t, "u2", f3.Get("user_id"))
}

func TestSaveCascade(t *testing.T) {
	engine, store := newEngine(t)

	var (
		ctx = context.Background()
		g   = assoc.NewGraph()
	)

	user, err := engine.New(g, "user", map[string]interface{}{"user_id": "u5", "name": "eve"})
	require.NoError(t, err)

	_, err = engine.New(g, "user", map[string]interface{}{"user_id": "u5"})
	assert.ErrorIs(t, err, assoc.ErrDuplicatedKey)

	_, err = engine.New(g, "user", map[string]interface{}{"name": "anonymous"})
	assert.ErrorIs(t, err, assoc.ErrPrimaryKeyRequired)

	require.NoError(t, engine.Save(ctx, g, user))
	assert.False(t, g.Pending(user))
	assert.Equal(t, 1, store.Len("user"))

	role, err := engine.New(g, "role", map[string]interface{}{"role_id": "r5", "name": "auditor"})
	require.NoError(t, err)
	require.NoError(t, engine.Association(ctx, g, user, "roles").Append(role))

	company := assoc.NewRecord("company", map[string]interface{}{"company_id": "c5", "name": "initech"})
	require.NoError(t, engine.Association(ctx, g, user, "companies").Append(company))

	links, err := store.Fetch(ctx, predicateOn("entity_company", "company_id", "c5"))
	require.NoError(t, err)
	require.Len(t, links, 1)
	tests.AssertValues(t, links[0], map[string]interface{}{"entity_id": "u5", "entity_type": "user"})

	// a second save finds nothing pending
	require.NoError(t, engine.Save(ctx, g, user))
	assert.Equal(t, 1, store.Len("role"))
	assert.Equal(t, 1, store.Len("company"))
	assert.Equal(t, 1, store.Len("user_roles"))
}
