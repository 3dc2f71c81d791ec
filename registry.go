package assoc

import (
	"fmt"
	"sort"

	"gorm.io/assoc/schema"
)

// Registry relationship definitions keyed by (owner type, attribute name), read-only once built
type Registry struct {
	definitions map[string]*schema.Definition
	byOwner     map[string][]*schema.Definition
}

// NewRegistry builds a registry, definitions are copied and kept in declaration order
func NewRegistry(definitions ...schema.Definition) (*Registry, error) {
	registry := &Registry{
		definitions: make(map[string]*schema.Definition, len(definitions)),
		byOwner:     map[string][]*schema.Definition{},
	}

	for idx := range definitions {
		def := definitions[idx]
		if def.Owner == "" || def.Name == "" {
			return nil, fmt.Errorf("%w: relationship #%d requires an owner type and a name", ErrConfiguration, idx)
		}

		if _, ok := registry.definitions[def.Key()]; ok {
			return nil, fmt.Errorf("%w: relationship %v registered twice", ErrConfiguration, def.Key())
		}

		registry.definitions[def.Key()] = &def
		registry.byOwner[def.Owner] = append(registry.byOwner[def.Owner], &def)
	}

	return registry, nil
}

// Lookup returns the definition of entityType.name
func (registry *Registry) Lookup(entityType, name string) (*schema.Definition, error) {
	if def, ok := registry.definitions[entityType+"."+name]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("%w: relationship %v.%v is not registered", ErrNotFound, entityType, name)
}

// DefinitionsFor returns the definitions owned by entityType in declaration order
func (registry *Registry) DefinitionsFor(entityType string) []*schema.Definition {
	definitions := registry.byOwner[entityType]
	results := make([]*schema.Definition, len(definitions))
	copy(results, definitions)
	return results
}

// EntityTypes returns the owner types with at least one relationship, sorted by name
func (registry *Registry) EntityTypes() []string {
	types := make([]string, 0, len(registry.byOwner))
	for entityType := range registry.byOwner {
		types = append(types, entityType)
	}
	sort.Strings(types)
	return types
}

func (registry *Registry) lookup(entityType, name string) (*schema.Definition, bool) {
	def, ok := registry.definitions[entityType+"."+name]
	return def, ok
}
