package assoc

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"gorm.io/assoc/logger"
	"gorm.io/assoc/schema"
)

// Resolver resolves registered relationships into descriptors. Descriptors are resolved once
// per (owner type, attribute name) and cached for the resolver's lifetime, concurrent first
// lookups of one key share a single resolution.
type Resolver struct {
	Registry *Registry
	Catalog  schema.Catalog
	Namer    schema.Namer
	Logger   logger.Interface

	tables      sync.Map
	descriptors sync.Map
	group       singleflight.Group
}

// NewResolver creates a resolver with an empty cache
func NewResolver(registry *Registry, catalog schema.Catalog, namer schema.Namer, log logger.Interface) *Resolver {
	if namer == nil {
		namer = schema.NamingStrategy{}
	}

	if log == nil {
		log = logger.Discard
	}

	return &Resolver{Registry: registry, Catalog: catalog, Namer: namer, Logger: log}
}

// Resolve returns the descriptor of entityType.name
func (r *Resolver) Resolve(ctx context.Context, entityType, name string) (*schema.Descriptor, error) {
	key := entityType + "." + name
	if v, ok := r.descriptors.Load(key); ok {
		return v.(*schema.Descriptor), nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		if v, ok := r.descriptors.Load(key); ok {
			return v, nil
		}

		def, err := r.Registry.Lookup(entityType, name)
		if err != nil {
			return nil, err
		}

		desc, err := schema.Resolver{
			Catalog:    r.Catalog,
			Namer:      r.Namer,
			CacheStore: &r.tables,
			Lookup:     r.Registry.lookup,
		}.Resolve(def)
		if err != nil {
			return nil, err
		}

		v, loaded := r.descriptors.LoadOrStore(key, desc)
		if !loaded {
			r.Logger.Info(ctx, "relationship resolved", "relationship", key, "descriptor", desc.String())
		}
		return v, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*schema.Descriptor), nil
}

// Table returns the parsed table of entityType, sharing the resolver's cache
func (r *Resolver) Table(entityType string) (*schema.Table, error) {
	return schema.Parse(entityType, r.Catalog, &r.tables)
}

// Descriptors resolves every registered relationship, stopping at the first error
func (r *Resolver) Descriptors(ctx context.Context) ([]*schema.Descriptor, error) {
	var results []*schema.Descriptor
	for _, entityType := range r.Registry.EntityTypes() {
		for _, def := range r.Registry.DefinitionsFor(entityType) {
			desc, err := r.Resolve(ctx, def.Owner, def.Name)
			if err != nil {
				return nil, err
			}
			results = append(results, desc)
		}
	}
	return results, nil
}
