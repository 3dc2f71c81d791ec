package assoc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gorm.io/assoc/clause"
	"gorm.io/assoc/schema"
)

// Engine resolves, materializes and synchronizes the relationships of a registry
type Engine struct {
	*Config
	Registry *Registry
	Resolver *Resolver
	Storage  Storage
}

// Open creates an engine and, unless skipped, validates every registered relationship
func Open(registry *Registry, catalog schema.Catalog, storage Storage, opts ...ConfigOption) (*Engine, error) {
	config := &Config{}
	for _, opt := range opts {
		if opt != nil {
			opt(config)
		}
	}

	if err := config.AfterInitialize(); err != nil {
		return nil, err
	}

	if registry == nil {
		return nil, fmt.Errorf("%w: registry required", ErrConfiguration)
	}

	if catalog == nil {
		return nil, fmt.Errorf("%w: schema catalog required", ErrConfiguration)
	}

	engine := &Engine{
		Config:   config,
		Registry: registry,
		Resolver: NewResolver(registry, catalog, config.NamingStrategy, config.Logger),
		Storage:  storage,
	}

	if !config.SkipValidation {
		if err := engine.Resolver.ValidateAll(context.Background()); err != nil {
			return nil, err
		}
	}

	return engine, nil
}

// Resolve returns the descriptor of entityType.name
func (e *Engine) Resolve(ctx context.Context, entityType, name string) (*schema.Descriptor, error) {
	return e.Resolver.Resolve(ctx, entityType, name)
}

// New adds a new record of entityType to g, missing uuid primary keys are generated.
// The record is pending until saved or linked through a save-update relationship.
func (e *Engine) New(g *Graph, entityType string, values map[string]interface{}) (*Record, error) {
	record := NewRecord(entityType, values)

	key, err := e.ensureKey(record, true)
	if err != nil {
		return nil, err
	}

	if canonical, _ := g.add(record, key, true); canonical != record {
		return nil, fmt.Errorf("%w: %v", ErrDuplicatedKey, key)
	}
	return record, nil
}

// Attach adds a persistent record to g and prefetches its eager relationships. When g already
// holds a record with the same key, that record is returned.
func (e *Engine) Attach(ctx context.Context, g *Graph, record *Record) (*Record, error) {
	key, err := e.ensureKey(record, false)
	if err != nil {
		return nil, err
	}

	record, _ = g.add(record, key, false)

	for _, def := range e.Registry.DefinitionsFor(record.Type) {
		loading := def.Loading
		if loading == "" {
			loading = e.DefaultLoading
		}

		if loading != schema.Eager {
			continue
		}

		desc, err := e.Resolve(ctx, def.Owner, def.Name)
		if err != nil {
			return nil, err
		}

		if _, _, err := e.load(ctx, g, desc, record, false); err != nil {
			return nil, err
		}
	}

	return record, nil
}

// Find fetches the records matching predicate into g
func (e *Engine) Find(ctx context.Context, g *Graph, predicate Predicate) ([]*Record, error) {
	rows, err := e.fetch(ctx, predicate)
	if err != nil {
		return nil, err
	}

	results := make([]*Record, 0, len(rows))
	for _, row := range rows {
		record, err := e.adopt(g, row)
		if err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	return results, nil
}

// Association returns the handle of owner's relationship name
func (e *Engine) Association(ctx context.Context, g *Graph, owner *Record, name string) *Association {
	association := &Association{Engine: e, Graph: g, Context: ctx, Owner: owner}
	if owner == nil {
		association.Error = fmt.Errorf("%w: owner required for relationship %v", ErrNotFound, name)
		return association
	}

	association.Relationship, association.Error = e.Resolve(ctx, owner.Type, name)
	return association
}

func (e *Engine) fetch(ctx context.Context, predicate Predicate) (rows []*Record, err error) {
	if truth, ok := predicate.Expression.(clause.Truth); ok && !bool(truth) {
		return nil, nil
	}

	if e.Storage == nil {
		return nil, fmt.Errorf("%w: no storage configured", ErrConfiguration)
	}

	if tracer, ok := e.Storage.(SelfTracer); ok && tracer.TracesRoundTrips() {
		return e.Storage.Fetch(ctx, predicate)
	}

	begin := time.Now()
	rows, err = e.Storage.Fetch(ctx, predicate)
	e.Logger.Trace(ctx, begin, func() (string, int64) {
		return predicate.String(), int64(len(rows))
	}, err)
	return rows, err
}

func (e *Engine) persist(ctx context.Context, g *Graph, record *Record) error {
	if e.Storage == nil {
		return fmt.Errorf("%w: no storage configured", ErrConfiguration)
	}

	if err := e.Storage.Persist(ctx, record); err != nil {
		return fmt.Errorf("failed to persist %v: %w", record, err)
	}

	g.markPersisted(record)
	return nil
}

// adopt puts a fetched row into g, returning the graph's record for its key
func (e *Engine) adopt(g *Graph, row *Record) (*Record, error) {
	key, err := e.ensureKey(row, false)
	if err != nil {
		return nil, err
	}

	record, _ := g.add(row, key, false)
	return record, nil
}

// canonical returns the graph's record with the key of record, or record itself
func (e *Engine) canonical(g *Graph, record *Record) *Record {
	if g.Contains(record) {
		return record
	}

	table, err := e.Resolver.Table(record.Type)
	if err != nil {
		return record
	}

	if key, ok := record.Key(table); ok {
		if existing, found := g.Lookup(key); found {
			return existing
		}
	}
	return record
}

func (e *Engine) ensureKey(record *Record, generate bool) (Key, error) {
	table, err := e.Resolver.Table(record.Type)
	if err != nil {
		return Key{}, err
	}

	if generate {
		for _, name := range table.PrimaryKeys {
			if record.Get(name) == nil && table.LookUpColumn(name).Type == schema.UUID {
				record.Set(name, uuid.New())
			}
		}
	}

	key, ok := record.Key(table)
	if !ok {
		return key, fmt.Errorf("%w: %v %v", ErrPrimaryKeyRequired, record.Type, table.PrimaryKeys)
	}
	return key, nil
}
