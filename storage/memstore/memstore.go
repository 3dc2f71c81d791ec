// Package memstore keeps records in a go-memdb database, one table per entity type.
package memstore

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"

	"gorm.io/assoc"
	"gorm.io/assoc/schema"
)

const indexID = "id"

type row struct {
	Key    string
	Values map[string]interface{}
}

type entityTypeLister interface {
	EntityTypes() []string
}

// Store implements assoc.Storage in memory
type Store struct {
	db     *memdb.MemDB
	tables map[string]*schema.Table
}

// New creates a store for entityTypes, every type of the catalog when none is given
func New(catalog schema.Catalog, entityTypes ...string) (*Store, error) {
	if len(entityTypes) == 0 {
		lister, ok := catalog.(entityTypeLister)
		if !ok {
			return nil, fmt.Errorf("%w: catalog can't list its entity types", assoc.ErrConfiguration)
		}
		entityTypes = lister.EntityTypes()
	}

	var (
		tables   = make(map[string]*schema.Table, len(entityTypes))
		dbSchema = &memdb.DBSchema{Tables: make(map[string]*memdb.TableSchema, len(entityTypes))}
	)

	for _, entityType := range entityTypes {
		table, err := schema.Parse(entityType, catalog, nil)
		if err != nil {
			return nil, err
		}
		if len(table.PrimaryKeys) == 0 {
			return nil, fmt.Errorf("%w: %v", assoc.ErrPrimaryKeyRequired, entityType)
		}

		tables[entityType] = table
		dbSchema.Tables[entityType] = &memdb.TableSchema{
			Name: entityType,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Key"},
				},
			},
		}
	}

	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, fmt.Errorf("unable to instantiate memdb: %w", err)
	}

	return &Store{db: db, tables: tables}, nil
}

func (s *Store) key(record *assoc.Record) (string, error) {
	table, ok := s.tables[record.Type]
	if !ok {
		return "", fmt.Errorf("%w: entity type %v is not stored", assoc.ErrNotFound, record.Type)
	}

	key, ok := record.Key(table)
	if !ok {
		return "", fmt.Errorf("%w: %v", assoc.ErrPrimaryKeyRequired, record)
	}
	return key.ID, nil
}

// Fetch returns copies of the rows matching predicate
func (s *Store) Fetch(ctx context.Context, predicate assoc.Predicate) ([]*assoc.Record, error) {
	if _, ok := s.tables[predicate.Table]; !ok {
		return nil, fmt.Errorf("%w: entity type %v is not stored", assoc.ErrNotFound, predicate.Table)
	}

	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(predicate.Table, indexID)
	if err != nil {
		return nil, err
	}

	var results []*assoc.Record
	for obj := it.Next(); obj != nil; obj = it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record := assoc.NewRecord(predicate.Table, obj.(*row).Values)
		matched, err := predicate.Match(record)
		if err != nil {
			return nil, err
		}
		if matched {
			results = append(results, record)
		}
	}
	return results, nil
}

// Persist inserts or replaces record
func (s *Store) Persist(ctx context.Context, record *assoc.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := s.key(record)
	if err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(record.Type, &row{Key: key, Values: record.Clone().Values}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Delete removes record, deleting a missing row is a no-op
func (s *Store) Delete(ctx context.Context, record *assoc.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := s.key(record)
	if err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(record.Type, indexID, key)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	if err := txn.Delete(record.Type, existing); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Len number of rows stored for entityType
func (s *Store) Len(entityType string) int {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(entityType, indexID)
	if err != nil {
		return 0
	}

	var count int
	for obj := it.Next(); obj != nil; obj = it.Next() {
		count++
	}
	return count
}

var _ assoc.Storage = (*Store)(nil)
