package schema

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ColumnSpec column definition supplied by the schema catalog
type ColumnSpec struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	PrimaryKey   bool     `yaml:"primary_key"`
	ForeignKeyOf string   `yaml:"foreign_key_of"`
	EnumValues   []string `yaml:"enum_values"`
	// Discriminator marks the polymorphic type column, EnumValues lists the accepted owner types
	Discriminator bool `yaml:"discriminator"`
	// Polymorphic marks the column holding the polymorphic owner's primary key
	Polymorphic bool `yaml:"polymorphic"`
	Nullable    bool `yaml:"nullable"`
}

// IsEnumMember reports whether value is one of the column's enum values, compared exactly
func (column ColumnSpec) IsEnumMember(value string) bool {
	for _, v := range column.EnumValues {
		if v == value {
			return true
		}
	}
	return false
}

// Catalog supplies table definitions, treated as read-only
type Catalog interface {
	Columns(entityType string) ([]ColumnSpec, error)
}

// Table parsed columns of an entity type
type Table struct {
	Name          string
	Columns       []*ColumnSpec
	PrimaryKeys   []string
	ColumnsByName map[string]*ColumnSpec
}

func (table Table) String() string {
	return table.Name
}

// LookUpColumn returns nil when the table has no column with name
func (table Table) LookUpColumn(name string) *ColumnSpec {
	if table.ColumnsByName == nil {
		return nil
	}
	return table.ColumnsByName[name]
}

// PrioritizedPrimaryKey first primary key column
func (table Table) PrioritizedPrimaryKey() string {
	if len(table.PrimaryKeys) == 0 {
		return ""
	}
	return table.PrimaryKeys[0]
}

// IsPrimaryKey whether name is one of the table's primary key columns
func (table Table) IsPrimaryKey(name string) bool {
	column := table.LookUpColumn(name)
	return column != nil && column.PrimaryKey
}

// ForeignKeysTo returns the columns referencing entityType, in declaration order
func (table Table) ForeignKeysTo(entityType string) (columns []*ColumnSpec) {
	for _, column := range table.Columns {
		if column.ForeignKeyOf == entityType {
			columns = append(columns, column)
		}
	}
	return
}

// Discriminator returns the polymorphic type column, or nil
func (table Table) Discriminator() *ColumnSpec {
	for _, column := range table.Columns {
		if column.Discriminator {
			return column
		}
	}
	return nil
}

// PolymorphicID returns the polymorphic owner id column, or nil
func (table Table) PolymorphicID() *ColumnSpec {
	for _, column := range table.Columns {
		if column.Polymorphic {
			return column
		}
	}
	return nil
}

// Parse builds the Table of entityType from catalog, results are cached in cacheStore
func Parse(entityType string, catalog Catalog, cacheStore *sync.Map) (*Table, error) {
	if entityType == "" {
		return nil, fmt.Errorf("%w: empty entity type", ErrNotFound)
	}

	if cacheStore != nil {
		if v, ok := cacheStore.Load(entityType); ok {
			return v.(*Table), nil
		}
	}

	columns, err := catalog.Columns(entityType)
	if err != nil {
		return nil, err
	}

	table := &Table{
		Name:          entityType,
		ColumnsByName: make(map[string]*ColumnSpec, len(columns)),
	}

	for idx := range columns {
		column := columns[idx]
		if column.Name == "" {
			return nil, fmt.Errorf("%w: table %v has a column without name", ErrConfiguration, entityType)
		}
		if _, ok := table.ColumnsByName[column.Name]; ok {
			return nil, fmt.Errorf("%w: table %v declares column %v twice", ErrConfiguration, entityType, column.Name)
		}
		if column.Discriminator && len(column.EnumValues) == 0 {
			return nil, fmt.Errorf("%w: discriminator %v.%v has no enum values", ErrConfiguration, entityType, column.Name)
		}

		table.Columns = append(table.Columns, &column)
		table.ColumnsByName[column.Name] = &column
		if column.PrimaryKey {
			table.PrimaryKeys = append(table.PrimaryKeys, column.Name)
		}
	}

	if cacheStore != nil {
		if v, loaded := cacheStore.LoadOrStore(entityType, table); loaded {
			return v.(*Table), nil
		}
	}

	return table, nil
}

// StaticCatalog in-memory catalog, safe for concurrent reads once built
type StaticCatalog struct {
	tables map[string][]ColumnSpec
}

// NewStaticCatalog creates an empty catalog
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{tables: map[string][]ColumnSpec{}}
}

// Add registers the columns of entityType, replacing previous ones
func (catalog *StaticCatalog) Add(entityType string, columns ...ColumnSpec) *StaticCatalog {
	catalog.tables[entityType] = columns
	return catalog
}

// Columns implements Catalog
func (catalog *StaticCatalog) Columns(entityType string) ([]ColumnSpec, error) {
	columns, ok := catalog.tables[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: entity type %v is not in the schema catalog", ErrNotFound, entityType)
	}
	return columns, nil
}

// EntityTypes returns the registered entity types sorted by name
func (catalog *StaticCatalog) EntityTypes() []string {
	names := make([]string, 0, len(catalog.tables))
	for name := range catalog.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type catalogFile struct {
	Tables map[string][]ColumnSpec `yaml:"tables"`
}

// LoadCatalog reads a catalog from YAML:
//
//	tables:
//	  entity_address:
//	    - {name: entity_address_id, type: uuid, primary_key: true}
//	    - {name: entity_type, type: enum, discriminator: true, enum_values: [user, role]}
func LoadCatalog(r io.Reader) (*StaticCatalog, error) {
	var file catalogFile

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: failed to decode schema catalog: %v", ErrConfiguration, err)
	}

	catalog := NewStaticCatalog()
	for name, columns := range file.Tables {
		for idx := range columns {
			columns[idx].Type = strings.ToLower(columns[idx].Type)
		}
		catalog.Add(name, columns...)
	}
	return catalog, nil
}
