package assoc

import (
	"fmt"

	"gorm.io/assoc/clause"
	"gorm.io/assoc/schema"
	"gorm.io/assoc/utils"
)

// Record dynamic entity instance, Values are keyed by column name
type Record struct {
	Type   string
	Values map[string]interface{}
}

// NewRecord creates a record of entityType, values are copied
func NewRecord(entityType string, values map[string]interface{}) *Record {
	record := &Record{Type: entityType, Values: make(map[string]interface{}, len(values))}
	for k, v := range values {
		record.Values[k] = v
	}
	return record
}

// Get returns the value of column name, nil when unset
func (record *Record) Get(name string) interface{} {
	if record == nil || record.Values == nil {
		return nil
	}
	return record.Values[name]
}

// Set sets the value of column name
func (record *Record) Set(name string, value interface{}) {
	if record.Values == nil {
		record.Values = map[string]interface{}{}
	}
	record.Values[name] = value
}

// Clone returns a copy that shares no map with record
func (record *Record) Clone() *Record {
	return NewRecord(record.Type, record.Values)
}

// Value implements clause.Row, unset columns of the record's own table are NULL
func (record *Record) Value(column clause.Column) (interface{}, bool) {
	if column.Table != "" && column.Table != record.Type {
		return nil, false
	}
	return record.Values[column.Name], true
}

func (record *Record) String() string {
	return fmt.Sprintf("%v%v", record.Type, record.Values)
}

// Key identity of a record, (type name, primary key values)
type Key struct {
	Type string
	ID   string
}

func (key Key) String() string {
	return key.Type + "#" + key.ID
}

// Key returns the identity of record, ok is false while a primary key value is missing
func (record *Record) Key(table *schema.Table) (key Key, ok bool) {
	values := make([]interface{}, 0, len(table.PrimaryKeys))
	for _, name := range table.PrimaryKeys {
		value := record.Get(name)
		if value == nil {
			return Key{Type: record.Type}, false
		}
		values = append(values, value)
	}

	if len(values) == 0 {
		return Key{Type: record.Type}, false
	}

	return Key{Type: record.Type, ID: utils.ToStringKey(values...)}, true
}

// OwnerRef tagged reference to a polymorphic owner, Type is the variant registered in the
// discriminator enum and ID the owner's primary key value
type OwnerRef struct {
	Type string
	ID   interface{}
}

func (ref OwnerRef) String() string {
	return fmt.Sprintf("%v(%v)", ref.Type, ref.ID)
}

// PolymorphicRef returns the reference an association row of desc stores for owner, ok is
// false when the association table has no discriminator
func PolymorphicRef(desc *schema.Descriptor, owner *Record) (ref OwnerRef, ok bool) {
	if desc.Discriminator == nil || desc.AssociationTable == nil {
		return ref, false
	}

	ref.Type = desc.Discriminator.Value
	if polymorphic := desc.AssociationTable.PolymorphicID(); polymorphic != nil {
		for _, pair := range desc.Pairs {
			if pair.Remote.Name == polymorphic.Name {
				ref.ID = owner.Get(pair.Local.Name)
			}
		}
	}

	if ref.ID == nil {
		ref.ID = owner.Get(desc.OwnerTable.PrioritizedPrimaryKey())
	}
	return ref, true
}

// Project exposes the item params of a related record, association columns are read from
// link and target columns from target
func Project(desc *schema.Descriptor, link, target *Record) map[string]interface{} {
	results := make(map[string]interface{}, len(desc.ItemParamsAttr))
	for _, name := range utils.SortedKeys(desc.ItemParamsAttr) {
		exposed := desc.ItemParamsAttr[name]
		if link != nil && desc.AssociationTable != nil && desc.AssociationTable.LookUpColumn(name) != nil {
			results[exposed] = link.Get(name)
		} else {
			results[exposed] = target.Get(name)
		}
	}
	return results
}
