package schema

import (
	"fmt"
	"strings"
	"sync"

	"gorm.io/assoc/clause"
	"gorm.io/assoc/utils"
)

// DefinitionLookup finds the definition registered for (entityType, name)
type DefinitionLookup func(entityType, name string) (*Definition, bool)

// Resolver turns definitions into descriptors against a catalog
type Resolver struct {
	Catalog    Catalog
	Namer      Namer
	CacheStore *sync.Map
	// Lookup is used to validate back references, back references are skipped when nil
	Lookup DefinitionLookup
}

// Resolve builds the descriptor of def with a fresh table cache
func Resolve(def *Definition, catalog Catalog, namer Namer, lookup DefinitionLookup) (*Descriptor, error) {
	return Resolver{Catalog: catalog, Namer: namer, Lookup: lookup}.Resolve(def)
}

// Resolve builds the descriptor of def, it is pure and never resolves other definitions
func (r Resolver) Resolve(def *Definition) (*Descriptor, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil relationship definition", ErrNotFound)
	}

	if def.Name == "" || def.Target == "" {
		return nil, fmt.Errorf("%w: %v requires a name and a target entity type", ErrConfiguration, def)
	}

	if r.Namer == nil {
		r.Namer = NamingStrategy{}
	}

	if r.CacheStore == nil {
		r.CacheStore = &sync.Map{}
	}

	var (
		err  error
		desc = &Descriptor{Definition: def, SelfReferential: def.Owner == def.Target}
	)

	if desc.OwnerTable, err = Parse(def.Owner, r.Catalog, r.CacheStore); err != nil {
		return nil, fmt.Errorf("owner of %v: %w", def, err)
	}

	if desc.TargetTable, err = Parse(def.Target, r.Catalog, r.CacheStore); err != nil {
		return nil, fmt.Errorf("target of %v: %w", def, err)
	}

	if def.AssociationClass != "" {
		if desc.AssociationTable, err = Parse(def.AssociationClass, r.Catalog, r.CacheStore); err != nil {
			return nil, fmt.Errorf("association class of %v: %w", def, err)
		}
		err = r.buildAssociationRelation(desc)
	} else {
		err = r.buildDirectRelation(desc)
	}

	if err != nil {
		return nil, err
	}

	for _, build := range []func(*Descriptor) error{
		r.resolveCardinality,
		r.checkProjection,
		r.checkOrderBy,
		r.checkBackReference,
	} {
		if err := build(desc); err != nil {
			return nil, err
		}
	}

	return desc, nil
}

// A user has many favorites through favorite_properties.user_id, a favorite belongs to a user:
//
//	user.favorites        -> favorite_properties  one_to_many, user.user_id = favorite_properties.user_id
//	favorite_properties.user -> user              many_to_one, favorite_properties.user_id = user.user_id
func (r Resolver) buildDirectRelation(desc *Descriptor) error {
	owner, target := desc.OwnerTable, desc.TargetTable

	if len(desc.EntityParamsAttr) > 0 {
		pairs, _, err := paramPairs(desc, target, nil)
		if err != nil {
			return err
		}

		for _, pair := range pairs {
			local, remote := pair[0], pair[1]
			desc.Pairs = append(desc.Pairs, ColumnPair{
				Local:  clause.Column{Table: owner.Name, Name: local},
				Remote: clause.Column{Table: target.Name, Name: remote},
			})
		}

		direction, err := r.pairsDirection(desc)
		if err != nil {
			return err
		}
		desc.Direction = direction
	} else if len(desc.ForeignKeys) > 0 {
		for _, foreignKey := range desc.ForeignKeys {
			inTarget, inOwner := target.LookUpColumn(foreignKey), owner.LookUpColumn(foreignKey)
			if desc.SelfReferential && inTarget != nil {
				// the same column is on both sides, the declared cardinality picks the side
				if desc.Definition.Cardinality == One {
					inTarget = nil
				} else {
					inOwner = nil
				}
			}

			switch {
			case inTarget != nil && (inTarget.ForeignKeyOf == "" || inTarget.ForeignKeyOf == owner.Name):
				if err := r.addHasPair(desc, inTarget); err != nil {
					return err
				}
			case inOwner != nil && (inOwner.ForeignKeyOf == "" || inOwner.ForeignKeyOf == target.Name):
				if err := r.addBelongsToPair(desc, inOwner); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%w: %v foreign key %v references neither %v nor %v", ErrConfiguration, desc.Key(), foreignKey, owner, target)
			}
		}
	} else {
		has, belongsTo := target.ForeignKeysTo(owner.Name), owner.ForeignKeysTo(target.Name)
		if desc.SelfReferential {
			if desc.Definition.Cardinality == One {
				has = nil
			} else {
				belongsTo = nil
			}
		}

		switch candidates := len(has) + len(belongsTo); {
		case candidates > 1:
			return fmt.Errorf("%w: %v could join on %v, set foreign_keys to pick one", ErrAmbiguousJoin, desc.Key(), candidateNames(owner, target, has, belongsTo))
		case len(has) == 1:
			if err := r.addHasPair(desc, has[0]); err != nil {
				return err
			}
		case len(belongsTo) == 1:
			if err := r.addBelongsToPair(desc, belongsTo[0]); err != nil {
				return err
			}
		default:
			// guess has one/many first, then belongs to
			if column := target.LookUpColumn(r.Namer.ForeignKeyName(owner.Name, owner.PrioritizedPrimaryKey())); column != nil && !(desc.SelfReferential && desc.Definition.Cardinality == One) {
				if err := r.addHasPair(desc, column); err != nil {
					return err
				}
			} else if column := owner.LookUpColumn(r.Namer.ForeignKeyName(target.Name, target.PrioritizedPrimaryKey())); column != nil {
				if err := r.addBelongsToPair(desc, column); err != nil {
					return err
				}
			} else {
				return fmt.Errorf("%w: failed to guess %v's foreign key between %v and %v", ErrConfiguration, desc.Key(), owner, target)
			}
		}
	}

	desc.PrimaryJoin = pairConditions(desc.Pairs)
	filters, err := r.filterConditions(desc, desc.SecondaryFilter, target)
	if err != nil {
		return err
	}
	desc.PrimaryJoin = append(desc.PrimaryJoin, filters...)

	return nil
}

func (r Resolver) addHasPair(desc *Descriptor, foreignKey *ColumnSpec) error {
	primaryKey := desc.OwnerTable.PrioritizedPrimaryKey()
	if primaryKey == "" {
		return fmt.Errorf("%w: %v requires a primary key on %v", ErrConfiguration, desc.Key(), desc.OwnerTable)
	}

	desc.Direction = OneToMany
	desc.Pairs = append(desc.Pairs, ColumnPair{
		Local:  clause.Column{Table: desc.OwnerTable.Name, Name: primaryKey},
		Remote: clause.Column{Table: desc.TargetTable.Name, Name: foreignKey.Name},
	})
	return nil
}

func (r Resolver) addBelongsToPair(desc *Descriptor, foreignKey *ColumnSpec) error {
	primaryKey := desc.TargetTable.PrioritizedPrimaryKey()
	if primaryKey == "" {
		return fmt.Errorf("%w: %v requires a primary key on %v", ErrConfiguration, desc.Key(), desc.TargetTable)
	}

	desc.Direction = ManyToOne
	desc.Pairs = append(desc.Pairs, ColumnPair{
		Local:  clause.Column{Table: desc.OwnerTable.Name, Name: foreignKey.Name},
		Remote: clause.Column{Table: desc.TargetTable.Name, Name: primaryKey},
	})
	return nil
}

// pairsDirection infers the direction of explicitly mapped pairs from which side holds the key
func (r Resolver) pairsDirection(desc *Descriptor) (Direction, error) {
	owner, target := desc.OwnerTable, desc.TargetTable

	var localKeys, remoteKeys, localForeign, remoteForeign bool
	for _, pair := range desc.Pairs {
		local, remote := owner.LookUpColumn(pair.Local.Name), target.LookUpColumn(pair.Remote.Name)
		localKeys = localKeys || local.PrimaryKey
		remoteKeys = remoteKeys || remote.PrimaryKey
		localForeign = localForeign || local.ForeignKeyOf == target.Name
		remoteForeign = remoteForeign || remote.ForeignKeyOf == owner.Name
	}

	switch {
	case localKeys && !remoteKeys:
		return OneToMany, nil
	case remoteKeys && !localKeys:
		return ManyToOne, nil
	case remoteForeign && !localForeign:
		return OneToMany, nil
	case localForeign && !remoteForeign:
		return ManyToOne, nil
	}
	return "", fmt.Errorf("%w: can't tell which side of %v holds the foreign key", ErrConfiguration, desc.Key())
}

// A user has many addresses through entity_address, shared with every other owner type and
// told apart by entity_type:
//
//	primary:   user.user_id = entity_address.entity_id AND entity_address.entity_type = 'user'
//	secondary: entity_address.address_id = address.address_id AND entity_address.emergency_address = false
func (r Resolver) buildAssociationRelation(desc *Descriptor) error {
	owner, association, target := desc.OwnerTable, desc.AssociationTable, desc.TargetTable
	discriminator := association.Discriminator()

	pins := map[string]interface{}{}
	if len(desc.EntityParamsAttr) > 0 {
		pairs, pinned, err := paramPairs(desc, association, discriminator)
		if err != nil {
			return err
		}
		pins = pinned

		for _, pair := range pairs {
			local, remote := pair[0], pair[1]
			if discriminator != nil && remote == discriminator.Name {
				return fmt.Errorf("%w: %v maps owner attribute %v onto discriminator %v", ErrConfiguration, desc.Key(), local, remote)
			}
			desc.Pairs = append(desc.Pairs, ColumnPair{
				Local:  clause.Column{Table: owner.Name, Name: local},
				Remote: clause.Column{Table: association.Name, Name: remote},
			})
		}
	} else {
		primaryKey := owner.PrioritizedPrimaryKey()
		if primaryKey == "" {
			return fmt.Errorf("%w: %v requires a primary key on %v", ErrConfiguration, desc.Key(), owner)
		}

		candidates := association.ForeignKeysTo(owner.Name)
		if polymorphic := association.PolymorphicID(); polymorphic != nil && discriminator != nil {
			candidates = append(candidates, polymorphic)
		}

		switch len(candidates) {
		case 0:
			column := association.LookUpColumn(r.Namer.ForeignKeyName(owner.Name, primaryKey))
			if column == nil {
				return fmt.Errorf("%w: failed to guess how %v joins %v", ErrConfiguration, association, owner)
			}
			candidates = append(candidates, column)
		case 1:
		default:
			return fmt.Errorf("%w: %v could join %v on %v, set entity_params_attr to pick one", ErrAmbiguousJoin, desc.Key(), owner, columnNames(association, candidates))
		}

		desc.Pairs = append(desc.Pairs, ColumnPair{
			Local:  clause.Column{Table: owner.Name, Name: primaryKey},
			Remote: clause.Column{Table: association.Name, Name: candidates[0].Name},
		})
	}

	desc.PrimaryJoin = pairConditions(desc.Pairs)

	if discriminator != nil {
		if !discriminator.IsEnumMember(owner.Name) {
			return fmt.Errorf("%w: %v is not a member of %v.%v %v", ErrConfiguration, owner, association, discriminator.Name, discriminator.EnumValues)
		}

		for _, filter := range []map[string]interface{}{desc.PrimaryFilter, pins} {
			if v, ok := filter[discriminator.Name]; ok && v != owner.Name {
				return fmt.Errorf("%w: %v pins %v.%v to %v, expects %q", ErrConfiguration, desc.Key(), association, discriminator.Name, v, owner.Name)
			}
		}

		desc.Discriminator = &Discriminator{
			Column: clause.Column{Table: association.Name, Name: discriminator.Name},
			Value:  owner.Name,
		}
		desc.PrimaryJoin = append(desc.PrimaryJoin, clause.Eq{Column: desc.Discriminator.Column, Value: desc.Discriminator.Value})
	}

	primaryFilter := make(map[string]interface{}, len(desc.PrimaryFilter))
	for column, value := range desc.PrimaryFilter {
		if discriminator == nil || column != discriminator.Name {
			primaryFilter[column] = value
		}
	}

	filters, err := r.filterConditions(desc, primaryFilter, association)
	if err != nil {
		return err
	}
	desc.PrimaryJoin = append(desc.PrimaryJoin, filters...)

	if err := r.buildSecondaryPairs(desc); err != nil {
		return err
	}

	desc.SecondaryJoin = pairConditions(desc.SecondaryPairs)
	if filters, err = r.filterConditions(desc, desc.SecondaryFilter, association, target); err != nil {
		return err
	}
	desc.SecondaryJoin = append(desc.SecondaryJoin, filters...)

	// a join row keyed entirely by the owner is owned by it
	desc.Direction = OneToMany
	for _, primaryKey := range association.PrimaryKeys {
		if !pairsReference(desc.Pairs, primaryKey) && (discriminator == nil || primaryKey != discriminator.Name) {
			desc.Direction = ManyToMany
			break
		}
	}

	if len(association.PrimaryKeys) == 0 {
		desc.Direction = ManyToMany
	}

	return nil
}

func (r Resolver) buildSecondaryPairs(desc *Descriptor) error {
	association, target := desc.AssociationTable, desc.TargetTable
	primaryKey := target.PrioritizedPrimaryKey()
	if primaryKey == "" {
		return fmt.Errorf("%w: %v requires a primary key on %v", ErrConfiguration, desc.Key(), target)
	}

	var candidates []*ColumnSpec
	if len(desc.ForeignKeys) > 0 {
		for _, foreignKey := range desc.ForeignKeys {
			column := association.LookUpColumn(foreignKey)
			if column == nil || (column.ForeignKeyOf != "" && column.ForeignKeyOf != target.Name) {
				return fmt.Errorf("%w: %v foreign key %v doesn't reference %v", ErrConfiguration, desc.Key(), foreignKey, target)
			}
			candidates = append(candidates, column)
		}
	} else {
		for _, column := range association.ForeignKeysTo(target.Name) {
			if !pairsReference(desc.Pairs, column.Name) {
				candidates = append(candidates, column)
			}
		}

		switch len(candidates) {
		case 0:
			column := association.LookUpColumn(r.Namer.ForeignKeyName(target.Name, primaryKey))
			if column == nil || pairsReference(desc.Pairs, column.Name) {
				return fmt.Errorf("%w: failed to guess how %v joins %v", ErrConfiguration, association, target)
			}
			candidates = append(candidates, column)
		case 1:
		default:
			return fmt.Errorf("%w: %v could join %v on %v, set foreign_keys to pick one", ErrAmbiguousJoin, desc.Key(), target, columnNames(association, candidates))
		}
	}

	for _, column := range candidates {
		desc.SecondaryPairs = append(desc.SecondaryPairs, ColumnPair{
			Local:  clause.Column{Table: association.Name, Name: column.Name},
			Remote: clause.Column{Table: target.Name, Name: primaryKey},
		})
	}
	return nil
}

// paramPairs orients entity_params_attr as (owner attribute, link column) pairs. Registry dumps
// map link column => owner attribute instead and may pin the discriminator to the owner type,
// entity_type: user; both orientations are accepted and pins are returned apart.
func paramPairs(desc *Descriptor, link *Table, discriminator *ColumnSpec) (pairs [][2]string, pins map[string]interface{}, err error) {
	owner := desc.OwnerTable
	pins = map[string]interface{}{}

	for _, key := range utils.SortedKeys(desc.EntityParamsAttr) {
		value := desc.EntityParamsAttr[key]
		switch {
		case owner.LookUpColumn(key) != nil && link.LookUpColumn(value) != nil:
			pairs = append(pairs, [2]string{key, value})
		case link.LookUpColumn(key) != nil && owner.LookUpColumn(value) != nil:
			pairs = append(pairs, [2]string{value, key})
		case discriminator != nil && key == discriminator.Name:
			pins[key] = value
		case owner.LookUpColumn(key) == nil && link.LookUpColumn(key) == nil:
			return nil, nil, fmt.Errorf("%w: %v maps unknown owner attribute %v", ErrConfiguration, desc.Key(), key)
		default:
			return nil, nil, fmt.Errorf("%w: %v can't map %v to %v between %v and %v", ErrConfiguration, desc.Key(), key, value, owner, link)
		}
	}

	return pairs, pins, nil
}

// filterConditions builds literal conditions, columns may be qualified as table.column and
// otherwise belong to the first table that has them
func (r Resolver) filterConditions(desc *Descriptor, filters map[string]interface{}, tables ...*Table) ([]clause.Expression, error) {
	var exprs []clause.Expression

	for _, name := range utils.SortedKeys(filters) {
		column, found := clause.Column{}, false

		if idx := strings.Index(name, "."); idx > 0 {
			for _, table := range tables {
				if table.Name == name[:idx] && table.LookUpColumn(name[idx+1:]) != nil {
					column, found = clause.Column{Table: table.Name, Name: name[idx+1:]}, true
					break
				}
			}
		} else {
			for _, table := range tables {
				if table.LookUpColumn(name) != nil {
					column, found = clause.Column{Table: table.Name, Name: name}, true
					break
				}
			}
		}

		if !found {
			return nil, fmt.Errorf("%w: %v filters on unknown attribute %v", ErrConfiguration, desc.Key(), name)
		}

		exprs = append(exprs, clause.Eq{Column: column, Value: filters[name]})
	}

	return exprs, nil
}

func (r Resolver) resolveCardinality(desc *Descriptor) error {
	switch desc.Definition.Cardinality {
	case "":
		if desc.Direction == ManyToOne {
			desc.Cardinality = One
		} else {
			desc.Cardinality = Many
		}
	case One:
		desc.Cardinality = One
	case Many:
		if desc.Direction == ManyToOne {
			return fmt.Errorf("%w: %v is many_to_one and can't hold many %v", ErrConfiguration, desc.Key(), desc.Target)
		}
		desc.Cardinality = Many
	default:
		return fmt.Errorf("%w: %v has unknown cardinality %q", ErrConfiguration, desc.Key(), desc.Definition.Cardinality)
	}
	return nil
}

func (r Resolver) checkProjection(desc *Descriptor) error {
	for _, name := range utils.SortedKeys(desc.ItemParamsAttr) {
		if desc.LinkTable().LookUpColumn(name) == nil && desc.TargetTable.LookUpColumn(name) == nil {
			return fmt.Errorf("%w: %v exposes unknown attribute %v", ErrConfiguration, desc.Key(), name)
		}
	}
	return nil
}

func (r Resolver) checkOrderBy(desc *Descriptor) error {
	for _, order := range desc.OrderBy {
		if name, _ := ParseOrder(order); desc.TargetTable.LookUpColumn(name) == nil {
			return fmt.Errorf("%w: %v orders by unknown attribute %v.%v", ErrConfiguration, desc.Key(), desc.TargetTable, name)
		}
	}
	return nil
}

// checkBackReference only inspects the inverse definition, resolving it here could recurse
// through the pair
func (r Resolver) checkBackReference(desc *Descriptor) error {
	if desc.BackReference == "" || r.Lookup == nil {
		return nil
	}

	back, ok := r.Lookup(desc.Target, desc.BackReference)
	if !ok {
		return fmt.Errorf("%w: back reference %v.%v of %v does not exist", ErrConfiguration, desc.Target, desc.BackReference, desc.Key())
	}

	if back.Target != desc.Owner {
		return fmt.Errorf("%w: back reference %v targets %v, expects %v", ErrConfiguration, back, back.Target, desc.Owner)
	}

	if back.BackReference != "" && back.BackReference != desc.Name {
		return fmt.Errorf("%w: back reference %v points to %v.%v instead of %v", ErrConfiguration, back, back.Target, back.BackReference, desc.Key())
	}

	if desc.AssociationClass == "" && back.AssociationClass == "" && desc.Cardinality == Many && back.Cardinality == Many {
		return fmt.Errorf("%w: %v and %v both declare many over the same foreign key", ErrConfiguration, desc.Key(), back)
	}

	return nil
}

// ParseOrder splits "column desc" into column name and direction
func ParseOrder(order string) (name string, desc bool) {
	fields := strings.Fields(order)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], len(fields) > 1 && strings.EqualFold(fields[1], "desc")
}

func pairConditions(pairs []ColumnPair) []clause.Expression {
	exprs := make([]clause.Expression, 0, len(pairs))
	for _, pair := range pairs {
		exprs = append(exprs, clause.Eq{Column: pair.Local, Value: pair.Remote})
	}
	return exprs
}

func pairsReference(pairs []ColumnPair, name string) bool {
	for _, pair := range pairs {
		if pair.Remote.Name == name {
			return true
		}
	}
	return false
}

func columnNames(table *Table, columns []*ColumnSpec) string {
	names := make([]string, len(columns))
	for idx, column := range columns {
		names[idx] = table.Name + "." + column.Name
	}
	return strings.Join(names, ", ")
}

func candidateNames(owner, target *Table, has, belongsTo []*ColumnSpec) string {
	names := make([]string, 0, len(has)+len(belongsTo))
	for _, column := range has {
		names = append(names, target.Name+"."+column.Name)
	}
	for _, column := range belongsTo {
		names = append(names, owner.Name+"."+column.Name)
	}
	return strings.Join(names, ", ")
}
