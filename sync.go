package assoc

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"gorm.io/assoc/clause"
	"gorm.io/assoc/schema"
	"gorm.io/assoc/utils"
)

// OnAssign links value to owner through desc, writing the foreign key or association row
// through to storage and updating the loaded back reference in g
func (e *Engine) OnAssign(ctx context.Context, g *Graph, desc *schema.Descriptor, owner, value *Record, linkValues map[string]interface{}) error {
	if err := e.checkMutation(g, desc, owner); err != nil {
		return err
	}

	value, err := e.prepare(g, desc, value)
	if err != nil {
		return err
	}

	unlock := g.lock(owner)
	defer unlock()

	if err := e.flush(ctx, g, owner, value); err != nil {
		return err
	}

	back, err := e.backReference(ctx, desc)
	if err != nil {
		return err
	}

	switch desc.Direction {
	case schema.ManyToOne:
		var previous *Record
		if targets, _, ok := g.loaded(owner, desc.Name); ok && len(targets) > 0 {
			previous = targets[0]
		} else if !ok {
			previous = e.referencedTarget(g, desc, owner)
		}

		for _, pair := range desc.Pairs {
			owner.Set(pair.Local.Name, value.Get(pair.Remote.Name))
		}

		if err := e.persist(ctx, g, owner); err != nil {
			return err
		}

		g.setLoaded(owner, desc.Name, []*Record{value}, nil)
		if back != nil {
			if previous != nil && previous != value {
				g.unlink(previous, back.Name, owner)
			}
			g.link(value, back.Name, owner, nil)
		}
	case schema.OneToMany:
		previous := e.referencedOwner(g, desc, value)

		for _, pair := range desc.Pairs {
			value.Set(pair.Remote.Name, owner.Get(pair.Local.Name))
		}

		for column, literal := range literals(desc) {
			if column.Table == desc.TargetTable.Name {
				value.Set(column.Name, literal)
			}
		}

		if err := e.persist(ctx, g, value); err != nil {
			return err
		}

		if previous != nil && previous != owner {
			g.unlink(previous, desc.Name, value)
		}
		g.link(owner, desc.Name, value, nil)

		if back != nil {
			g.setLoaded(value, back.Name, []*Record{owner}, nil)
		}
	case schema.ManyToMany:
		link, err := e.linkRecord(ctx, g, desc, owner, value, linkValues)
		if err != nil {
			return err
		}

		if err := e.persist(ctx, g, link); err != nil {
			return err
		}

		// rows shared with sibling relationships may have moved between them
		for _, def := range e.Registry.DefinitionsFor(owner.Type) {
			if def.Name != desc.Name && def.AssociationClass == desc.AssociationClass {
				g.unload(owner, def.Name)
			}
		}

		g.link(owner, desc.Name, value, link)
		if back != nil {
			g.link(value, back.Name, owner, link)
		}
	}

	return nil
}

// OnRemove unlinks value from owner through desc. Children of a delete-orphan relationship
// are deleted, otherwise their foreign key is cleared.
func (e *Engine) OnRemove(ctx context.Context, g *Graph, desc *schema.Descriptor, owner, value *Record) error {
	if err := e.checkMutation(g, desc, owner); err != nil {
		return err
	}

	value = e.canonical(g, value)

	unlock := g.lock(owner)
	defer unlock()

	back, err := e.backReference(ctx, desc)
	if err != nil {
		return err
	}

	switch desc.Direction {
	case schema.ManyToOne:
		if !joins(desc.Pairs, owner, value) {
			return nil
		}

		for _, pair := range desc.Pairs {
			owner.Set(pair.Local.Name, nil)
		}

		if err := e.persist(ctx, g, owner); err != nil {
			return err
		}

		g.setLoaded(owner, desc.Name, nil, nil)
		if back != nil {
			g.unlink(value, back.Name, owner)
		}
	case schema.OneToMany:
		if !joins(desc.Pairs, owner, value) {
			return nil
		}

		if desc.Cascade.Has(schema.CascadeDeleteOrphan) {
			return e.deleteRecord(ctx, g, value, map[*Record]bool{owner: true})
		}

		for _, pair := range desc.Pairs {
			value.Set(pair.Remote.Name, nil)
		}

		if err := e.persist(ctx, g, value); err != nil {
			return err
		}

		g.unlink(owner, desc.Name, value)
		if back != nil {
			g.setLoaded(value, back.Name, nil, nil)
		}
	case schema.ManyToMany:
		predicate, err := BuildPredicate(desc, owner)
		if err != nil {
			return err
		}

		exprs := []clause.Expression{predicate.Expression}
		for _, pair := range desc.SecondaryPairs {
			exprs = append(exprs, clause.Eq{Column: pair.Local, Value: value.Get(pair.Remote.Name)})
		}
		predicate.Expression = clause.And(exprs...)

		links, err := e.Find(ctx, g, predicate)
		if err != nil {
			return err
		}

		for _, link := range links {
			if err := e.Storage.Delete(ctx, link); err != nil {
				return fmt.Errorf("failed to delete %v: %w", link, err)
			}
			g.remove(link)
		}

		g.unlink(owner, desc.Name, value)
		if back != nil {
			g.unlink(value, back.Name, owner)
		}
	}

	return nil
}

// Save persists record and, through save-update relationships, the pending records linked to it
func (e *Engine) Save(ctx context.Context, g *Graph, record *Record) error {
	if !g.Contains(record) {
		key, err := e.ensureKey(record, true)
		if err != nil {
			return err
		}

		if canonical, _ := g.add(record, key, true); canonical != record {
			return fmt.Errorf("%w: %v", ErrDuplicatedKey, key)
		}
	}

	return e.save(ctx, g, record, map[*Record]bool{})
}

func (e *Engine) save(ctx context.Context, g *Graph, record *Record, visited map[*Record]bool) error {
	if visited[record] {
		return nil
	}
	visited[record] = true

	if err := e.persist(ctx, g, record); err != nil {
		return err
	}

	for _, def := range e.Registry.DefinitionsFor(record.Type) {
		if def.ViewOnly || !def.Cascade.Has(schema.CascadeSaveUpdate) {
			continue
		}

		targets, via, ok := g.loaded(record, def.Name)
		if !ok {
			continue
		}

		for idx, target := range targets {
			if g.Pending(target) {
				if err := e.save(ctx, g, target, visited); err != nil {
					return err
				}
			}

			if link := via[idx]; link != nil && g.Pending(link) {
				if err := e.persist(ctx, g, link); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// Delete deletes record along with the dependents of its delete and delete-orphan
// relationships. View-only relationships never cascade, and related rows of relationships
// without a delete rule are left untouched.
func (e *Engine) Delete(ctx context.Context, g *Graph, record *Record) error {
	return e.deleteRecord(ctx, g, e.canonical(g, record), map[*Record]bool{})
}

func (e *Engine) deleteRecord(ctx context.Context, g *Graph, record *Record, visited map[*Record]bool) error {
	if visited[record] {
		return nil
	}
	visited[record] = true

	unlock := g.lock(record)
	defer unlock()

	for _, def := range e.Registry.DefinitionsFor(record.Type) {
		if def.ViewOnly || !(def.Cascade.Has(schema.CascadeDelete) || def.Cascade.Has(schema.CascadeDeleteOrphan)) {
			continue
		}

		desc, err := e.Resolve(ctx, def.Owner, def.Name)
		if err != nil {
			return err
		}

		if desc.Direction == schema.ManyToOne {
			continue
		}

		targets, via, err := e.load(ctx, g, desc, record, true)
		if err != nil {
			return err
		}

		for idx, target := range targets {
			if link := via[idx]; link != nil {
				if err := e.Storage.Delete(ctx, link); err != nil {
					return fmt.Errorf("failed to delete %v: %w", link, err)
				}
				g.remove(link)

				if !desc.Cascade.Has(schema.CascadeDeleteOrphan) {
					continue
				}
			}

			if err := e.deleteRecord(ctx, g, target, visited); err != nil {
				return err
			}
		}
	}

	if !g.Pending(record) {
		if err := e.Storage.Delete(ctx, record); err != nil {
			return fmt.Errorf("failed to delete %v: %w", record, err)
		}
	}

	g.remove(record)
	return nil
}

func (e *Engine) checkMutation(g *Graph, desc *schema.Descriptor, owner *Record) error {
	if desc.ViewOnly {
		return fmt.Errorf("%w: %v", ErrImmutableRelationship, desc.Key())
	}

	if owner == nil || owner.Type != desc.Owner {
		return fmt.Errorf("%w: %v requires a %v owner", ErrConfiguration, desc.Key(), desc.Owner)
	}

	if !g.Contains(owner) {
		return fmt.Errorf("%w: owner %v of %v is not in the graph", ErrTransientRecord, owner, desc.Key())
	}
	return nil
}

// prepare returns the graph's record for value, transient values join the graph as pending
// records when desc cascades save-update
func (e *Engine) prepare(g *Graph, desc *schema.Descriptor, value *Record) (*Record, error) {
	if value == nil || value.Type != desc.Target {
		return nil, fmt.Errorf("%w: %v links %v records, got %v", ErrConfiguration, desc.Key(), desc.Target, value)
	}

	value = e.canonical(g, value)
	saveUpdate := desc.Cascade.Has(schema.CascadeSaveUpdate)

	if g.Contains(value) {
		if g.Pending(value) && !saveUpdate {
			return nil, fmt.Errorf("%w: %v is pending and %v doesn't cascade save-update", ErrTransientRecord, value, desc.Key())
		}
		return value, nil
	}

	if !saveUpdate {
		return nil, fmt.Errorf("%w: %v is not in the graph and %v doesn't cascade save-update", ErrTransientRecord, value, desc.Key())
	}

	key, err := e.ensureKey(value, true)
	if err != nil {
		return nil, err
	}

	value, _ = g.add(value, key, true)
	return value, nil
}

// flush persists pending records before they are referenced
func (e *Engine) flush(ctx context.Context, g *Graph, records ...*Record) error {
	for _, record := range records {
		if g.Pending(record) {
			if err := e.persist(ctx, g, record); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) backReference(ctx context.Context, desc *schema.Descriptor) (*schema.Descriptor, error) {
	if desc.BackReference == "" {
		return nil, nil
	}
	return e.Resolve(ctx, desc.Target, desc.BackReference)
}

// referencedOwner returns the graph record value's foreign key currently points to
func (e *Engine) referencedOwner(g *Graph, desc *schema.Descriptor, value *Record) *Record {
	return referenced(g, desc.Owner, desc.OwnerTable, desc.Pairs, value, false)
}

// referencedTarget returns the graph record owner's foreign key currently points to
func (e *Engine) referencedTarget(g *Graph, desc *schema.Descriptor, owner *Record) *Record {
	return referenced(g, desc.Target, desc.TargetTable, desc.Pairs, owner, true)
}

// referenced looks up the entityType record whose primary key record's foreign key columns hold.
// The foreign key is the Local side of pairs when localFK is set, the Remote side otherwise.
func referenced(g *Graph, entityType string, table *schema.Table, pairs []schema.ColumnPair, record *Record, localFK bool) *Record {
	values := make([]interface{}, 0, len(pairs))
	for _, name := range table.PrimaryKeys {
		for _, pair := range pairs {
			key, fk := pair.Local, pair.Remote
			if localFK {
				key, fk = pair.Remote, pair.Local
			}

			if key.Name == name {
				v := record.Get(fk.Name)
				if v == nil {
					return nil
				}
				values = append(values, v)
			}
		}
	}

	if len(values) != len(table.PrimaryKeys) {
		return nil
	}

	found, _ := g.Lookup(Key{Type: entityType, ID: utils.ToStringKey(values...)})
	return found
}

// linkRecord builds the association row linking owner and value, an existing row for the
// same pair is updated instead of duplicated
func (e *Engine) linkRecord(ctx context.Context, g *Graph, desc *schema.Descriptor, owner, value *Record, linkValues map[string]interface{}) (*Record, error) {
	table := desc.AssociationTable
	keys := map[string]interface{}{}

	for _, pair := range desc.Pairs {
		keys[pair.Remote.Name] = owner.Get(pair.Local.Name)
	}

	if ref, ok := PolymorphicRef(desc, owner); ok {
		discriminator := table.Discriminator()
		if !discriminator.IsEnumMember(ref.Type) {
			return nil, fmt.Errorf("%w: %v is not a member of %v.%v", ErrConfiguration, ref.Type, table, discriminator.Name)
		}

		keys[discriminator.Name] = ref.Type
		if polymorphic := table.PolymorphicID(); polymorphic != nil {
			keys[polymorphic.Name] = ref.ID
		}
	}

	for _, pair := range desc.SecondaryPairs {
		keys[pair.Local.Name] = value.Get(pair.Remote.Name)
	}

	values := make(map[string]interface{}, len(linkValues))
	for _, name := range utils.SortedKeys(linkValues) {
		column := table.LookUpColumn(name)
		if column == nil {
			return nil, fmt.Errorf("%w: %v has no association attribute %v", ErrConfiguration, desc.Key(), name)
		}

		if _, ok := keys[name]; ok {
			return nil, fmt.Errorf("%w: %v.%v is a join column of %v", ErrConfiguration, table, name, desc.Key())
		}

		v, err := column.Coerce(linkValues[name])
		if err != nil {
			return nil, err
		}
		values[name] = v
	}

	exprs := make([]clause.Expression, 0, len(keys))
	for _, name := range utils.SortedKeys(keys) {
		if keys[name] == nil {
			return nil, fmt.Errorf("%w: %v can't link %v to %v without %v", ErrPrimaryKeyRequired, desc.Key(), owner, value, name)
		}
		exprs = append(exprs, clause.Eq{Column: clause.Column{Table: table.Name, Name: name}, Value: keys[name]})
	}

	existing, err := e.Find(ctx, g, Predicate{Table: table.Name, Expression: clause.And(exprs...)})
	if err != nil {
		return nil, err
	}

	var link *Record
	if len(existing) > 0 {
		link = existing[0]
	} else {
		link = NewRecord(table.Name, keys)
	}

	for column, literal := range literals(desc) {
		if column.Table == table.Name {
			link.Set(column.Name, literal)
		}
	}

	for _, name := range utils.SortedKeys(values) {
		link.Set(name, values[name])
	}

	if len(existing) > 0 {
		return link, nil
	}

	for _, name := range table.PrimaryKeys {
		if link.Get(name) == nil {
			if table.LookUpColumn(name).Type != schema.UUID {
				return nil, fmt.Errorf("%w: %v.%v", ErrPrimaryKeyRequired, table, name)
			}
			link.Set(name, uuid.New())
		}
	}

	key, err := e.ensureKey(link, false)
	if err != nil {
		return nil, err
	}

	link, _ = g.add(link, key, true)
	return link, nil
}
