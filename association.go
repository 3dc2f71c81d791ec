package assoc

import (
	"context"
	"fmt"

	"gorm.io/assoc/schema"
)

// Association relationship handle of one owner, mutations go through the synchronization engine
type Association struct {
	Engine       *Engine
	Graph        *Graph
	Context      context.Context
	Owner        *Record
	Relationship *schema.Descriptor
	Error        error

	linkValues map[string]interface{}
}

// WithLinkValues returns a handle that writes values into the association rows it creates
func (association *Association) WithLinkValues(values map[string]interface{}) *Association {
	clone := *association
	clone.linkValues = values
	return &clone
}

// Load returns the related records, fetching them on first use
func (association *Association) Load() (Result, error) {
	return association.materialize(false)
}

// Reload fetches the related records again
func (association *Association) Reload() (Result, error) {
	return association.materialize(true)
}

func (association *Association) materialize(refresh bool) (Result, error) {
	if association.Error != nil {
		return nil, association.Error
	}

	targets, via, err := association.Engine.load(association.Context, association.Graph, association.Relationship, association.Owner, refresh)
	if err != nil {
		return nil, err
	}

	if association.Relationship.Cardinality == schema.One {
		scalar := &Scalar{association: association}
		if len(targets) > 0 {
			scalar.value, scalar.link = targets[0], via[0]
		}
		return scalar, nil
	}

	return &Collection{association: association, items: targets, links: via}, nil
}

// Count number of related records
func (association *Association) Count() (int, error) {
	result, err := association.Load()
	if err != nil {
		return 0, err
	}
	return result.Len(), nil
}

// Append links values, a one-cardinality relationship accepts a single value and replaces
// the current one
func (association *Association) Append(values ...*Record) error {
	if err := association.check(values); err != nil {
		return err
	}

	if association.Relationship.Cardinality == schema.One {
		if len(values) != 1 {
			return fmt.Errorf("%w: %v holds one record, got %d", ErrInvalidValueOfLength, association.Relationship.Key(), len(values))
		}
		return association.Replace(values...)
	}

	for _, value := range values {
		if err := association.Engine.OnAssign(association.Context, association.Graph, association.Relationship, association.Owner, value, association.linkValues); err != nil {
			return err
		}
	}
	return nil
}

// Remove unlinks values
func (association *Association) Remove(values ...*Record) error {
	if err := association.check(nil); err != nil {
		return err
	}

	for _, value := range values {
		if err := association.Engine.OnRemove(association.Context, association.Graph, association.Relationship, association.Owner, value); err != nil {
			return err
		}
	}
	return nil
}

// Replace replaces the related records with values
func (association *Association) Replace(values ...*Record) error {
	if err := association.check(values); err != nil {
		return err
	}

	var (
		engine = association.Engine
		desc   = association.Relationship
	)

	if desc.Cardinality == schema.One && len(values) > 1 {
		return fmt.Errorf("%w: %v holds one record, got %d", ErrInvalidValueOfLength, desc.Key(), len(values))
	}

	result, err := association.Load()
	if err != nil {
		return err
	}

	keep := make(map[*Record]bool, len(values))
	for _, value := range values {
		keep[engine.canonical(association.Graph, value)] = true
	}

	for _, current := range result.Records() {
		// a many to one foreign key is overwritten by the assignment
		if keep[current] || (desc.Direction == schema.ManyToOne && len(values) > 0) {
			continue
		}

		if err := engine.OnRemove(association.Context, association.Graph, desc, association.Owner, current); err != nil {
			return err
		}
	}

	for _, value := range values {
		if err := engine.OnAssign(association.Context, association.Graph, desc, association.Owner, value, association.linkValues); err != nil {
			return err
		}
	}
	return nil
}

// Clear unlinks every related record
func (association *Association) Clear() error {
	return association.Replace()
}

// check rejects the mutation before anything is written
func (association *Association) check(values []*Record) error {
	if association.Error != nil {
		return association.Error
	}

	desc := association.Relationship
	if desc.ViewOnly {
		return fmt.Errorf("%w: %v", ErrImmutableRelationship, desc.Key())
	}

	if desc.Cascade.Has(schema.CascadeSaveUpdate) {
		return nil
	}

	for _, value := range values {
		if value == nil {
			return fmt.Errorf("%w: nil value for %v", ErrConfiguration, desc.Key())
		}

		value = association.Engine.canonical(association.Graph, value)
		if !association.Graph.Contains(value) || association.Graph.Pending(value) {
			return fmt.Errorf("%w: %v is not in the graph and %v doesn't cascade save-update", ErrTransientRecord, value, desc.Key())
		}
	}
	return nil
}
