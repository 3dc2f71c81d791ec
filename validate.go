package assoc

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"gorm.io/assoc/schema"
)

// ValidateAll resolves every registered relationship and checks back references pair up,
// all failures are reported together. Overlapping writable relationships are logged as warnings.
func (r *Resolver) ValidateAll(ctx context.Context) error {
	var (
		errs     error
		resolved []*schema.Descriptor
		byKey    = map[string]*schema.Descriptor{}
	)

	for _, entityType := range r.Registry.EntityTypes() {
		for _, def := range r.Registry.DefinitionsFor(entityType) {
			desc, err := r.Resolve(ctx, def.Owner, def.Name)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			resolved = append(resolved, desc)
			byKey[desc.Key()] = desc
		}
	}

	for _, desc := range resolved {
		if desc.BackReference == "" {
			continue
		}

		if back, ok := byKey[desc.Target+"."+desc.BackReference]; ok {
			errs = multierr.Append(errs, complementary(desc, back))
		}
	}

	for _, overlap := range Overlaps(resolved) {
		r.Logger.Warn(ctx, "relationships write the same rows", "overlap", overlap.String())
	}

	return errs
}

// complementary checks a back reference describes the same join seen from the other side
func complementary(desc, back *schema.Descriptor) error {
	switch {
	case desc.AssociationTable != nil && back.AssociationTable != nil:
		if desc.AssociationTable.Name != back.AssociationTable.Name {
			return fmt.Errorf("%w: %v and its back reference %v use different association tables %v and %v",
				ErrConfiguration, desc.Key(), back.Key(), desc.AssociationTable, back.AssociationTable)
		}
		return nil
	case desc.AssociationTable != nil || back.AssociationTable != nil:
		return fmt.Errorf("%w: %v and its back reference %v don't both use an association table", ErrConfiguration, desc.Key(), back.Key())
	}

	if desc.Cardinality == schema.Many && back.Cardinality == schema.Many {
		return fmt.Errorf("%w: %v and %v are both many over the same foreign key", ErrConfiguration, desc.Key(), back.Key())
	}

	if (desc.Direction == schema.OneToMany) != (back.Direction == schema.ManyToOne) {
		return fmt.Errorf("%w: %v is %v but its back reference %v is %v", ErrConfiguration, desc.Key(), desc.Direction, back.Key(), back.Direction)
	}

	if len(desc.Pairs) != len(back.Pairs) {
		return fmt.Errorf("%w: %v and its back reference %v join on different columns", ErrConfiguration, desc.Key(), back.Key())
	}

	for _, pair := range desc.Pairs {
		var found bool
		for _, other := range back.Pairs {
			if pair.Local == other.Remote && pair.Remote == other.Local {
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("%w: %v and its back reference %v join on different columns", ErrConfiguration, desc.Key(), back.Key())
		}
	}

	return nil
}
