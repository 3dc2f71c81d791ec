package assoc

import (
	"fmt"

	"gorm.io/assoc/clause"
	"gorm.io/assoc/schema"
)

// BuildPredicate builds the join predicate of desc. Without an owner the predicate is symbolic,
// column to column over both join legs. With an owner every owner column is bound to its value:
// association relationships filter the association table, direct ones filter the target table.
func BuildPredicate(desc *schema.Descriptor, owner *Record) (Predicate, error) {
	if owner == nil {
		return Predicate{Table: desc.TargetTable.Name, Expression: desc.Join()}, nil
	}

	if owner.Type != desc.Owner {
		return Predicate{}, fmt.Errorf("%w: %v can't be bound to a %v record", ErrConfiguration, desc.Key(), owner.Type)
	}

	var (
		table = desc.LinkTable().Name
		exprs = make([]clause.Expression, 0, len(desc.PrimaryJoin)+len(desc.SecondaryJoin))
	)

	for _, pair := range desc.Pairs {
		value := owner.Get(pair.Local.Name)
		if value == nil {
			// NULL never joins
			return Predicate{Table: table, Expression: clause.Truth(false)}, nil
		}
		exprs = append(exprs, clause.Eq{Column: pair.Remote, Value: value})
	}

	// discriminator and literal filters follow the column pairs
	exprs = append(exprs, desc.PrimaryJoin[len(desc.Pairs):]...)

	if desc.AssociationTable != nil {
		for _, expr := range desc.SecondaryJoin[len(desc.SecondaryPairs):] {
			if tables := clause.Tables(expr); len(tables) == 1 && tables[0] == table {
				exprs = append(exprs, expr)
			}
		}
	}

	return Predicate{Table: table, Expression: clause.And(exprs...)}, nil
}

// BuildTargetPredicate binds the secondary join leg of desc against fetched association rows,
// the result matches the targets of any of links
func BuildTargetPredicate(desc *schema.Descriptor, links []*Record) (Predicate, error) {
	if desc.AssociationTable == nil {
		return Predicate{}, fmt.Errorf("%w: %v has no association table", ErrConfiguration, desc.Key())
	}

	var (
		seen      = map[string]bool{}
		exprs     []clause.Expression
		secondary = clause.And(desc.SecondaryJoin...)
	)

links:
	for _, link := range links {
		for _, pair := range desc.SecondaryPairs {
			if link.Get(pair.Local.Name) == nil {
				continue links
			}
		}

		bound := clause.Bind(secondary, desc.AssociationTable.Name, link.Get)
		if truth, ok := bound.(clause.Truth); ok {
			if !truth {
				continue
			}
			return Predicate{Table: desc.TargetTable.Name, Expression: truth}, nil
		}

		if key := clause.Explain(bound); !seen[key] {
			seen[key] = true
			exprs = append(exprs, bound)
		}
	}

	if len(exprs) == 0 {
		return Predicate{Table: desc.TargetTable.Name, Expression: clause.Truth(false)}, nil
	}

	return Predicate{Table: desc.TargetTable.Name, Expression: clause.Or(exprs...)}, nil
}
