package schema

import (
	"fmt"
	"strings"

	"gorm.io/assoc/clause"
)

// Cardinality whether a relationship yields a single optional value or a collection
type Cardinality string

const (
	One  Cardinality = "one"
	Many Cardinality = "many"
)

// Direction join direction
type Direction string

const (
	OneToMany  Direction = "one_to_many"  // target holds the foreign key
	ManyToOne  Direction = "many_to_one"  // owner holds the foreign key
	ManyToMany Direction = "many_to_many" // mediated by an association table
)

// Loading when a relationship is fetched
type Loading string

const (
	// Lazy fetch when the relationship is first loaded
	Lazy Loading = "lazy"
	// Eager fetch when the owner is attached to a graph
	Eager Loading = "eager"
)

// ParseLoading accepts lazy/eager plus the select, selectin and joined aliases
func ParseLoading(str string) (Loading, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "":
		return "", nil
	case "lazy", "select", "dynamic":
		return Lazy, nil
	case "eager", "selectin", "joined", "immediate", "subquery":
		return Eager, nil
	}
	return "", fmt.Errorf("%w: unknown loading strategy %q", ErrConfiguration, str)
}

// CascadeRule propagated mutation policy
type CascadeRule uint8

const (
	CascadeMerge CascadeRule = 1 << iota
	CascadeSaveUpdate
	CascadeDelete
	CascadeDeleteOrphan
)

// CascadeAll the rules "all" expands to
const CascadeAll = CascadeMerge | CascadeSaveUpdate | CascadeDelete

var cascadeNames = []struct {
	rule CascadeRule
	name string
}{
	{CascadeMerge, "merge"},
	{CascadeSaveUpdate, "save-update"},
	{CascadeDelete, "delete"},
	{CascadeDeleteOrphan, "delete-orphan"},
}

// ParseCascade parses a comma separated rule list such as "all, delete-orphan"
func ParseCascade(values ...string) (CascadeRule, error) {
	var rules CascadeRule

	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			switch name {
			case "":
				continue
			case "all":
				rules |= CascadeAll
				continue
			}

			var found bool
			for _, cn := range cascadeNames {
				if cn.name == name {
					rules |= cn.rule
					found = true
				}
			}

			if !found {
				return 0, fmt.Errorf("%w: unknown cascade rule %q", ErrConfiguration, name)
			}
		}
	}

	return rules, nil
}

// Has whether every rule of r is set
func (rules CascadeRule) Has(r CascadeRule) bool {
	return rules&r == r
}

func (rules CascadeRule) String() string {
	var names []string
	for _, cn := range cascadeNames {
		if rules.Has(cn.rule) {
			names = append(names, cn.name)
		}
	}
	return strings.Join(names, ", ")
}

// Definition registry entry of a relationship, keyed by (Owner, Name)
type Definition struct {
	Owner            string
	Name             string
	Target           string
	AssociationClass string
	// EntityParamKey groups extra association params supplied per item, defaults to Name
	EntityParamKey string
	// EntityParamsAttr maps owner attributes to the association (or target) columns they filter.
	// The reverse orientation of generated dumps, plus a discriminator pin, is accepted too.
	EntityParamsAttr map[string]string
	// ItemParamsAttr maps association (or target) columns to the name they're exposed as
	ItemParamsAttr map[string]string
	// PrimaryFilter literal conditions of the owner <-> association leg
	PrimaryFilter map[string]interface{}
	// SecondaryFilter literal conditions of the association <-> target leg, or of the target
	// when there is no association
	SecondaryFilter map[string]interface{}
	// ForeignKeys explicit foreign key columns, used to settle an ambiguous join
	ForeignKeys   []string
	Cardinality   Cardinality
	Cascade       CascadeRule
	ViewOnly      bool
	BackReference string
	Loading       Loading
	OrderBy       []string
}

// Key owner.name
func (def Definition) Key() string {
	return def.Owner + "." + def.Name
}

func (def Definition) String() string {
	return def.Key()
}

// ParamKey key used to look up per-item association params
func (def Definition) ParamKey() string {
	if def.EntityParamKey != "" {
		return def.EntityParamKey
	}
	return def.Name
}

// ColumnPair a join condition between two columns, Local is the side closer to the owner
type ColumnPair struct {
	Local  clause.Column
	Remote clause.Column
}

// Discriminator resolved polymorphic type filter
type Discriminator struct {
	Column clause.Column
	Value  string
}

// Descriptor resolved relationship, immutable once built
type Descriptor struct {
	*Definition
	Direction        Direction
	Cardinality      Cardinality
	OwnerTable       *Table
	TargetTable      *Table
	AssociationTable *Table
	// Pairs join the owner to the association table, or to the target when there's none
	Pairs []ColumnPair
	// SecondaryPairs join the association table to the target
	SecondaryPairs  []ColumnPair
	Discriminator   *Discriminator
	PrimaryJoin     []clause.Expression
	SecondaryJoin   []clause.Expression
	SelfReferential bool
}

// Join symbolic join condition of both legs
func (desc *Descriptor) Join() clause.Expression {
	exprs := make([]clause.Expression, 0, len(desc.PrimaryJoin)+len(desc.SecondaryJoin))
	exprs = append(exprs, desc.PrimaryJoin...)
	exprs = append(exprs, desc.SecondaryJoin...)
	return clause.And(exprs...)
}

// LinkTable the table a bound owner predicate filters, the association table when present
func (desc *Descriptor) LinkTable() *Table {
	if desc.AssociationTable != nil {
		return desc.AssociationTable
	}
	return desc.TargetTable
}

// Uselist whether the relationship yields a collection
func (desc *Descriptor) Uselist() bool {
	return desc.Cardinality == Many
}

func (desc *Descriptor) String() string {
	var sb strings.Builder
	sb.WriteString(desc.Key())
	sb.WriteString(" -> ")
	sb.WriteString(desc.Target)
	sb.WriteString(" [")
	sb.WriteString(string(desc.Direction))
	sb.WriteString(", ")
	sb.WriteString(string(desc.Cardinality))
	if desc.ViewOnly {
		sb.WriteString(", viewonly")
	}
	sb.WriteString("] primary: ")
	sb.WriteString(clause.Explain(clause.And(desc.PrimaryJoin...)))
	if len(desc.SecondaryJoin) > 0 {
		sb.WriteString(" secondary: ")
		sb.WriteString(clause.Explain(clause.And(desc.SecondaryJoin...)))
	}
	return sb.String()
}
