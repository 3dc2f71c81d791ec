package assoc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/assoc/logger"
	"gorm.io/assoc/schema"
	"gorm.io/assoc/utils"
)

// Materialize loads owner's relationship desc into g, fetching only when it isn't loaded yet
func (e *Engine) Materialize(ctx context.Context, g *Graph, desc *schema.Descriptor, owner *Record) (Result, error) {
	association := &Association{Engine: e, Graph: g, Context: ctx, Owner: owner, Relationship: desc}
	return association.Load()
}

// load returns the targets of desc for owner along with their association rows
func (e *Engine) load(ctx context.Context, g *Graph, desc *schema.Descriptor, owner *Record, refresh bool) (targets, via []*Record, err error) {
	if owner.Type != desc.Owner {
		return nil, nil, fmt.Errorf("%w: %v can't be loaded from a %v record", ErrConfiguration, desc.Key(), owner.Type)
	}

	if !refresh {
		if targets, via, ok := g.loaded(owner, desc.Name); ok {
			return targets, via, nil
		}
	}

	if targets, via, err = e.fetchRelated(ctx, g, desc, owner); err != nil {
		return nil, nil, err
	}

	if desc.Cardinality == schema.One && len(targets) > 1 {
		return nil, nil, fmt.Errorf("%w: %v matched %d %v records", ErrMultipleResults, desc.Key(), len(targets), desc.Target)
	}

	g.setLoaded(owner, desc.Name, targets, via)
	return targets, via, nil
}

func (e *Engine) fetchRelated(ctx context.Context, g *Graph, desc *schema.Descriptor, owner *Record) (targets, via []*Record, err error) {
	predicate, err := BuildPredicate(desc, owner)
	if err != nil {
		return nil, nil, err
	}

	ctx = logger.WithRelationship(ctx, desc.Key())
	rows, err := e.fetch(ctx, predicate)
	if err != nil {
		return nil, nil, err
	}

	var (
		seen  = map[*Record]bool{}
		links []*Record
	)

	if desc.AssociationTable == nil {
		for _, row := range rows {
			target, err := e.adopt(g, row)
			if err != nil {
				return nil, nil, err
			}

			if !seen[target] && !(desc.SelfReferential && target == owner) {
				seen[target] = true
				targets = append(targets, target)
				via = append(via, nil)
			}
		}
	} else {
		for _, row := range rows {
			link, err := e.adopt(g, row)
			if err != nil {
				return nil, nil, err
			}
			links = append(links, link)
		}

		predicate, err := BuildTargetPredicate(desc, links)
		if err != nil {
			return nil, nil, err
		}

		rows, err := e.fetch(ctx, predicate)
		if err != nil {
			return nil, nil, err
		}

		fetched := make([]*Record, 0, len(rows))
		for _, row := range rows {
			target, err := e.adopt(g, row)
			if err != nil {
				return nil, nil, err
			}
			fetched = append(fetched, target)
		}

		// association rows keep the fetch order
		for _, link := range links {
			for _, target := range fetched {
				if seen[target] || (desc.SelfReferential && target == owner) || !joins(desc.SecondaryPairs, link, target) {
					continue
				}
				seen[target] = true
				targets = append(targets, target)
				via = append(via, link)
			}
		}
	}

	if len(desc.OrderBy) > 0 {
		sortRecords(desc.OrderBy, targets, via)
	}

	return targets, via, nil
}

// joins whether every pair of local columns on left equals the remote columns on right
func joins(pairs []schema.ColumnPair, left, right *Record) bool {
	for _, pair := range pairs {
		l, r := left.Get(pair.Local.Name), right.Get(pair.Remote.Name)
		if l == nil || r == nil || !utils.AssertEqual(l, r) {
			return false
		}
	}
	return true
}

type recordSorter struct {
	orders  []string
	targets []*Record
	via     []*Record
}

func (s recordSorter) Len() int {
	return len(s.targets)
}

func (s recordSorter) Swap(i, j int) {
	s.targets[i], s.targets[j] = s.targets[j], s.targets[i]
	s.via[i], s.via[j] = s.via[j], s.via[i]
}

func (s recordSorter) Less(i, j int) bool {
	for _, order := range s.orders {
		name, desc := schema.ParseOrder(order)
		if c := compareValues(s.targets[i].Get(name), s.targets[j].Get(name)); c != 0 {
			return (c < 0) != desc
		}
	}
	return false
}

func sortRecords(orders []string, targets, via []*Record) {
	sort.Stable(recordSorter{orders: orders, targets: targets, via: via})
}

// compareValues orders NULL first, then numbers, strings, times and bools by value
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}

	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}

	return strings.Compare(utils.ToStringKey(a), utils.ToStringKey(b))
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
