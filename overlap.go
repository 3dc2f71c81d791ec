package assoc

import (
	"fmt"

	"gorm.io/assoc/clause"
	"gorm.io/assoc/schema"
	"gorm.io/assoc/utils"
)

// Overlap two writable relationships of one owner type that write the same rows
type Overlap struct {
	Left, Right *schema.Descriptor
}

func (overlap Overlap) String() string {
	return fmt.Sprintf("%v and %v both write %v", overlap.Left.Key(), overlap.Right.Key(), overlap.Left.LinkTable())
}

// Overlaps finds writable relationships sharing owner type, link table and join columns whose
// literal filters can match the same row. Relationships told apart by a literal, such as
// emergency_address true and false, never overlap.
func Overlaps(descriptors []*schema.Descriptor) (overlaps []Overlap) {
	for i, left := range descriptors {
		for _, right := range descriptors[i+1:] {
			if left.Owner != right.Owner || left.ViewOnly || right.ViewOnly {
				continue
			}

			if left.LinkTable().Name != right.LinkTable().Name {
				continue
			}

			if !samePairs(left.Pairs, right.Pairs) || !samePairs(left.SecondaryPairs, right.SecondaryPairs) {
				continue
			}

			if disjoint(literals(left), literals(right)) {
				continue
			}

			overlaps = append(overlaps, Overlap{Left: left, Right: right})
		}
	}
	return
}

func samePairs(left, right []schema.ColumnPair) bool {
	if len(left) != len(right) {
		return false
	}

	for _, pair := range left {
		var found bool
		for _, other := range right {
			if pair == other {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// literals returns the column = literal conditions of both join legs
func literals(desc *schema.Descriptor) map[clause.Column]interface{} {
	results := map[clause.Column]interface{}{}

	exprs := append([]clause.Expression{}, desc.PrimaryJoin[len(desc.Pairs):]...)
	exprs = append(exprs, desc.SecondaryJoin[len(desc.SecondaryPairs):]...)

	for _, expr := range clause.Conjuncts(clause.And(exprs...)) {
		if eq, ok := expr.(clause.Eq); ok {
			if column, ok := eq.Column.(clause.Column); ok {
				if _, isColumn := eq.Value.(clause.Column); !isColumn {
					results[column] = eq.Value
				}
			}
		}
	}
	return results
}

func disjoint(left, right map[clause.Column]interface{}) bool {
	for column, value := range left {
		if other, ok := right[column]; ok && !utils.AssertEqual(value, other) {
			return true
		}
	}
	return false
}
