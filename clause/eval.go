package clause

import (
	"errors"
	"fmt"
	"slices"

	"gorm.io/assoc/utils"
)

// ErrUnboundColumn returned when a condition references a column the row can't resolve
var ErrUnboundColumn = errors.New("unbound column")

// Row resolves column values of a record
type Row interface {
	Value(column Column) (interface{}, bool)
}

// RowFunc adapts a function to Row
type RowFunc func(column Column) (interface{}, bool)

func (f RowFunc) Value(column Column) (interface{}, bool) {
	return f(column)
}

// Eval evaluates a condition against a row with SQL semantics, NULL never equals anything
func Eval(expr Expression, row Row) (bool, error) {
	switch v := expr.(type) {
	case nil:
		return true, nil
	case Truth:
		return bool(v), nil
	case Eq:
		left, right, err := operands(v.Column, v.Value, row)
		if err != nil {
			return false, err
		}
		if v.Value == nil {
			return left == nil, nil
		}
		return left != nil && right != nil && utils.AssertEqual(left, right), nil
	case Neq:
		left, right, err := operands(v.Column, v.Value, row)
		if err != nil {
			return false, err
		}
		if v.Value == nil {
			return left != nil, nil
		}
		return left != nil && right != nil && !utils.AssertEqual(left, right), nil
	case IN:
		left, _, err := operands(v.Column, nil, row)
		if err != nil || left == nil {
			return false, err
		}
		for _, value := range v.Values {
			if value != nil && utils.AssertEqual(left, value) {
				return true, nil
			}
		}
		return false, nil
	case AndConditions:
		for _, e := range v.Exprs {
			if ok, err := Eval(e, row); err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case OrConditions:
		for _, e := range v.Exprs {
			if ok, err := Eval(e, row); err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case NotConditions:
		for _, e := range v.Exprs {
			if ok, err := Eval(e, row); err != nil || ok {
				return false, err
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("unsupported expression %T", expr)
	}
}

func operands(column, value interface{}, row Row) (left, right interface{}, err error) {
	if left, err = resolve(column, row); err != nil {
		return
	}
	right, err = resolve(value, row)
	return
}

func resolve(value interface{}, row Row) (interface{}, error) {
	if column, ok := value.(Column); ok {
		v, found := row.Value(column)
		if !found {
			return nil, fmt.Errorf("%w: %v", ErrUnboundColumn, column)
		}
		return v, nil
	}
	return value, nil
}

// Bind replaces every column of table with the value lookup returns, conditions left without
// unbound columns collapse into Truth
func Bind(expr Expression, table string, lookup func(name string) interface{}) Expression {
	bindValue := func(value interface{}) (interface{}, bool) {
		if column, ok := value.(Column); ok && column.Table == table {
			return lookup(column.Name), true
		}
		_, isColumn := value.(Column)
		return value, !isColumn
	}

	switch v := expr.(type) {
	case Eq:
		return bindComparison(v.Column, v.Value, bindValue, false)
	case Neq:
		return bindComparison(v.Column, v.Value, bindValue, true)
	case IN:
		if left, bound := bindValue(v.Column); bound {
			for _, value := range v.Values {
				if left != nil && value != nil && utils.AssertEqual(left, value) {
					return Truth(true)
				}
			}
			return Truth(false)
		}
		return v
	case AndConditions:
		exprs := make([]Expression, 0, len(v.Exprs))
		for _, e := range v.Exprs {
			switch bound := Bind(e, table, lookup).(type) {
			case Truth:
				if !bound {
					return Truth(false)
				}
			default:
				exprs = append(exprs, bound)
			}
		}
		if len(exprs) == 0 {
			return Truth(true)
		}
		return And(exprs...)
	case OrConditions:
		exprs := make([]Expression, 0, len(v.Exprs))
		for _, e := range v.Exprs {
			switch bound := Bind(e, table, lookup).(type) {
			case Truth:
				if bound {
					return Truth(true)
				}
			default:
				exprs = append(exprs, bound)
			}
		}
		if len(exprs) == 0 {
			return Truth(false)
		}
		return Or(exprs...)
	case NotConditions:
		exprs := make([]Expression, len(v.Exprs))
		for idx, e := range v.Exprs {
			exprs[idx] = Bind(e, table, lookup)
		}
		return NotConditions{Exprs: exprs}
	default:
		return expr
	}
}

func bindComparison(column, value interface{}, bindValue func(interface{}) (interface{}, bool), negate bool) Expression {
	left, leftBound := bindValue(column)
	right, rightBound := bindValue(value)

	build := func(c, v interface{}) Expression {
		if negate {
			return Neq{Column: c, Value: v}
		}
		return Eq{Column: c, Value: v}
	}

	switch {
	case leftBound && rightBound:
		if _, isColumn := value.(Column); !isColumn && value == nil {
			return Truth((left == nil) != negate)
		}
		equal := left != nil && right != nil && utils.AssertEqual(left, right)
		if negate {
			return Truth(left != nil && right != nil && !equal)
		}
		return Truth(equal)
	case leftBound:
		return build(value, left)
	case rightBound:
		return build(column, right)
	default:
		return build(column, value)
	}
}

// Tables returns the tables referenced by expr in order of appearance
func Tables(expr Expression) []string {
	var tables []string
	add := func(value interface{}) {
		if column, ok := value.(Column); ok && !slices.Contains(tables, column.Table) {
			tables = append(tables, column.Table)
		}
	}

	var walk func(Expression)
	walk = func(expr Expression) {
		switch v := expr.(type) {
		case Eq:
			add(v.Column)
			add(v.Value)
		case Neq:
			add(v.Column)
			add(v.Value)
		case IN:
			add(v.Column)
		case AndConditions:
			for _, e := range v.Exprs {
				walk(e)
			}
		case OrConditions:
			for _, e := range v.Exprs {
				walk(e)
			}
		case NotConditions:
			for _, e := range v.Exprs {
				walk(e)
			}
		}
	}
	walk(expr)

	return tables
}
