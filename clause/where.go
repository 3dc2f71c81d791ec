package clause

// AndConditions conjunction, built parenthesized when it has more than one term
type AndConditions struct {
	Exprs []Expression
}

// OrConditions disjunction, built parenthesized when it has more than one term
type OrConditions struct {
	Exprs []Expression
}

// NotConditions negates every term, NOT a AND NOT b
type NotConditions struct {
	Exprs []Expression
}

// And joins expressions with AND, nil expressions are skipped and nested ANDs are flattened
func And(exprs ...Expression) Expression {
	flat := compact(exprs, func(expr Expression) ([]Expression, bool) {
		and, ok := expr.(AndConditions)
		return and.Exprs, ok
	})

	if len(flat) < 2 {
		return single(flat)
	}
	return AndConditions{Exprs: flat}
}

// Or joins expressions with OR, nil expressions are skipped
func Or(exprs ...Expression) Expression {
	flat := compact(exprs, nil)
	if len(flat) < 2 {
		return single(flat)
	}
	return OrConditions{Exprs: flat}
}

func Not(exprs ...Expression) Expression {
	if len(exprs) == 0 {
		return nil
	}
	return NotConditions{Exprs: exprs}
}

// compact drops nil expressions, inlining the terms unwrap returns for an expression
func compact(exprs []Expression, unwrap func(Expression) ([]Expression, bool)) []Expression {
	results := make([]Expression, 0, len(exprs))
	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		if unwrap != nil {
			if inner, ok := unwrap(expr); ok {
				results = append(results, inner...)
				continue
			}
		}
		results = append(results, expr)
	}
	return results
}

func single(exprs []Expression) Expression {
	if len(exprs) == 0 {
		return nil
	}
	return exprs[0]
}

func (and AndConditions) Build(builder Builder) {
	joinExprs(builder, and.Exprs, " AND ", Expression.Build)
}

func (or OrConditions) Build(builder Builder) {
	joinExprs(builder, or.Exprs, " OR ", Expression.Build)
}

func (not NotConditions) Build(builder Builder) {
	joinExprs(builder, not.Exprs, " AND ", func(expr Expression, builder Builder) {
		if negation, ok := expr.(NegationExpressionBuilder); ok {
			negation.NegationBuild(builder)
			return
		}
		builder.WriteString("NOT (")
		expr.Build(builder)
		builder.WriteByte(')')
	})
}

func joinExprs(builder Builder, exprs []Expression, sep string, build func(Expression, Builder)) {
	if len(exprs) > 1 {
		builder.WriteByte('(')
		defer builder.WriteByte(')')
	}

	for idx, expr := range exprs {
		if idx > 0 {
			builder.WriteString(sep)
		}
		build(expr, builder)
	}
}

// Conjuncts splits an expression into its top level AND terms
func Conjuncts(expr Expression) []Expression {
	switch v := expr.(type) {
	case nil:
		return nil
	case AndConditions:
		var results []Expression
		for _, e := range v.Exprs {
			results = append(results, Conjuncts(e)...)
		}
		return results
	}
	return []Expression{expr}
}
