package clause_test

import (
	"fmt"
	"reflect"
	"strconv"
	"testing"

	"gorm.io/assoc/clause"
)

var (
	userID      = clause.Column{Table: "user", Name: "user_id"}
	entityID    = clause.Column{Table: "entity_address", Name: "entity_id"}
	entityType  = clause.Column{Table: "entity_address", Name: "entity_type"}
	addressFK   = clause.Column{Table: "entity_address", Name: "address_id"}
	addressPK   = clause.Column{Table: "address", Name: "address_id"}
	emergencyFK = clause.Column{Table: "entity_address", Name: "emergency_address"}
)

func TestBuild(t *testing.T) {
	results := []struct {
		Expr   clause.Expression
		Result string
		Vars   []interface{}
	}{
		{
			clause.And(clause.Eq{Column: userID, Value: entityID}, clause.Eq{Column: entityType, Value: "user"}),
			`("user"."user_id" = "entity_address"."entity_id" AND "entity_address"."entity_type" = $1)`,
			[]interface{}{"user"},
		},
		{
			clause.Or(clause.Eq{Column: addressPK, Value: 1}, clause.Eq{Column: addressPK, Value: 2}),
			`("address"."address_id" = $1 OR "address"."address_id" = $2)`,
			[]interface{}{1, 2},
		},
		{
			clause.IN{Column: addressPK, Values: []interface{}{1, 2, 3}},
			`"address"."address_id" IN ($1,$2,$3)`,
			[]interface{}{1, 2, 3},
		},
		{
			clause.Not(clause.Eq{Column: emergencyFK, Value: nil}),
			`"entity_address"."emergency_address" IS NOT NULL`,
			nil,
		},
	}

	for idx, result := range results {
		t.Run(fmt.Sprintf("case #%v", idx), func(t *testing.T) {
			stmt := &clause.Statement{Quote: '"', Placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
			stmt.Build(result.Expr)

			if stmt.SQL.String() != result.Result {
				t.Errorf("SQL expects %v got %v", result.Result, stmt.SQL.String())
			}

			if !reflect.DeepEqual(stmt.Vars, result.Vars) {
				t.Errorf("Vars expects %+v got %v", result.Vars, stmt.Vars)
			}
		})
	}
}

func TestExplain(t *testing.T) {
	expr := clause.And(
		clause.Eq{Column: addressFK, Value: addressPK},
		clause.Eq{Column: emergencyFK, Value: false},
		clause.Eq{Column: entityType, Value: "o'neil"},
	)

	expected := "(entity_address.address_id = address.address_id AND entity_address.emergency_address = false AND entity_address.entity_type = 'o''neil')"
	if got := clause.Explain(expr); got != expected {
		t.Errorf("Explain expects %v got %v", expected, got)
	}
}

func TestAndFlattens(t *testing.T) {
	inner := clause.And(clause.Eq{Column: userID, Value: 1}, clause.Eq{Column: entityType, Value: "user"})
	outer := clause.And(inner, nil, clause.Eq{Column: emergencyFK, Value: true})

	if conjuncts := clause.Conjuncts(outer); len(conjuncts) != 3 {
		t.Errorf("expects 3 conjuncts, got %v", len(conjuncts))
	}

	if clause.And() != nil || clause.Or(nil) != nil {
		t.Errorf("empty conditions should be nil")
	}
}

func TestEval(t *testing.T) {
	row := clause.RowFunc(func(column clause.Column) (interface{}, bool) {
		values := map[string]interface{}{
			"entity_id":         int64(7),
			"entity_type":       "user",
			"address_id":        3,
			"emergency_address": false,
			"note":              nil,
		}
		if column.Table != "entity_address" {
			return nil, false
		}
		v, ok := values[column.Name]
		return v, ok
	})

	cases := []struct {
		expr   clause.Expression
		expect bool
	}{
		{clause.Eq{Column: entityID, Value: 7}, true},
		{clause.And(clause.Eq{Column: entityType, Value: "user"}, clause.Eq{Column: emergencyFK, Value: false}), true},
		{clause.And(clause.Eq{Column: entityType, Value: "user"}, clause.Eq{Column: emergencyFK, Value: true}), false},
		{clause.Or(clause.Eq{Column: entityType, Value: "role"}, clause.IN{Column: addressFK, Values: []interface{}{1, 3}}), true},
		{clause.Eq{Column: clause.Column{Table: "entity_address", Name: "note"}, Value: nil}, true},
		{clause.Eq{Column: clause.Column{Table: "entity_address", Name: "note"}, Value: "x"}, false},
		{clause.Neq{Column: entityType, Value: "user"}, false},
		{clause.Not(clause.Eq{Column: entityType, Value: "role"}), true},
	}

	for idx, c := range cases {
		got, err := clause.Eval(c.expr, row)
		if err != nil {
			t.Fatalf("case #%v: unexpected error %v", idx, err)
		}
		if got != c.expect {
			t.Errorf("case #%v: %v expects %v, got %v", idx, clause.Explain(c.expr), c.expect, got)
		}
	}

	if _, err := clause.Eval(clause.Eq{Column: addressPK, Value: 1}, row); err == nil {
		t.Errorf("columns of other tables should not resolve")
	}
}

func TestBind(t *testing.T) {
	join := clause.And(
		clause.Eq{Column: userID, Value: entityID},
		clause.Eq{Column: entityType, Value: "user"},
	)

	bound := clause.Bind(join, "user", func(name string) interface{} {
		if name == "user_id" {
			return 42
		}
		return nil
	})

	expected := "(entity_address.entity_id = 42 AND entity_address.entity_type = 'user')"
	if got := clause.Explain(bound); got != expected {
		t.Errorf("Bind expects %v got %v", expected, got)
	}

	if tables := clause.Tables(bound); !reflect.DeepEqual(tables, []string{"entity_address"}) {
		t.Errorf("bound predicate should only reference entity_address, got %v", tables)
	}

	collapsed := clause.Bind(clause.And(clause.Eq{Column: entityType, Value: "user"}), "entity_address", func(string) interface{} { return "role" })
	if collapsed != clause.Truth(false) {
		t.Errorf("fully bound mismatching condition should collapse to false, got %#v", collapsed)
	}
}
