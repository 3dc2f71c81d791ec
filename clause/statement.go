package clause

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Statement collects the rendered condition and its bind vars
type Statement struct {
	SQL  strings.Builder
	Vars []interface{}
	// Quote quote character for identifiers, zero disables quoting
	Quote byte
	// Placeholder renders the n-th (1 based) bind var, defaults to "?"
	Placeholder func(n int) string
	// Inline writes vars as literals instead of placeholders
	Inline bool
}

func (stmt *Statement) WriteByte(c byte) error {
	return stmt.SQL.WriteByte(c)
}

func (stmt *Statement) WriteString(str string) (int, error) {
	return stmt.SQL.WriteString(str)
}

// WriteQuoted write quoted value
func (stmt *Statement) WriteQuoted(value interface{}) {
	switch v := value.(type) {
	case Column:
		if v.Table != "" {
			stmt.quoteTo(v.Table)
			stmt.SQL.WriteByte('.')
		}
		stmt.quoteTo(v.Name)
	case string:
		stmt.quoteTo(v)
	default:
		stmt.SQL.WriteString(fmt.Sprint(v))
	}
}

func (stmt *Statement) quoteTo(str string) {
	if stmt.Quote == 0 {
		stmt.SQL.WriteString(str)
		return
	}

	stmt.SQL.WriteByte(stmt.Quote)
	stmt.SQL.WriteString(strings.ReplaceAll(str, string(stmt.Quote), string([]byte{stmt.Quote, stmt.Quote})))
	stmt.SQL.WriteByte(stmt.Quote)
}

// AddVar add var
func (stmt *Statement) AddVar(writer Writer, vars ...interface{}) {
	for idx, v := range vars {
		if idx > 0 {
			writer.WriteByte(',')
		}

		switch v := v.(type) {
		case Column:
			stmt.WriteQuoted(v)
		case Expression:
			v.Build(stmt)
		case []interface{}:
			if len(v) > 0 {
				writer.WriteByte('(')
				stmt.AddVar(writer, v...)
				writer.WriteByte(')')
			} else {
				writer.WriteString("(NULL)")
			}
		default:
			if stmt.Inline {
				writer.WriteString(Literal(v))
				continue
			}

			stmt.Vars = append(stmt.Vars, v)
			if stmt.Placeholder != nil {
				writer.WriteString(stmt.Placeholder(len(stmt.Vars)))
			} else {
				writer.WriteByte('?')
			}
		}
	}
}

// Build renders expr into a statement
func (stmt *Statement) Build(expr Expression) *Statement {
	if expr != nil {
		expr.Build(stmt)
	}
	return stmt
}

// Explain renders expr with inlined literals and unquoted identifiers, used for logs and descriptor dumps
func Explain(expr Expression) string {
	if expr == nil {
		return ""
	}

	stmt := &Statement{Inline: true}
	expr.Build(stmt)
	return stmt.SQL.String()
}

// Literal formats a bind var as an inline literal
func Literal(v interface{}) string {
	if valuer, ok := v.(driver.Valuer); ok {
		v, _ = valuer.Value()
	}

	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return fmt.Sprint(v)
	case time.Time:
		return "'" + v.Format("2006-01-02 15:04:05") + "'"
	case *time.Time:
		if v == nil {
			return "NULL"
		}
		return "'" + v.Format("2006-01-02 15:04:05") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(v), "'", "''") + "'"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float64, float32:
		return fmt.Sprintf("%.6f", v)
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
	}
}
