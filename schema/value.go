package schema

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
)

// Column types understood by Coerce
const (
	String = "string"
	UUID   = "uuid"
	Int    = "int"
	Float  = "float"
	Bool   = "bool"
	Time   = "time"
	Enum   = "enum"
	JSON   = "json"
)

// Coerce converts value to the Go representation of the column type, used when loading
// records from loosely typed sources such as YAML fixtures or query parameters
func (column ColumnSpec) Coerce(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch column.Type {
	case UUID:
		switch v := value.(type) {
		case uuid.UUID:
			return v, nil
		case string:
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %v as uuid for column %v: %w", v, column.Name, err)
			}
			return id, nil
		case []byte:
			id, err := uuid.ParseBytes(v)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s as uuid for column %v: %w", v, column.Name, err)
			}
			return id, nil
		}
	case Int:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case uint:
			return int64(v), nil
		case float64:
			return int64(v), nil
		case string:
			i, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %v as int for column %v: %w", v, column.Name, err)
			}
			return i, nil
		}
	case Float:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %v as float for column %v: %w", v, column.Name, err)
			}
			return f, nil
		}
	case Bool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %v as bool for column %v: %w", v, column.Name, err)
			}
			return b, nil
		case int:
			return v != 0, nil
		case int64:
			return v != 0, nil
		}
	case Time:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case *time.Time:
			if v == nil {
				return nil, nil
			}
			return *v, nil
		case string:
			t, err := now.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %v as time for column %v: %w", v, column.Name, err)
			}
			return t, nil
		}
	case Enum:
		if s, ok := value.(string); ok {
			if len(column.EnumValues) > 0 && !column.IsEnumMember(s) {
				return nil, fmt.Errorf("%w: %q is not a member of %v.%v", ErrConfiguration, s, column.Name, column.EnumValues)
			}
			return s, nil
		}
	case String, "":
		switch v := value.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		case fmt.Stringer:
			return v.String(), nil
		}
		return value, nil
	default:
		return value, nil
	}

	return nil, fmt.Errorf("unsupported value %#v for %v column %v", value, column.Type, column.Name)
}
