package schema

import (
	"strings"
	"sync"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Namer derives column names the catalog doesn't spell out
type Namer interface {
	// ForeignKeyName guesses the column another table uses to reference entityType's primary key
	ForeignKeyName(entityType, primaryKey string) string
	// ColumnName converts an attribute name to a column name
	ColumnName(name string) string
}

// NamingStrategy foreign key naming strategy
type NamingStrategy struct {
	// KeySuffix is used when the referenced primary key doesn't already carry the entity prefix
	KeySuffix string
}

// ForeignKeyName convert entity type and primary key to a foreign key column name,
// users + id => user_id, user + user_id => user_id
func (ns NamingStrategy) ForeignKeyName(entityType, primaryKey string) string {
	singular := inflection.Singular(toDBName(entityType))
	primaryKey = toDBName(primaryKey)

	if strings.HasPrefix(primaryKey, singular+"_") {
		return primaryKey
	}

	if primaryKey == "" {
		suffix := ns.KeySuffix
		if suffix == "" {
			suffix = "id"
		}
		return singular + "_" + suffix
	}

	return singular + "_" + primaryKey
}

// ColumnName snake cases class and attribute names, EntityAddress => entity_address
func (ns NamingStrategy) ColumnName(name string) string {
	return toDBName(name)
}

var dbNames sync.Map

// toDBName snake cases name: an underscore goes before an upper case letter that follows a
// lower case letter or digit, or that ends an acronym (HTTPServer => http_server)
func toDBName(name string) string {
	if name == "" {
		return ""
	}
	if v, ok := dbNames.Load(name); ok {
		return v.(string)
	}

	runes := []rune(name)
	var sb strings.Builder
	sb.Grow(len(name) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && runes[i-1] != '_' {
			prev := runes[i-1]
			endsAcronym := unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || endsAcronym {
				sb.WriteByte('_')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}

	result := sb.String()
	dbNames.Store(name, result)
	return result
}
