package utils

import (
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// moduleDir root of this module's sources, frames under it are skipped by FileWithLineNum
var moduleDir string

func init() {
	_, file, _, _ := runtime.Caller(0)
	moduleDir = sourceDir(file)
}

// sourceDir two levels above file, which lives in <module>/utils
func sourceDir(file string) string {
	return filepath.ToSlash(filepath.Dir(filepath.Dir(file))) + "/"
}

// FileWithLineNum first caller outside this module (or inside a test file) as file:line
func FileWithLineNum() string {
	for skip := 2; skip < 16; skip++ {
		_, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		if file = filepath.ToSlash(file); !strings.HasPrefix(file, moduleDir) || strings.HasSuffix(file, "_test.go") {
			return file + ":" + strconv.Itoa(line)
		}
	}
	return ""
}

// ToStringKey joins values into a stable identity key, nil values are rendered as empty strings
func ToStringKey(values ...interface{}) string {
	var sb strings.Builder
	for idx, value := range values {
		if idx > 0 {
			sb.WriteByte('_')
		}
		sb.WriteString(keyPart(value))
	}
	return sb.String()
}

func keyPart(value interface{}) string {
	if valuer, ok := value.(driver.Valuer); ok {
		value, _ = valuer.Value()
	}

	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}

	if s, ok := scalar(value); ok {
		return s
	}
	return fmt.Sprint(reflect.Indirect(reflect.ValueOf(value)).Interface())
}

// SortedKeys returns the keys of m in lexical order
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertEqual compares two values after unwrapping driver.Valuer, scalars of different Go
// types are equal when they print the same (int64(3) and 3, "true" and true)
func AssertEqual(src, dst interface{}) bool {
	if reflect.DeepEqual(src, dst) {
		return true
	}

	if valuer, ok := src.(driver.Valuer); ok {
		src, _ = valuer.Value()
	}
	if valuer, ok := dst.(driver.Valuer); ok {
		dst, _ = valuer.Value()
	}

	switch {
	case reflect.DeepEqual(src, dst):
		return true
	case src == nil || dst == nil:
		return false
	}

	s, ok := scalar(src)
	if !ok {
		return false
	}
	d, ok := scalar(dst)
	return ok && s == d
}

func scalar(value interface{}) (string, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	}
	return "", false
}
