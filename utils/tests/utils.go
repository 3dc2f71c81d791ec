package tests

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/assoc/utils"
)

// Getter reads column values, satisfied by *assoc.Record
type Getter interface {
	Get(name string) interface{}
}

// AssertValues checks every column of expect against got
func AssertValues(t *testing.T, got Getter, expect map[string]interface{}) {
	t.Helper()
	for _, name := range utils.SortedKeys(expect) {
		if value := got.Get(name); !utils.AssertEqual(value, expect[name]) {
			t.Errorf("%v: %v expect: %#v, got %#v", utils.FileWithLineNum(), name, expect[name], value)
		}
	}
}

// AssertColumn checks column of records, in order, equals expects
func AssertColumn[T Getter](t *testing.T, records []T, column string, expects ...interface{}) {
	t.Helper()
	if len(records) != len(expects) {
		t.Errorf("%v: expects %d records, got %d (%v)", utils.FileWithLineNum(), len(expects), len(records), Column(records, column))
		return
	}

	for idx, record := range records {
		if value := record.Get(column); !utils.AssertEqual(value, expects[idx]) {
			t.Errorf("%v: #%d %v expect: %#v, got %#v", utils.FileWithLineNum(), idx, column, expects[idx], value)
		}
	}
}

// Column returns the values of column, formatted for messages and set comparisons
func Column[T Getter](records []T, column string) []string {
	results := make([]string, len(records))
	for idx, record := range records {
		results[idx] = fmt.Sprint(record.Get(column))
	}
	return results
}

func Now() *time.Time {
	now := time.Now()
	return &now
}
