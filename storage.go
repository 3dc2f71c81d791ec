package assoc

import (
	"context"

	"gorm.io/assoc/clause"
)

// Predicate filter over the rows of Table
type Predicate struct {
	Table      string
	Expression clause.Expression
}

// Match evaluates the predicate against record
func (p Predicate) Match(record *Record) (bool, error) {
	if record.Type != p.Table {
		return false, nil
	}
	return clause.Eval(p.Expression, record)
}

func (p Predicate) String() string {
	if p.Expression == nil {
		return p.Table
	}
	return p.Table + " WHERE " + clause.Explain(p.Expression)
}

// Storage row storage the engine reads and writes through, transaction boundaries belong to
// the caller
type Storage interface {
	Fetch(ctx context.Context, predicate Predicate) ([]*Record, error)
	Persist(ctx context.Context, record *Record) error
	Delete(ctx context.Context, record *Record) error
}

// SelfTracer is implemented by storages that report their own round trips through a logger,
// the engine doesn't trace their fetches again
type SelfTracer interface {
	TracesRoundTrips() bool
}
