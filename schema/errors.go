package schema

import "errors"

var (
	// ErrNotFound unknown entity type or relationship reference
	ErrNotFound = errors.New("not found")
	// ErrConfiguration invalid relationship definition or schema data
	ErrConfiguration = errors.New("invalid relationship configuration")
	// ErrAmbiguousJoin more than one foreign key path joins two types and no override was given
	ErrAmbiguousJoin = errors.New("ambiguous join")
)
