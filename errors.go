package assoc

import (
	"errors"

	"gorm.io/assoc/schema"
)

var (
	// ErrNotFound unknown entity type or relationship reference
	ErrNotFound = schema.ErrNotFound
	// ErrConfiguration invalid relationship definition, should fail startup validation
	ErrConfiguration = schema.ErrConfiguration
	// ErrAmbiguousJoin more than one foreign key path and no explicit override
	ErrAmbiguousJoin = schema.ErrAmbiguousJoin
	// ErrMultipleResults a one-cardinality relationship matched more than one row
	ErrMultipleResults = errors.New("multiple results for a single relationship")
	// ErrImmutableRelationship mutation attempted through a view-only relationship
	ErrImmutableRelationship = errors.New("relationship is view-only")
	// ErrTransientRecord record is not part of the graph and no save-update cascade applies
	ErrTransientRecord = errors.New("transient record")
	// ErrPrimaryKeyRequired primary keys required
	ErrPrimaryKeyRequired = errors.New("primary key required")
	// ErrInvalidValueOfLength invalid association values, length doesn't match
	ErrInvalidValueOfLength = errors.New("invalid association values, length doesn't match")
	// ErrDuplicatedKey a record with the same key is already in the graph
	ErrDuplicatedKey = errors.New("duplicated key not allowed")
	// ErrForeignKeyViolated storage rejected a write or delete still referenced by another row
	ErrForeignKeyViolated = errors.New("violates foreign key constraint")
)
