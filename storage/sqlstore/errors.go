package sqlstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/assoc"
)

// ErrTranslator maps driver errors onto the engine's errors
type ErrTranslator interface {
	Translate(err error) error
}

// SQLSTATE classes the engine distinguishes
var sqlStates = map[string]error{
	"23505": assoc.ErrDuplicatedKey,
	"23503": assoc.ErrForeignKeyViolated,
}

// PostgresErrTranslator recognizes pgx errors through SQLState() and pq style errors through
// their exported Code field
type PostgresErrTranslator struct{}

func (PostgresErrTranslator) Translate(err error) error {
	code, message := sqlState(err)
	if target, ok := sqlStates[code]; ok {
		return fmt.Errorf("%w: %s", target, message)
	}
	return err
}

func sqlState(err error) (code, message string) {
	var stater interface{ SQLState() string }
	if errors.As(err, &stater) {
		return stater.SQLState(), err.Error()
	}

	// drivers without the method still marshal their exported fields
	var fields struct {
		Code    string
		Message string
	}
	if data, marshalErr := json.Marshal(err); marshalErr == nil && json.Unmarshal(data, &fields) == nil {
		return fields.Code, fields.Message
	}
	return "", ""
}
