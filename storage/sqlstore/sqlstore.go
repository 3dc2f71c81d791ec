// Package sqlstore reads and writes records through database/sql, rendering predicates as
// PostgreSQL statements.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gorm.io/assoc"
	"gorm.io/assoc/clause"
	"gorm.io/assoc/logger"
	"gorm.io/assoc/schema"
)

// ConnPool db conns pool interface, satisfied by *sql.DB, *sql.Conn and *sql.Tx
type ConnPool interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Store implements assoc.Storage on a SQL connection
type Store struct {
	ConnPool      ConnPool
	Catalog       schema.Catalog
	Logger        logger.Interface
	ErrTranslator ErrTranslator

	cacheStore sync.Map
}

// New creates a store, log may be nil
func New(conn ConnPool, catalog schema.Catalog, log logger.Interface) *Store {
	if log == nil {
		log = logger.Discard
	}
	return &Store{ConnPool: conn, Catalog: catalog, Logger: log, ErrTranslator: PostgresErrTranslator{}}
}

// TracesRoundTrips every statement is traced with its SQL, so the engine skips its own trace
func (s *Store) TracesRoundTrips() bool {
	return s.Logger != nil && s.Logger != logger.Discard
}

func (s *Store) table(entityType string) (*schema.Table, error) {
	table, err := schema.Parse(entityType, s.Catalog, &s.cacheStore)
	if err != nil {
		return nil, err
	}
	if len(table.PrimaryKeys) == 0 {
		return nil, fmt.Errorf("%w: %v", assoc.ErrPrimaryKeyRequired, entityType)
	}
	return table, nil
}

func newStatement() *clause.Statement {
	return &clause.Statement{
		Quote:       '"',
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
}

// Fetch runs SELECT for predicate
func (s *Store) Fetch(ctx context.Context, predicate assoc.Predicate) (records []*assoc.Record, err error) {
	table, err := s.table(predicate.Table)
	if err != nil {
		return nil, err
	}

	stmt := newStatement()
	stmt.WriteString("SELECT ")
	for idx, column := range table.Columns {
		if idx > 0 {
			stmt.WriteByte(',')
		}
		stmt.WriteQuoted(column.Name)
	}
	stmt.WriteString(" FROM ")
	stmt.WriteQuoted(table.Name)
	if predicate.Expression != nil {
		stmt.WriteString(" WHERE ")
		stmt.Build(predicate.Expression)
	}

	begin := time.Now()
	defer func() {
		s.Logger.Trace(ctx, begin, func() (string, int64) { return stmt.SQL.String(), int64(len(records)) }, err)
	}()

	rows, err := s.ConnPool.QueryContext(ctx, stmt.SQL.String(), stmt.Vars...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]interface{}, len(table.Columns))
	dest := make([]interface{}, len(table.Columns))
	for idx := range values {
		dest[idx] = &values[idx]
	}

	for rows.Next() {
		if err = rows.Scan(dest...); err != nil {
			return nil, err
		}

		record := assoc.NewRecord(table.Name, nil)
		for idx, column := range table.Columns {
			value, cerr := column.Coerce(values[idx])
			if cerr != nil {
				err = cerr
				return nil, err
			}
			record.Set(column.Name, value)
		}
		records = append(records, record)
	}

	err = rows.Err()
	return records, err
}

// Persist upserts record on its primary key
func (s *Store) Persist(ctx context.Context, record *assoc.Record) (err error) {
	table, err := s.table(record.Type)
	if err != nil {
		return err
	}

	if _, ok := record.Key(table); !ok {
		return fmt.Errorf("%w: %v", assoc.ErrPrimaryKeyRequired, record)
	}

	var columns, updates []string
	for _, column := range table.Columns {
		if _, ok := record.Values[column.Name]; ok {
			columns = append(columns, column.Name)
			if !column.PrimaryKey {
				updates = append(updates, column.Name)
			}
		}
	}

	stmt := newStatement()
	stmt.WriteString("INSERT INTO ")
	stmt.WriteQuoted(table.Name)
	stmt.WriteString(" (")
	for idx, name := range columns {
		if idx > 0 {
			stmt.WriteByte(',')
		}
		stmt.WriteQuoted(name)
	}
	stmt.WriteString(") VALUES (")
	for idx, name := range columns {
		if idx > 0 {
			stmt.WriteByte(',')
		}
		stmt.AddVar(stmt, record.Get(name))
	}
	stmt.WriteString(") ON CONFLICT (")
	for idx, name := range table.PrimaryKeys {
		if idx > 0 {
			stmt.WriteByte(',')
		}
		stmt.WriteQuoted(name)
	}
	stmt.WriteByte(')')

	if len(updates) == 0 {
		stmt.WriteString(" DO NOTHING")
	} else {
		stmt.WriteString(" DO UPDATE SET ")
		for idx, name := range updates {
			if idx > 0 {
				stmt.WriteByte(',')
			}
			stmt.WriteQuoted(name)
			stmt.WriteByte('=')
			stmt.WriteQuoted(clause.Column{Table: "excluded", Name: name})
		}
	}

	return s.exec(ctx, stmt)
}

// Delete deletes record by primary key
func (s *Store) Delete(ctx context.Context, record *assoc.Record) error {
	table, err := s.table(record.Type)
	if err != nil {
		return err
	}

	exprs := make([]clause.Expression, 0, len(table.PrimaryKeys))
	for _, name := range table.PrimaryKeys {
		value := record.Get(name)
		if value == nil {
			return fmt.Errorf("%w: %v", assoc.ErrPrimaryKeyRequired, record)
		}
		exprs = append(exprs, clause.Eq{Column: clause.Column{Table: table.Name, Name: name}, Value: value})
	}

	stmt := newStatement()
	stmt.WriteString("DELETE FROM ")
	stmt.WriteQuoted(table.Name)
	stmt.WriteString(" WHERE ")
	stmt.Build(clause.And(exprs...))

	return s.exec(ctx, stmt)
}

func (s *Store) exec(ctx context.Context, stmt *clause.Statement) (err error) {
	var rowsAffected int64
	begin := time.Now()
	defer func() {
		s.Logger.Trace(ctx, begin, func() (string, int64) { return stmt.SQL.String(), rowsAffected }, err)
	}()

	result, err := s.ConnPool.ExecContext(ctx, stmt.SQL.String(), stmt.Vars...)
	if err != nil {
		if s.ErrTranslator != nil {
			err = s.ErrTranslator.Translate(err)
		}
		return err
	}
	rowsAffected, _ = result.RowsAffected()
	return nil
}

var (
	_ assoc.Storage    = (*Store)(nil)
	_ assoc.SelfTracer = (*Store)(nil)
)

