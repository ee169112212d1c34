package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"colDB/internal/sql"
)

var (
	// ErrWriterUnavailable means another holder has the table's writer.
	ErrWriterUnavailable = errors.New("table writer unavailable")
	// ErrTableNotFound is returned for operations on unknown tables.
	ErrTableNotFound = errors.New("table does not exist")
	// ErrTableExists is returned by CreateTable for a duplicate name.
	ErrTableExists = errors.New("table already exists")
	// ErrPermissionDenied is returned when the security context forbids a write.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrWriterClosed is returned by a TableWriter after Close.
	ErrWriterClosed = errors.New("table writer is closed")
)

// RowError reports a row the storage layer rejected.
type RowError struct {
	Table  string
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("table %s, column %s: %v", e.Table, e.Column, e.Err)
	}
	return fmt.Sprintf("table %s: %v", e.Table, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// TableMetadata is a table's schema at a given structure version.
type TableMetadata struct {
	Name             string
	Columns          []sql.Column
	StructureVersion int64
}

// ColumnIndex returns the position of name, or -1. Column names are
// case-insensitive.
func (m TableMetadata) ColumnIndex(name string) int {
	for i, c := range m.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// ColumnNames returns the names of all columns in order.
func (m TableMetadata) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

// SecurityContext identifies who is asking and decides whether they may write.
type SecurityContext interface {
	Principal() string
	AuthorizeWrite(tableName string) error
}

type allowAll struct{ principal string }

func (a allowAll) Principal() string { return a.principal }
func (allowAll) AuthorizeWrite(string) error { return nil }

// AllowAll returns a context permitting every write.
func AllowAll(principal string) SecurityContext { return allowAll{principal: principal} }

type readOnly struct{ principal string }

func (r readOnly) Principal() string { return r.principal }

func (r readOnly) AuthorizeWrite(tableName string) error {
	return fmt.Errorf("%s may not write to %s: %w", r.principal, tableName, ErrPermissionDenied)
}

// ReadOnly returns a context that denies every write.
func ReadOnly(principal string) SecurityContext { return readOnly{principal: principal} }

// TableWriter is an exclusive write handle to one table. At most one live
// TableWriter exists per table; Close gives the table back to the source.
//
// Appended rows stay invisible to readers until Commit, which publishes the
// whole pending batch at once.
type TableWriter interface {
	TableName() string

	// StructureVersion is the table's live schema version.
	StructureVersion() int64
	Metadata() TableMetadata

	// Append buffers one full-width row in table column order.
	Append(row sql.Row) error
	Commit() error
	// Rollback discards rows appended since the last Commit.
	Rollback()
	// Close rolls back pending rows and releases the handle. Safe to repeat.
	Close() error

	String() string
}

// WriterSource grants exclusive table writers.
type WriterSource interface {
	// Writer checks out the writer for tableName. reason is a short tag
	// ("insert", "alter") recorded for diagnostics.
	Writer(ctx context.Context, sec SecurityContext, tableName, reason string) (TableWriter, error)
}

// Cursor iterates a committed snapshot of a table.
type Cursor interface {
	Next() bool
	Record() sql.Record
}

// Engine is a storage engine that manages tables and hands out writers.
//
// Different implementations are possible:
//   - in-memory columnar (memstore), optionally journaled
//   - remote/distributed in the future
type Engine interface {
	WriterSource

	// CreateTable creates a new empty table at structure version 1.
	CreateTable(name string, cols []sql.Column) error

	// AddColumn appends a column to a table and bumps its structure version.
	// It needs the table's writer, so it fails with ErrWriterUnavailable
	// while another writer is checked out.
	AddColumn(ctx context.Context, sec SecurityContext, tableName string, col sql.Column) error

	Metadata(tableName string) (TableMetadata, error)
	ListTables() []string

	// Reader returns a cursor over the rows committed so far.
	Reader(tableName string) (TableMetadata, Cursor, error)

	Close() error
}
