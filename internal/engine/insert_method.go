package engine

import (
	"fmt"

	"colDB/internal/storage"
)

// InsertMethod is a bound insert ready to run against a checked-out writer.
// Close must be called on every path; it releases the writer unless
// PopWriter took it first.
type InsertMethod interface {
	// Execute appends every queued row in order and returns the count.
	Execute() (int64, error)
	Commit() error
	// PopWriter hands the live writer to the caller without closing it.
	PopWriter() storage.TableWriter
	Close() error
}

// insertMethod is owned by its InsertOperation and reused across executions.
type insertMethod struct {
	op     *InsertOperation
	writer storage.TableWriter
}

func (m *insertMethod) Execute() (int64, error) {
	if m.writer == nil {
		return 0, fmt.Errorf("insert into %s: no writer held", m.op.tableName)
	}
	for i, row := range m.op.rows {
		if err := row.AppendTo(m.writer); err != nil {
			return int64(i), &AppendError{Row: i, Err: err}
		}
	}
	return int64(len(m.op.rows)), nil
}

func (m *insertMethod) Commit() error {
	if m.writer == nil {
		return fmt.Errorf("insert into %s: no writer held", m.op.tableName)
	}
	if err := m.writer.Commit(); err != nil {
		return fmt.Errorf("insert into %s: commit: %w", m.op.tableName, err)
	}
	return nil
}

func (m *insertMethod) PopWriter() storage.TableWriter {
	w := m.writer
	m.writer = nil
	return w
}

// Close releases the writer. Safe to repeat and safe when nothing is held.
func (m *insertMethod) Close() error {
	if m.writer == nil {
		return nil
	}
	w := m.writer
	m.writer = nil
	if err := w.Close(); err != nil {
		return fmt.Errorf("insert into %s: release writer: %w", m.op.tableName, err)
	}
	return nil
}

func (m *insertMethod) String() string {
	if m.writer == nil {
		return "InsertMethod(" + m.op.tableName + ", idle)"
	}
	return "InsertMethod(" + m.writer.String() + ")"
}
