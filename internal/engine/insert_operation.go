package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"colDB/internal/logging"
	"colDB/internal/metrics"
	"colDB/internal/storage"
)

// InsertOperation is a compiled INSERT: a target table, the structure
// version it was compiled against and the queued rows. It can be executed
// many times; every execution checks out the table writer, verifies the
// version, binds, appends, commits and releases.
//
// An InsertOperation is not safe for concurrent Execute calls.
type InsertOperation struct {
	src              storage.WriterSource
	tableName        string
	structureVersion int64
	rows             []InsertRow
	method           insertMethod
	log              *slog.Logger
}

// NewInsertOperation creates an operation with no rows. structureVersion is
// the table version the rows were compiled against.
func NewInsertOperation(src storage.WriterSource, tableName string, structureVersion int64) *InsertOperation {
	op := &InsertOperation{
		src:              src,
		tableName:        tableName,
		structureVersion: structureVersion,
		log:              logging.Get(),
	}
	op.method.op = op
	return op
}

// AddInsertRow queues row. Rows are appended in the order they were added.
func (o *InsertOperation) AddInsertRow(row InsertRow) {
	o.rows = append(o.rows, row)
}

func (o *InsertOperation) TableName() string { return o.tableName }

func (o *InsertOperation) StructureVersion() int64 { return o.structureVersion }

// Rows returns the number of queued rows.
func (o *InsertOperation) Rows() int { return len(o.rows) }

// CreateMethod prepares the operation against its own writer source.
func (o *InsertOperation) CreateMethod(ctx context.Context, ec ExecutionContext) (InsertMethod, error) {
	return o.CreateMethodWith(ctx, ec, o.src)
}

// CreateMethodWith checks out the writer from src unless one is already
// held, verifies the table's structure version and binds every row. On any
// failure the writer is released before the error is returned.
func (o *InsertOperation) CreateMethodWith(ctx context.Context, ec ExecutionContext, src storage.WriterSource) (InsertMethod, error) {
	log := o.log.With("table", o.tableName, "query_id", ec.QueryID())

	if o.method.writer == nil {
		w, err := src.Writer(ctx, ec.SecurityContext(), o.tableName, "insert")
		if err != nil {
			return nil, fmt.Errorf("insert into %s: %w", o.tableName, err)
		}
		o.method.writer = w
		log.Debug("writer acquired", "writer", w.String())
	}

	if live := o.method.writer.StructureVersion(); live != o.structureVersion {
		o.release(log)
		log.Warn("stale insert rejected", "version", o.structureVersion, "live_version", live)
		return nil, fmt.Errorf("insert into %s: compiled at version %d, table is at %d: %w",
			o.tableName, o.structureVersion, live, ErrStaleSchema)
	}

	for i, row := range o.rows {
		if err := row.Bind(ec); err != nil {
			o.release(log)
			return nil, fmt.Errorf("insert into %s: %w", o.tableName, &BindError{Row: i, Err: err})
		}
	}
	return &o.method, nil
}

// Execute runs the whole batch as one commit and reports the affected rows.
func (o *InsertOperation) Execute(ctx context.Context, ec ExecutionContext) (OperationFuture, error) {
	future, err := o.execute(ctx, ec)
	metrics.InsertExecutions.WithLabelValues(outcome(err)).Inc()
	return future, err
}

func (o *InsertOperation) execute(ctx context.Context, ec ExecutionContext) (OperationFuture, error) {
	m, err := o.CreateMethod(ctx, ec)
	if err != nil {
		return nil, err
	}
	log := o.log.With("table", o.tableName, "query_id", ec.QueryID())
	defer o.release(log)

	n, err := m.Execute()
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", o.tableName, err)
	}
	if err := m.Commit(); err != nil {
		return nil, err
	}
	log.Debug("insert committed", "rows", n, "version", o.structureVersion)
	return newDoneFuture(int64(len(o.rows))), nil
}

func (o *InsertOperation) release(log *slog.Logger) {
	if err := o.method.Close(); err != nil {
		log.Warn("writer release failed", "error", err)
	}
}

func (o *InsertOperation) String() string {
	return fmt.Sprintf("InsertOperation(table=%s, version=%d, rows=%d)", o.tableName, o.structureVersion, len(o.rows))
}

func outcome(err error) string {
	var bindErr *BindError
	var appendErr *AppendError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStaleSchema):
		return "stale_schema"
	case errors.Is(err, storage.ErrWriterUnavailable):
		return "writer_unavailable"
	case errors.As(err, &bindErr):
		return "bind_error"
	case errors.As(err, &appendErr):
		return "append_error"
	default:
		return "error"
	}
}
