package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"colDB/internal/function"
	"colDB/internal/sql"
	"colDB/internal/storage"
)

// fakeSource is a WriterSource for one table that records everything the
// insert path does to its writer.
type fakeSource struct {
	mu        sync.Mutex
	table     string
	version   int64
	held      bool
	err       error // returned by Writer when set
	rejectID  int64 // Append fails for a row whose first cell is this id
	commitErr error // returned by Commit when set
	checkouts int
	commits   int
	closes    int
	appends   []int64 // ids in append order
	committed []int64
}

func newFakeSource(table string, version int64) *fakeSource {
	return &fakeSource{table: table, version: version, rejectID: -1}
}

func (s *fakeSource) Writer(_ context.Context, _ storage.SecurityContext, tableName, _ string) (storage.TableWriter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if tableName != s.table {
		return nil, storage.ErrTableNotFound
	}
	if s.held {
		return nil, storage.ErrWriterUnavailable
	}
	s.held = true
	s.checkouts++
	return &fakeWriter{src: s}, nil
}

func (s *fakeSource) setVersion(v int64) {
	s.mu.Lock()
	s.version = v
	s.mu.Unlock()
}

type fakeWriter struct {
	src     *fakeSource
	pending []int64
	closed  bool
}

func (w *fakeWriter) TableName() string { return w.src.table }

func (w *fakeWriter) StructureVersion() int64 {
	w.src.mu.Lock()
	defer w.src.mu.Unlock()
	return w.src.version
}

func (w *fakeWriter) Metadata() storage.TableMetadata {
	return storage.TableMetadata{Name: w.src.table, StructureVersion: w.StructureVersion()}
}

func (w *fakeWriter) Append(row sql.Row) error {
	w.src.mu.Lock()
	defer w.src.mu.Unlock()
	if w.closed {
		return storage.ErrWriterClosed
	}
	id := row[0].I64
	if id == w.src.rejectID {
		return &storage.RowError{Table: w.src.table, Column: "id", Err: fmt.Errorf("rejected id %d", id)}
	}
	w.src.appends = append(w.src.appends, id)
	w.pending = append(w.pending, id)
	return nil
}

func (w *fakeWriter) Commit() error {
	w.src.mu.Lock()
	defer w.src.mu.Unlock()
	w.src.commits++
	if w.src.commitErr != nil {
		return w.src.commitErr
	}
	w.src.committed = append(w.src.committed, w.pending...)
	w.pending = nil
	return nil
}

func (w *fakeWriter) Rollback() { w.pending = nil }

func (w *fakeWriter) Close() error {
	w.src.mu.Lock()
	defer w.src.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.pending = nil
	w.src.held = false
	w.src.closes++
	return nil
}

func (w *fakeWriter) String() string { return "fakeWriter(" + w.src.table + ")" }

// idRow is a one-column row holding a constant id.
func idRow(id int64) InsertRow {
	return newValuesInsertRow([]function.Function{function.ConstantOf(sql.IntValue(id))}, []int{0}, 1)
}

func newOp(src *fakeSource, version int64, ids ...int64) *InsertOperation {
	op := NewInsertOperation(src, src.table, version)
	for _, id := range ids {
		op.AddInsertRow(idRow(id))
	}
	return op
}

// TestInsertOperation_StaleSchemaAfterVersionBump compiles once against
// version 5, executes, bumps the table to 6 and executes again.
func TestInsertOperation_StaleSchemaAfterVersionBump(t *testing.T) {
	ctx := context.Background()
	ec := NewExecutionContext(storage.AllowAll("test"))
	src := newFakeSource("t", 5)
	op := newOp(src, 5, 1, 2, 3)

	// 1. Matching version: all rows appended in order, one commit, released.
	future, err := op.Execute(ctx, ec)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if future.AffectedRows() != 3 || future.InstanceID() != DoneInstanceID || !future.Done() {
		t.Fatalf("unexpected future: %s", future)
	}
	if fmt.Sprint(src.appends) != "[1 2 3]" || fmt.Sprint(src.committed) != "[1 2 3]" {
		t.Fatalf("expected rows [1 2 3] appended and committed, got %v / %v", src.appends, src.committed)
	}
	if src.commits != 1 || src.held || src.closes != 1 {
		t.Fatalf("expected one commit and writer released, got commits=%d held=%v closes=%d", src.commits, src.held, src.closes)
	}

	// 2. Schema change, then the same compiled operation again.
	src.setVersion(6)
	_, err = op.Execute(ctx, ec)
	if !errors.Is(err, ErrStaleSchema) {
		t.Fatalf("expected ErrStaleSchema, got %v", err)
	}
	if len(src.appends) != 3 || src.commits != 1 {
		t.Fatalf("stale execution must not append or commit, got appends=%v commits=%d", src.appends, src.commits)
	}
	if src.held || src.checkouts != 2 || src.closes != 2 {
		t.Fatalf("expected writer checked out and released again, got held=%v checkouts=%d closes=%d", src.held, src.checkouts, src.closes)
	}
}

func TestInsertOperation_HeldWriterIsRevalidated(t *testing.T) {
	ctx := context.Background()
	ec := NewExecutionContext(storage.AllowAll("test"))
	src := newFakeSource("t", 1)
	op := newOp(src, 1, 7)

	// Leave the method open so the writer stays held.
	if _, err := op.CreateMethod(ctx, ec); err != nil {
		t.Fatalf("CreateMethod failed: %v", err)
	}
	src.setVersion(2)

	if _, err := op.CreateMethod(ctx, ec); !errors.Is(err, ErrStaleSchema) {
		t.Fatalf("expected ErrStaleSchema on held writer, got %v", err)
	}
	if src.checkouts != 1 || src.held {
		t.Fatalf("held writer must be reused then released, got checkouts=%d held=%v", src.checkouts, src.held)
	}
}

func TestInsertMethod_PopWriterTransfersOwnership(t *testing.T) {
	ctx := context.Background()
	ec := NewExecutionContext(storage.AllowAll("test"))
	src := newFakeSource("t", 1)
	op := newOp(src, 1, 1, 2)

	m, err := op.CreateMethod(ctx, ec)
	if err != nil {
		t.Fatalf("CreateMethod failed: %v", err)
	}
	if n, err := m.Execute(); err != nil || n != 2 {
		t.Fatalf("Execute: n=%d err=%v", n, err)
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	w := m.PopWriter()
	if w == nil {
		t.Fatalf("expected a writer from PopWriter")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close after pop failed: %v", err)
	}
	if src.closes != 0 || !src.held {
		t.Fatalf("Close after PopWriter must not release the popped writer")
	}
	if m.PopWriter() != nil {
		t.Fatalf("second PopWriter must return nil")
	}

	// The caller keeps writing under the popped handle.
	if err := w.Append(sql.Row{sql.IntValue(3)}); err != nil {
		t.Fatalf("Append on popped writer failed: %v", err)
	}
	w.Commit()
	w.Close()
	if fmt.Sprint(src.committed) != "[1 2 3]" || src.held {
		t.Fatalf("unexpected state after popped writer use: committed=%v held=%v", src.committed, src.held)
	}
}

func TestInsertMethod_CloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ec := NewExecutionContext(storage.AllowAll("test"))
	src := newFakeSource("t", 1)
	op := newOp(src, 1, 1)

	// Nothing acquired yet.
	if err := op.method.Close(); err != nil {
		t.Fatalf("Close without writer failed: %v", err)
	}

	if _, err := op.Execute(ctx, ec); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if err := op.method.Close(); err != nil {
		t.Fatalf("Close after Execute failed: %v", err)
	}
	if err := op.method.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if src.closes != 1 {
		t.Fatalf("expected exactly one release, got %d", src.closes)
	}
}

func TestInsertOperation_BindFailureAppendsNothing(t *testing.T) {
	ctx := context.Background()
	ec := NewExecutionContext(storage.AllowAll("test"))
	src := newFakeSource("t", 1)

	op := NewInsertOperation(src, "t", 1)
	op.AddInsertRow(idRow(1))
	op.AddInsertRow(newValuesInsertRow([]function.Function{function.NewBindVariable(1)}, []int{0}, 1))

	_, err := op.Execute(ctx, ec)
	var bindErr *BindError
	if !errors.As(err, &bindErr) || bindErr.Row != 1 {
		t.Fatalf("expected BindError for row 1, got %v", err)
	}
	if len(src.appends) != 0 || src.commits != 0 || src.held {
		t.Fatalf("bind failure must not append or commit and must release, got appends=%v commits=%d held=%v",
			src.appends, src.commits, src.held)
	}

	// Same operation succeeds once $1 is provided.
	ec.SetBindVariable(1, sql.IntValue(42))
	future, err := op.Execute(ctx, ec)
	if err != nil {
		t.Fatalf("Execute with bind variable failed: %v", err)
	}
	if future.AffectedRows() != 2 || fmt.Sprint(src.committed) != "[1 42]" {
		t.Fatalf("unexpected result: affected=%d committed=%v", future.AffectedRows(), src.committed)
	}
}

func TestInsertOperation_AppendFailureNeverCommits(t *testing.T) {
	ctx := context.Background()
	ec := NewExecutionContext(storage.AllowAll("test"))
	src := newFakeSource("t", 1)
	src.rejectID = 2
	op := newOp(src, 1, 1, 2, 3)

	_, err := op.Execute(ctx, ec)
	var appendErr *AppendError
	if !errors.As(err, &appendErr) || appendErr.Row != 1 {
		t.Fatalf("expected AppendError for row 1, got %v", err)
	}
	var rowErr *storage.RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected the storage RowError to be wrapped, got %v", err)
	}
	if fmt.Sprint(src.appends) != "[1]" {
		t.Fatalf("rows after the failing one must not be appended, got %v", src.appends)
	}
	if src.commits != 0 || len(src.committed) != 0 || src.held {
		t.Fatalf("append failure must not commit and must release, got commits=%d held=%v", src.commits, src.held)
	}
}

func TestInsertOperation_CommitFailureReleasesWriter(t *testing.T) {
	ctx := context.Background()
	ec := NewExecutionContext(storage.AllowAll("test"))
	src := newFakeSource("t", 1)
	errDisk := errors.New("disk full")
	src.commitErr = errDisk
	op := newOp(src, 1, 1, 2)

	// 1. The commit error surfaces and nothing becomes visible.
	future, err := op.Execute(ctx, ec)
	if !errors.Is(err, errDisk) || future != nil {
		t.Fatalf("expected commit error and no future, got %v, %v", future, err)
	}
	if outcome(err) != "error" {
		t.Fatalf("unexpected outcome label %q", outcome(err))
	}
	if len(src.committed) != 0 || src.held || src.closes != 1 {
		t.Fatalf("failed commit must publish nothing and release once, got committed=%v held=%v closes=%d",
			src.committed, src.held, src.closes)
	}

	// 2. The same operation succeeds once the storage recovers.
	src.commitErr = nil
	if _, err := op.Execute(ctx, ec); err != nil {
		t.Fatalf("Execute after recovery failed: %v", err)
	}
	if fmt.Sprint(src.committed) != "[1 2]" || src.checkouts != 2 || src.held {
		t.Fatalf("unexpected state after retry: committed=%v checkouts=%d held=%v", src.committed, src.checkouts, src.held)
	}
}

func TestInsertOperation_WriterUnavailable(t *testing.T) {
	ctx := context.Background()
	ec := NewExecutionContext(storage.AllowAll("test"))
	src := newFakeSource("t", 1)
	src.err = fmt.Errorf("busy: %w", storage.ErrWriterUnavailable)
	op := newOp(src, 1, 1)

	if _, err := op.Execute(ctx, ec); !errors.Is(err, storage.ErrWriterUnavailable) {
		t.Fatalf("expected ErrWriterUnavailable, got %v", err)
	}
	if outcome(fmt.Errorf("x: %w", storage.ErrWriterUnavailable)) != "writer_unavailable" {
		t.Fatalf("unexpected outcome label")
	}
}

func TestInsertOperation_CreateMethodWithOtherSource(t *testing.T) {
	ctx := context.Background()
	ec := NewExecutionContext(storage.AllowAll("test"))
	own := newFakeSource("t", 1)
	other := newFakeSource("t", 1)
	op := newOp(own, 1, 5)

	m, err := op.CreateMethodWith(ctx, ec, other)
	if err != nil {
		t.Fatalf("CreateMethodWith failed: %v", err)
	}
	defer m.Close()
	if own.checkouts != 0 || other.checkouts != 1 {
		t.Fatalf("expected checkout from the given source, got own=%d other=%d", own.checkouts, other.checkouts)
	}
}

func TestInsertOperation_Strings(t *testing.T) {
	src := newFakeSource("trades", 4)
	op := newOp(src, 4, 1, 2)
	if got := op.String(); got != "InsertOperation(table=trades, version=4, rows=2)" {
		t.Fatalf("unexpected String: %q", got)
	}
	if op.TableName() != "trades" || op.StructureVersion() != 4 || op.Rows() != 2 {
		t.Fatalf("unexpected accessors")
	}
	if got := newDoneFuture(2).String(); !strings.Contains(got, "instance=-3") || !strings.Contains(got, "affected=2") {
		t.Fatalf("unexpected future String: %q", got)
	}
	row := newValuesInsertRow([]function.Function{
		function.ConstantOf(sql.IntValue(1)),
		function.NewBindVariable(2),
		function.ConstantOf(sql.StringValue("x")),
	}, []int{0, 1, 2}, 3)
	if got := row.String(); got != "(1, $2, 'x')" {
		t.Fatalf("unexpected row String: %q", got)
	}
}
