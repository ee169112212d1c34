package engine

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"colDB/internal/function"
	"colDB/internal/logging"
	"colDB/internal/sql"
	"colDB/internal/storage"
	"colDB/internal/storage/memstore"

	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	logging.Init(logging.Config{Level: "ERROR"})
	os.Exit(m.Run())
}

func newTestEngine(t *testing.T, opts ...memstore.Option) *DBEngine {
	t.Helper()
	eng := New(memstore.New(append([]memstore.Option{memstore.WithLogger(logging.Discard())}, opts...)...),
		WithLogger(logging.Discard()))
	if err := eng.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return eng
}

func mustExec(t *testing.T, eng *DBEngine, ec ExecutionContext, query string) *Result {
	t.Helper()
	res, err := eng.ExecuteSQL(context.Background(), ec, query)
	if err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return res
}

// TestEngineCreateInsertSelect checks the engine end-to-end using the
// in-memory storage engine.
func TestEngineCreateInsertSelect(t *testing.T) {
	eng := newTestEngine(t)
	ec := NewExecutionContext(storage.AllowAll("test"))

	// 1. Create table.
	mustExec(t, eng, ec, "CREATE TABLE trades (id INT, price DOUBLE, venue STRING, open BOOL)")

	// 2. Multi-row insert, one row with an INT price.
	res := mustExec(t, eng, ec, "INSERT INTO trades VALUES (1, 10.5, 'XLON', true), (2, 11, 'XNYS', false)")
	if res.Affected != 2 {
		t.Fatalf("expected 2 affected rows, got %d", res.Affected)
	}

	// 3. Column subset leaves the rest NULL.
	mustExec(t, eng, ec, "INSERT INTO trades (venue, id) VALUES ('XPAR', 3)")

	// 4. SELECT * expands to the table columns.
	res = mustExec(t, eng, ec, "SELECT * FROM trades")
	want := []string{"id", "price", "venue", "open"}
	if len(res.Columns) != len(want) {
		t.Fatalf("expected columns %v, got %v", want, res.Columns)
	}
	for i := range want {
		if res.Columns[i] != want[i] {
			t.Fatalf("column %d: expected %q, got %q", i, want[i], res.Columns[i])
		}
	}
	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(res.Rows))
	}
	if res.Rows[1][1].Type != sql.TypeDouble || res.Rows[1][1].F64 != 11 {
		t.Fatalf("expected INT price stored as DOUBLE 11, got %v", res.Rows[1][1])
	}
	if r := res.Rows[2]; r[0].I64 != 3 || r[2].S != "XPAR" || !r[1].IsNull() || !r[3].IsNull() {
		t.Fatalf("unexpected subset row: %v", r)
	}

	// 5. Aliased projection.
	res = mustExec(t, eng, ec, "SELECT venue AS v, id FROM trades")
	if res.Columns[0] != "v" || res.Columns[1] != "id" {
		t.Fatalf("unexpected projected columns: %v", res.Columns)
	}
	if res.Rows[0][0].S != "XLON" || res.Rows[0][1].I64 != 1 {
		t.Fatalf("unexpected projected row: %v", res.Rows[0])
	}
}

func TestEngineInsertWithBindVariables(t *testing.T) {
	eng := newTestEngine(t)
	ec := NewExecutionContext(storage.AllowAll("test"))
	mustExec(t, eng, ec, "CREATE TABLE t (id INT, name STRING)")

	stmt, err := sql.Parse("INSERT INTO t VALUES ($1, $2)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	op, err := eng.CompileInsert(stmt.(*sql.InsertStmt))
	if err != nil {
		t.Fatalf("CompileInsert failed: %v", err)
	}

	for i, name := range []string{"a", "b"} {
		ec.SetBindVariable(1, sql.IntValue(int64(i+1))).SetBindVariable(2, sql.StringValue(name))
		if _, err := op.Execute(context.Background(), ec); err != nil {
			t.Fatalf("Execute %d failed: %v", i, err)
		}
	}

	res := mustExec(t, eng, ec, "SELECT name FROM t")
	if len(res.Rows) != 2 || res.Rows[0][0].S != "a" || res.Rows[1][0].S != "b" {
		t.Fatalf("unexpected rows: %v", res.Rows)
	}

	// A bind value of the wrong type is rejected by storage and nothing lands.
	ec.SetBindVariable(1, sql.StringValue("oops"))
	_, err = op.Execute(context.Background(), ec)
	var appendErr *AppendError
	if !errors.As(err, &appendErr) {
		t.Fatalf("expected AppendError, got %v", err)
	}
	if res := mustExec(t, eng, ec, "SELECT id FROM t"); len(res.Rows) != 2 {
		t.Fatalf("failed insert must not be visible, got %d rows", len(res.Rows))
	}
}

func TestEngineCompileInsertErrors(t *testing.T) {
	eng := newTestEngine(t)
	ec := NewExecutionContext(storage.AllowAll("test"))
	mustExec(t, eng, ec, "CREATE TABLE t (id INT, name STRING)")

	for _, q := range []string{
		"INSERT INTO missing VALUES (1)",
		"INSERT INTO t VALUES (1)",
		"INSERT INTO t (id, nope) VALUES (1, 'a')",
		"INSERT INTO t (id, id) VALUES (1, 2)",
		"INSERT INTO t (id) VALUES (1), (2, 3)",
	} {
		if _, err := eng.ExecuteSQL(context.Background(), ec, q); err == nil {
			t.Fatalf("expected error for %q", q)
		}
	}
}

// TestEngineStaleSchemaThroughAlter runs the compiled-insert scenario
// against the real storage engine.
func TestEngineStaleSchemaThroughAlter(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)
	ec := NewExecutionContext(storage.AllowAll("test"))
	mustExec(t, eng, ec, "CREATE TABLE t (id INT)")

	stmt, _ := sql.Parse("INSERT INTO t VALUES (1), (2), (3)")
	op, err := eng.CompileInsert(stmt.(*sql.InsertStmt))
	if err != nil {
		t.Fatalf("CompileInsert failed: %v", err)
	}
	if op.StructureVersion() != 1 {
		t.Fatalf("expected frozen version 1, got %d", op.StructureVersion())
	}

	future, err := op.Execute(ctx, ec)
	if err != nil || future.AffectedRows() != 3 {
		t.Fatalf("first Execute: future=%v err=%v", future, err)
	}

	mustExec(t, eng, ec, "ALTER TABLE t ADD COLUMN note STRING")

	if _, err := op.Execute(ctx, ec); !errors.Is(err, ErrStaleSchema) {
		t.Fatalf("expected ErrStaleSchema, got %v", err)
	}

	// Writer was released: a fresh compile succeeds.
	res := mustExec(t, eng, ec, "INSERT INTO t VALUES (4, 'new')")
	if res.Affected != 1 {
		t.Fatalf("expected 1 affected, got %d", res.Affected)
	}
	res = mustExec(t, eng, ec, "SELECT * FROM t")
	if len(res.Rows) != 4 || !res.Rows[0][1].IsNull() || res.Rows[3][1].S != "new" {
		t.Fatalf("unexpected rows after alter: %v", res.Rows)
	}
}

func TestEngineAlterWhileWriterHeld(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)
	ec := NewExecutionContext(storage.AllowAll("test"))
	mustExec(t, eng, ec, "CREATE TABLE t (id INT)")

	stmt, _ := sql.Parse("INSERT INTO t VALUES (1)")
	op, _ := eng.CompileInsert(stmt.(*sql.InsertStmt))
	m, err := op.CreateMethod(ctx, ec)
	if err != nil {
		t.Fatalf("CreateMethod failed: %v", err)
	}

	err = eng.AddColumn(ctx, ec.SecurityContext(), "t", sql.Column{Name: "x", Type: sql.TypeInt})
	if !errors.Is(err, storage.ErrWriterUnavailable) {
		t.Fatalf("expected ErrWriterUnavailable while insert holds the writer, got %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := eng.AddColumn(ctx, ec.SecurityContext(), "t", sql.Column{Name: "x", Type: sql.TypeInt}); err != nil {
		t.Fatalf("AddColumn after release failed: %v", err)
	}
}

func TestEngineReadOnlyContext(t *testing.T) {
	eng := newTestEngine(t)
	admin := NewExecutionContext(storage.AllowAll("admin"))
	mustExec(t, eng, admin, "CREATE TABLE t (id INT)")

	reader := NewExecutionContext(storage.ReadOnly("reader"))
	if _, err := eng.ExecuteSQL(context.Background(), reader, "INSERT INTO t VALUES (1)"); !errors.Is(err, storage.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := eng.ExecuteSQL(context.Background(), reader, "CREATE TABLE u (id INT)"); !errors.Is(err, storage.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for CREATE, got %v", err)
	}
	if res := mustExec(t, eng, reader, "SELECT * FROM t"); len(res.Rows) != 0 {
		t.Fatalf("expected empty table")
	}
}

func TestEngineNotStarted(t *testing.T) {
	eng := New(memstore.New(memstore.WithLogger(logging.Discard())), WithLogger(logging.Discard()))
	ec := NewExecutionContext(storage.AllowAll("test"))
	if _, err := eng.ExecuteSQL(context.Background(), ec, "CREATE TABLE t (id INT)"); err == nil {
		t.Fatalf("expected error before Start")
	}
	if err := eng.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := eng.Start(); err == nil {
		t.Fatalf("expected error on second Start")
	}
}

func TestProjectionAccessors(t *testing.T) {
	eng := newTestEngine(t)
	ec := NewExecutionContext(storage.AllowAll("test"))
	mustExec(t, eng, ec, "CREATE TABLE t (id INT, price DOUBLE)")
	mustExec(t, eng, ec, "INSERT INTO t VALUES (1, NULL)")

	hidden := sql.NewQueryColumn().OfWildcard("", sql.LiteralNode("id", 0), false)
	p, err := eng.CompileSelect(&sql.SelectStmt{
		TableName: "t",
		Columns:   []*sql.QueryColumn{hidden, sql.NewQueryColumn().Of("p", sql.LiteralNode("price", 4))},
	})
	if err != nil {
		t.Fatalf("CompileSelect failed: %v", err)
	}
	defer p.Close()

	if names := p.WildcardNames(); len(names) != 1 || names[0] != "p" {
		t.Fatalf("expected wildcard names [p], got %v", names)
	}
	fns := p.Functions()
	if _, ok := fns[0].(*function.LongColumn); !ok {
		t.Fatalf("expected LongColumn for id, got %s", fns[0])
	}
	dc, ok := fns[1].(*function.DoubleColumn)
	if !ok || dc != function.NewDoubleColumn(1) {
		t.Fatalf("expected pooled DoubleColumn(1), got %s", fns[1])
	}

	rows, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(rows) != 1 || rows[0][0].I64 != 1 || !rows[0][1].IsNull() {
		t.Fatalf("unexpected rows: %v", rows)
	}

	_, cur, _ := eng.Store().Reader("t")
	cur.Next()
	if !math.IsNaN(dc.Double(cur.Record())) {
		t.Fatalf("expected NaN for NULL price")
	}

	if _, err := eng.ExecuteSQL(context.Background(), ec, "SELECT nope FROM t"); err == nil {
		t.Fatalf("expected unknown column error")
	}
}

func TestProjectionCloseReturnsPool(t *testing.T) {
	eng := newTestEngine(t)
	ec := NewExecutionContext(storage.AllowAll("test"))
	mustExec(t, eng, ec, "CREATE TABLE t (id INT, price DOUBLE)")

	stmt, err := sql.Parse("SELECT * FROM t")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// 1. Borrowed columns are live until Close.
	p, err := eng.CompileSelect(stmt.(*sql.SelectStmt))
	if err != nil {
		t.Fatalf("CompileSelect failed: %v", err)
	}
	cols := p.Columns()
	if len(cols) != 2 || cols[0].Name() != "id" {
		t.Fatalf("unexpected columns: %v", p.Names())
	}
	first := cols[0]

	// 2. Close clears them and is safe to repeat.
	p.Close()
	p.Close()
	if first.AST() != nil {
		t.Fatalf("expected borrowed column cleared after Close, got %s", first)
	}
	if p.Columns() != nil || p.Functions() != nil {
		t.Fatalf("expected closed projection to drop its columns")
	}

	// 3. A later compile still gets a working projection.
	p, err = eng.CompileSelect(stmt.(*sql.SelectStmt))
	if err != nil {
		t.Fatalf("second CompileSelect failed: %v", err)
	}
	defer p.Close()
	if names := p.Names(); len(names) != 2 || names[1] != "price" {
		t.Fatalf("unexpected columns after reuse: %v", names)
	}
}

func TestEngineColumnNamesIgnoreCase(t *testing.T) {
	eng := newTestEngine(t)
	ec := NewExecutionContext(storage.AllowAll("test"))
	mustExec(t, eng, ec, "CREATE TABLE t (Id INT, Price DOUBLE)")

	// 1. Insert and select resolve columns regardless of case.
	mustExec(t, eng, ec, "INSERT INTO t (ID, price) VALUES (1, 2.5)")
	res := mustExec(t, eng, ec, "SELECT id, PRICE FROM t")
	if len(res.Rows) != 1 || res.Rows[0][0].I64 != 1 || res.Rows[0][1].F64 != 2.5 {
		t.Fatalf("unexpected rows: %v", res.Rows)
	}

	// 2. The same column named twice in a different case is a duplicate.
	if _, err := eng.ExecuteSQL(context.Background(), ec, "INSERT INTO t (id, ID) VALUES (1, 2)"); err == nil {
		t.Fatalf("expected duplicate column error")
	}
	if _, err := eng.ExecuteSQL(context.Background(), ec, "ALTER TABLE t ADD COLUMN PRICE DOUBLE"); err == nil {
		t.Fatalf("expected duplicate column error from ALTER")
	}
}

// TestEngineConcurrentInserts runs independent compiled inserts against one
// table from many goroutines. The writer checkout serializes them.
func TestEngineConcurrentInserts(t *testing.T) {
	eng := newTestEngine(t, memstore.WithAcquireTimeout(5*time.Second))
	admin := NewExecutionContext(storage.AllowAll("admin"))
	mustExec(t, eng, admin, "CREATE TABLE t (id INT)")

	const workers = 8
	const perWorker = 25

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			ec := NewExecutionContext(storage.AllowAll("worker"))
			stmt, err := sql.Parse("INSERT INTO t VALUES ($1)")
			if err != nil {
				return err
			}
			op, err := eng.CompileInsert(stmt.(*sql.InsertStmt))
			if err != nil {
				return err
			}
			for i := 0; i < perWorker; i++ {
				ec.SetBindVariable(1, sql.IntValue(int64(w*perWorker+i)))
				if _, err := op.Execute(context.Background(), ec); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent insert failed: %v", err)
	}

	res := mustExec(t, eng, admin, "SELECT id FROM t")
	if len(res.Rows) != workers*perWorker {
		t.Fatalf("expected %d rows, got %d", workers*perWorker, len(res.Rows))
	}
	seen := make(map[int64]bool, len(res.Rows))
	for _, r := range res.Rows {
		seen[r[0].I64] = true
	}
	if len(seen) != workers*perWorker {
		t.Fatalf("expected %d distinct ids, got %d", workers*perWorker, len(seen))
	}
}
