package engine

import (
	"strings"

	"colDB/internal/function"
	"colDB/internal/sql"
	"colDB/internal/storage"
)

// InsertRow is one queued row of an insert operation.
type InsertRow interface {
	// Bind resolves the row's values for one execution.
	Bind(ec ExecutionContext) error
	// AppendTo builds the full-width row and appends it to w.
	AppendTo(w storage.TableWriter) error
	String() string
}

// valuesInsertRow is a VALUES (...) tuple: one function per listed column,
// placed at positions in a row of width cells. Cells no function targets
// are NULL.
type valuesInsertRow struct {
	functions []function.Function
	positions []int
	width     int
}

func newValuesInsertRow(functions []function.Function, positions []int, width int) *valuesInsertRow {
	return &valuesInsertRow{functions: functions, positions: positions, width: width}
}

func (r *valuesInsertRow) Bind(ec ExecutionContext) error {
	return function.InitAll(r.functions, ec.BindVariables())
}

func (r *valuesInsertRow) AppendTo(w storage.TableWriter) error {
	row := make(sql.Row, r.width)
	for i := range row {
		row[i] = sql.Null
	}
	for i, f := range r.functions {
		row[r.positions[i]] = f.Eval(nil)
	}
	return w.Append(row)
}

func (r *valuesInsertRow) String() string {
	var b strings.Builder
	b.WriteString("(")
	for i, f := range r.functions {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.String())
	}
	b.WriteString(")")
	return b.String()
}
