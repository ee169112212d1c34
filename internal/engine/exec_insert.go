package engine

import (
	"fmt"

	"colDB/internal/function"
	"colDB/internal/sql"
)

// CompileInsert resolves stmt against the table's current schema and
// freezes its structure version. Columns left out of the column list are
// inserted as NULL.
func (e *DBEngine) CompileInsert(stmt *sql.InsertStmt) (*InsertOperation, error) {
	if err := e.checkStarted(); err != nil {
		return nil, err
	}

	meta, err := e.store.Metadata(stmt.TableName)
	if err != nil {
		return nil, fmt.Errorf("INSERT: %w", err)
	}

	// Map the column list to table positions.
	var positions []int
	if len(stmt.Columns) == 0 {
		positions = make([]int, len(meta.Columns))
		for i := range positions {
			positions[i] = i
		}
	} else {
		seen := make([]bool, len(meta.Columns))
		positions = make([]int, len(stmt.Columns))
		for i, name := range stmt.Columns {
			pos := meta.ColumnIndex(name)
			if pos < 0 {
				return nil, fmt.Errorf("INSERT: unknown column %q", name)
			}
			if seen[pos] {
				return nil, fmt.Errorf("INSERT: duplicate column %q in column list", name)
			}
			seen[pos] = true
			positions[i] = pos
		}
	}

	op := NewInsertOperation(e.store, meta.Name, meta.StructureVersion)
	op.log = e.log

	for r, values := range stmt.Rows {
		if len(values) != len(positions) {
			return nil, fmt.Errorf("INSERT: row %d has %d values, expected %d", r, len(values), len(positions))
		}
		fns := make([]function.Function, len(values))
		for i, node := range values {
			f, err := compileValue(node)
			if err != nil {
				return nil, fmt.Errorf("INSERT: row %d, column %q: %w", r, meta.Columns[positions[i]].Name, err)
			}
			fns[i] = f
		}
		op.AddInsertRow(newValuesInsertRow(fns, positions, len(meta.Columns)))
	}

	return op, nil
}

// compileValue turns a VALUES item into a constant or a bind variable.
func compileValue(node *sql.ExpressionNode) (function.Function, error) {
	switch node.Type {
	case sql.ExprConstant:
		v, err := sql.ParseLiteral(node.Token)
		if err != nil {
			return nil, err
		}
		return function.ConstantOf(v), nil
	case sql.ExprBindVariable:
		idx, err := sql.BindVariableIndex(node.Token)
		if err != nil {
			return nil, err
		}
		return function.NewBindVariable(idx), nil
	default:
		return nil, fmt.Errorf("unsupported value expression %s", node)
	}
}
