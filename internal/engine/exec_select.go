package engine

import (
	"context"
	"fmt"

	"colDB/internal/function"
	"colDB/internal/sql"
	"colDB/internal/storage"
)

// Projection is a compiled SELECT list: one QueryColumn and one typed column
// accessor per output column.
//
// The QueryColumns are borrowed from a pool the engine reuses across compiles
// and stay valid until Close.
type Projection struct {
	store     storage.Engine
	table     string
	version   int64
	columns   []*sql.QueryColumn
	functions []function.Function
	pool      *sql.QueryColumnPool
	release   func(*sql.QueryColumnPool)
}

// CompileSelect expands "*" into the table's columns and binds every output
// column to an accessor for its type.
func (e *DBEngine) CompileSelect(stmt *sql.SelectStmt) (*Projection, error) {
	if err := e.checkStarted(); err != nil {
		return nil, err
	}

	meta, err := e.store.Metadata(stmt.TableName)
	if err != nil {
		return nil, fmt.Errorf("SELECT: %w", err)
	}

	p := &Projection{
		store:   e.store,
		table:   meta.Name,
		version: meta.StructureVersion,
		pool:    e.columnPools.Get().(*sql.QueryColumnPool),
		release: func(qp *sql.QueryColumnPool) { e.columnPools.Put(qp) },
	}

	for _, qc := range stmt.Columns {
		ast := qc.AST()
		if ast == nil {
			p.Close()
			return nil, fmt.Errorf("SELECT: column without expression")
		}

		if ast.Type == sql.ExprLiteral && ast.Token == "*" {
			for i, c := range meta.Columns {
				col := p.pool.Next().Of("", sql.LiteralNode(c.Name, ast.Position))
				if err := p.add(col, i, c.Type); err != nil {
					p.Close()
					return nil, err
				}
			}
			continue
		}

		if ast.Type != sql.ExprLiteral {
			p.Close()
			return nil, fmt.Errorf("SELECT: unsupported expression %s", ast)
		}
		idx := meta.ColumnIndex(ast.Token)
		if idx < 0 {
			p.Close()
			return nil, fmt.Errorf("SELECT: unknown column %q", ast.Token)
		}
		col := p.pool.Next().OfWildcard(qc.Alias(), ast, qc.IncludeIntoWildcard())
		if err := p.add(col, idx, meta.Columns[idx].Type); err != nil {
			p.Close()
			return nil, err
		}
	}

	e.log.Debug("select compiled", "table", p.table, "columns", len(p.columns))
	return p, nil
}

func (p *Projection) add(col *sql.QueryColumn, index int, t sql.DataType) error {
	f, err := function.ColumnOf(index, t)
	if err != nil {
		return fmt.Errorf("SELECT: column %q: %w", col.Name(), err)
	}
	p.columns = append(p.columns, col)
	p.functions = append(p.functions, f)
	return nil
}

// Columns returns the output columns in order.
func (p *Projection) Columns() []*sql.QueryColumn { return p.columns }

// StructureVersion is the table version the projection was compiled against.
func (p *Projection) StructureVersion() int64 { return p.version }

// Functions returns the accessor bound to each output column.
func (p *Projection) Functions() []function.Function { return p.functions }

// Names returns the output column names.
func (p *Projection) Names() []string {
	names := make([]string, len(p.columns))
	for i, c := range p.columns {
		names[i] = c.Name()
	}
	return names
}

// WildcardNames returns the names an enclosing "*" would expand to.
func (p *Projection) WildcardNames() []string {
	var names []string
	for _, c := range p.columns {
		if c.IncludeIntoWildcard() {
			names = append(names, c.Name())
		}
	}
	return names
}

// Run reads the committed rows of the table through the projection.
func (p *Projection) Run(ctx context.Context) ([]sql.Row, error) {
	_, cur, err := p.store.Reader(p.table)
	if err != nil {
		return nil, fmt.Errorf("SELECT: %w", err)
	}

	var out []sql.Row
	for n := 0; cur.Next(); n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec := cur.Record()
		row := make(sql.Row, len(p.functions))
		for i, f := range p.functions {
			row[i] = f.Eval(rec)
		}
		out = append(out, row)
	}
	return out, nil
}

// Close returns the borrowed QueryColumns and hands the pool back to the
// engine. Calling it again is a no-op.
func (p *Projection) Close() {
	if p.pool == nil {
		return
	}
	p.pool.Clear()
	p.release(p.pool)
	p.pool = nil
	p.columns = nil
	p.functions = nil
}
