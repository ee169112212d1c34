package engine

import (
	"context"
	"fmt"

	"colDB/internal/sql"
)

// Result is the outcome of one executed statement. Columns and Rows are set
// for SELECT; Affected for INSERT.
type Result struct {
	Columns  []string
	Rows     []sql.Row
	Affected int64
}

// Execute takes a parsed SQL Statement and executes it using the engine.
func (e *DBEngine) Execute(ctx context.Context, ec ExecutionContext, stmt sql.Statement) (*Result, error) {
	if err := e.checkStarted(); err != nil {
		return nil, err
	}
	if ec == nil {
		return nil, fmt.Errorf("execute: nil execution context")
	}

	switch s := stmt.(type) {
	case *sql.CreateTableStmt:
		if sec := ec.SecurityContext(); sec != nil {
			if err := sec.AuthorizeWrite(s.TableName); err != nil {
				return nil, err
			}
		}
		return &Result{}, e.CreateTable(s.TableName, s.Columns)

	case *sql.AlterTableAddColumnStmt:
		return &Result{}, e.AddColumn(ctx, ec.SecurityContext(), s.TableName, s.Column)

	case *sql.InsertStmt:
		op, err := e.CompileInsert(s)
		if err != nil {
			return nil, err
		}
		future, err := op.Execute(ctx, ec)
		if err != nil {
			return nil, err
		}
		return &Result{Affected: future.AffectedRows()}, nil

	case *sql.SelectStmt:
		p, err := e.CompileSelect(s)
		if err != nil {
			return nil, err
		}
		defer p.Close()
		rows, err := p.Run(ctx)
		if err != nil {
			return nil, err
		}
		return &Result{Columns: p.Names(), Rows: rows}, nil

	default:
		return nil, fmt.Errorf("unsupported statement type %T", stmt)
	}
}

// ExecuteSQL parses and executes query.
func (e *DBEngine) ExecuteSQL(ctx context.Context, ec ExecutionContext, query string) (*Result, error) {
	stmt, err := sql.Parse(query)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, ec, stmt)
}
