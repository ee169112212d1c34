package sql

import (
	"fmt"
	"strings"
)

// parseInsert parses an INSERT INTO ... VALUES statement.
// Example supported syntax:
//
//	INSERT INTO trades VALUES (1, 'BTC', 101.5);
//	INSERT INTO trades (id, price) VALUES (1, 101.5), (2, $1);
func parseInsert(query string) (Statement, error) {
	// At this point:
	// - query is trimmed
	// - trailing ';' removed

	idxInto := indexKeyword(query, "INTO")
	if idxInto == -1 {
		return nil, fmt.Errorf("INSERT: missing INTO")
	}
	afterInto := strings.TrimSpace(query[idxInto+len("INTO"):])

	idxValues := indexKeyword(afterInto, "VALUES")
	if idxValues == -1 {
		return nil, fmt.Errorf("INSERT: missing VALUES")
	}

	target := strings.TrimSpace(afterInto[:idxValues])
	rest := strings.TrimSpace(afterInto[idxValues+len("VALUES"):])

	tableName := target
	var columns []string
	if open := strings.Index(target, "("); open != -1 {
		tableName = strings.TrimSpace(target[:open])
		closeIdx := matchingParen(target, open)
		if closeIdx == -1 || strings.TrimSpace(target[closeIdx+1:]) != "" {
			return nil, fmt.Errorf("INSERT: malformed column list")
		}
		columns = splitCommaSeparated(target[open+1 : closeIdx])
		if len(columns) == 0 {
			return nil, fmt.Errorf("INSERT: empty column list")
		}
	}
	if tableName == "" || strings.ContainsAny(tableName, " \t") {
		return nil, fmt.Errorf("INSERT: missing table name")
	}
	if rest == "" {
		return nil, fmt.Errorf("INSERT: missing VALUES list")
	}

	var rows [][]*ExpressionNode
	pos := 0
	for {
		rest = strings.TrimSpace(rest)
		if !strings.HasPrefix(rest, "(") {
			return nil, fmt.Errorf("INSERT: expected '(' in VALUES")
		}
		closeIdx := matchingParen(rest, 0)
		if closeIdx == -1 {
			return nil, fmt.Errorf("INSERT: missing closing ')'")
		}

		rawVals := splitCommaSeparated(rest[1:closeIdx])
		if len(rawVals) == 0 {
			return nil, fmt.Errorf("INSERT: empty VALUES list")
		}
		row := make([]*ExpressionNode, 0, len(rawVals))
		for _, rv := range rawVals {
			n, err := parseValueExpr(rv, pos)
			if err != nil {
				return nil, fmt.Errorf("INSERT: invalid value %q: %w", rv, err)
			}
			row = append(row, n)
			pos++
		}
		rows = append(rows, row)

		rest = strings.TrimSpace(rest[closeIdx+1:])
		if rest == "" {
			break
		}
		if !strings.HasPrefix(rest, ",") {
			return nil, fmt.Errorf("INSERT: expected ',' between VALUES rows")
		}
		rest = rest[1:]
	}

	return &InsertStmt{
		TableName: tableName,
		Columns:   columns,
		Rows:      rows,
	}, nil
}
