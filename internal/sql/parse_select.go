package sql

import (
	"fmt"
	"strings"
)

// parseSelect parses a very simple SELECT statement.
// Supported forms (case-insensitive, flexible spaces):
//
//	SELECT * FROM trades;
//	SELECT id, price AS p FROM trades;
//	SELECT *, price px FROM trades;
func parseSelect(query string) (Statement, error) {
	// query is trimmed and has no trailing semicolon here.

	idxFrom := indexKeyword(query, "FROM")
	if idxFrom == -1 {
		return nil, fmt.Errorf("SELECT: FROM not found")
	}

	list := strings.TrimSpace(query[len("SELECT"):idxFrom])
	if list == "" {
		return nil, fmt.Errorf("SELECT: empty column list")
	}

	toks := strings.Fields(query[idxFrom+len("FROM"):])
	if len(toks) == 0 {
		return nil, fmt.Errorf("SELECT: missing table name")
	}
	if len(toks) > 1 {
		return nil, fmt.Errorf("SELECT: unexpected %q after table name", toks[1])
	}

	// Offsets are relative to the start of the select list.
	items := splitCommaSeparated(list)
	columns := make([]*QueryColumn, 0, len(items))
	offset := 0
	for _, item := range items {
		pos := strings.Index(list[offset:], item) + offset
		offset = pos + len(item)

		c, err := parseSelectItem(item, pos)
		if err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}

	return &SelectStmt{
		TableName: toks[0],
		Columns:   columns,
	}, nil
}

// parseSelectItem parses "expr", "expr AS alias" or "expr alias".
func parseSelectItem(item string, pos int) (*QueryColumn, error) {
	parts := strings.Fields(item)
	var expr, alias string
	switch {
	case len(parts) == 1:
		expr = parts[0]
	case len(parts) == 2:
		expr, alias = parts[0], parts[1]
	case len(parts) == 3 && strings.ToUpper(parts[1]) == "AS":
		expr, alias = parts[0], parts[2]
	default:
		return nil, fmt.Errorf("SELECT: cannot parse column %q", item)
	}

	if expr == "*" {
		if alias != "" {
			return nil, fmt.Errorf("SELECT: '*' cannot have an alias")
		}
		return NewQueryColumn().Of("", LiteralNode("*", pos)), nil
	}
	if !isIdentifier(expr) {
		return nil, fmt.Errorf("SELECT: only column references are supported, got %q", expr)
	}
	if alias != "" && !isIdentifier(alias) {
		return nil, fmt.Errorf("SELECT: invalid alias %q", alias)
	}
	return NewQueryColumn().Of(alias, LiteralNode(expr, pos)), nil
}

func isIdentifier(s string) bool {
	if s == "" || s[0] >= '0' && s[0] <= '9' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}
