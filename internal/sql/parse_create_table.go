package sql

import (
	"fmt"
	"strings"
)

func parseCreateTable(query string) (Statement, error) {
	// At this point:
	// - query has been trimmed
	// - trailing ';' removed
	// - we already know it's some form of CREATE TABLE

	openIdx := strings.Index(query, "(")
	if openIdx == -1 {
		return nil, fmt.Errorf("CREATE TABLE: missing '('")
	}

	closeIdx := strings.LastIndex(query, ")")
	if closeIdx == -1 || closeIdx <= openIdx {
		return nil, fmt.Errorf("CREATE TABLE: missing or misplaced ')'")
	}

	// "head" contains: CREATE   TABLE   trades
	head := strings.TrimSpace(query[:openIdx])
	colsPart := strings.TrimSpace(query[openIdx+1 : closeIdx])
	if colsPart == "" {
		return nil, fmt.Errorf("CREATE TABLE: no column definitions")
	}

	headTokens := strings.Fields(head)
	if len(headTokens) != 3 {
		return nil, fmt.Errorf("CREATE TABLE: missing table name")
	}
	tableName := headTokens[2]

	colDefs := splitCommaSeparated(colsPart)
	if len(colDefs) == 0 {
		return nil, fmt.Errorf("CREATE TABLE: no valid columns")
	}

	columns := make([]Column, 0, len(colDefs))
	seen := make(map[string]bool, len(colDefs))
	for _, def := range colDefs {
		col, err := parseColumnDef(def)
		if err != nil {
			return nil, fmt.Errorf("CREATE TABLE: %w", err)
		}
		key := strings.ToLower(col.Name)
		if seen[key] {
			return nil, fmt.Errorf("CREATE TABLE: duplicate column %q", col.Name)
		}
		seen[key] = true
		columns = append(columns, col)
	}

	return &CreateTableStmt{
		TableName: tableName,
		Columns:   columns,
	}, nil
}

// parseColumnDef parses "name TYPE".
func parseColumnDef(def string) (Column, error) {
	parts := strings.Fields(def)
	if len(parts) != 2 {
		return Column{}, fmt.Errorf("invalid column definition: %q", def)
	}
	dt, err := parseDataType(parts[1])
	if err != nil {
		return Column{}, fmt.Errorf("%w in %q", err, def)
	}
	return Column{Name: parts[0], Type: dt}, nil
}

func parseDataType(s string) (DataType, error) {
	switch strings.ToUpper(s) {
	case "INT", "INTEGER", "LONG":
		return TypeInt, nil
	case "FLOAT", "DOUBLE", "REAL":
		return TypeDouble, nil
	case "STRING", "TEXT", "VARCHAR", "SYMBOL":
		return TypeString, nil
	case "BOOL", "BOOLEAN":
		return TypeBool, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", s)
	}
}
