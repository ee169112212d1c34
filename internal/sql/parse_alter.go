package sql

import (
	"fmt"
	"strings"
)

// parseAlterTable parses:
//
//	ALTER TABLE trades ADD COLUMN venue STRING;
//
// The COLUMN keyword is optional.
func parseAlterTable(query string) (Statement, error) {
	toks := strings.Fields(query)
	if len(toks) < 5 {
		return nil, fmt.Errorf("ALTER TABLE: incomplete statement")
	}
	tableName := toks[2]
	if strings.ToUpper(toks[3]) != "ADD" {
		return nil, fmt.Errorf("ALTER TABLE: only ADD COLUMN is supported")
	}

	rest := toks[4:]
	if strings.ToUpper(rest[0]) == "COLUMN" {
		rest = rest[1:]
	}
	col, err := parseColumnDef(strings.Join(rest, " "))
	if err != nil {
		return nil, fmt.Errorf("ALTER TABLE: %w", err)
	}

	return &AlterTableAddColumnStmt{
		TableName: tableName,
		Column:    col,
	}, nil
}
