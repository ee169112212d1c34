package sql

import (
	"fmt"
	"strings"
)

// Parse parses a single SQL statement string into an AST Statement.
// Supported: CREATE TABLE, ALTER TABLE ... ADD COLUMN, INSERT INTO, SELECT.
func Parse(query string) (Statement, error) {
	// Trim leading & trailing whitespace
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty query")
	}

	// Remove trailing semicolon if present
	if strings.HasSuffix(q, ";") {
		q = strings.TrimSpace(q[:len(q)-1])
	}

	tokens := strings.Fields(strings.ToUpper(q))
	if len(tokens) == 0 {
		return nil, fmt.Errorf("invalid SQL statement")
	}

	switch tokens[0] {
	case "CREATE":
		if len(tokens) >= 2 && tokens[1] == "TABLE" {
			return parseCreateTable(q)
		}
	case "ALTER":
		if len(tokens) >= 2 && tokens[1] == "TABLE" {
			return parseAlterTable(q)
		}
	case "INSERT":
		if len(tokens) >= 2 && tokens[1] == "INTO" {
			return parseInsert(q)
		}
	case "SELECT":
		return parseSelect(q)
	}

	return nil, fmt.Errorf("unsupported statement (supported: CREATE TABLE, ALTER TABLE, INSERT, SELECT)")
}
