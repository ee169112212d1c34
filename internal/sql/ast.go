package sql

// Statement is the common interface for all SQL statements.
type Statement interface {
	stmtNode()
}

// CreateTableStmt represents a parsed CREATE TABLE statement.
type CreateTableStmt struct {
	TableName string
	Columns   []Column
}

// AlterTableAddColumnStmt represents ALTER TABLE t ADD COLUMN c TYPE.
// Executing it changes the table's structure version.
type AlterTableAddColumnStmt struct {
	TableName string
	Column    Column
}

// InsertStmt represents INSERT INTO t [(cols)] VALUES (...), (...).
// Each value is a constant or a bind-variable node.
type InsertStmt struct {
	TableName string
	Columns   []string
	Rows      [][]*ExpressionNode
}

// SelectStmt represents SELECT <columns> FROM t.
// A "*" item is kept as a literal node with token "*" and expanded by the
// compiler against the table schema.
type SelectStmt struct {
	TableName string
	Columns   []*QueryColumn
}

func (*CreateTableStmt) stmtNode() {}
func (*AlterTableAddColumnStmt) stmtNode() {}
func (*InsertStmt) stmtNode() {}
func (*SelectStmt) stmtNode() {}
