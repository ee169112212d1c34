package sql

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// QueryColumn is one item of a SELECT list: an expression with an optional
// alias. An empty alias means the column has none.
//
// A QueryColumn is reusable: Clear empties it and Of repopulates it, which
// lets the compiler keep columns in a QueryColumnPool instead of allocating
// per query.
type QueryColumn struct {
	alias               string
	ast                 *ExpressionNode
	includeIntoWildcard bool
}

// NewQueryColumn returns an empty column.
func NewQueryColumn() *QueryColumn {
	return &QueryColumn{includeIntoWildcard: true}
}

// Clear resets the column to its empty state.
func (c *QueryColumn) Clear() {
	c.alias = ""
	c.ast = nil
	c.includeIntoWildcard = true
}

// Of sets alias and expression. The column is included into wildcard expansion.
func (c *QueryColumn) Of(alias string, ast *ExpressionNode) *QueryColumn {
	return c.OfWildcard(alias, ast, true)
}

// OfWildcard sets all three fields at once.
func (c *QueryColumn) OfWildcard(alias string, ast *ExpressionNode, includeIntoWildcard bool) *QueryColumn {
	c.alias = alias
	c.ast = ast
	c.includeIntoWildcard = includeIntoWildcard
	return c
}

func (c *QueryColumn) Alias() string { return c.alias }
func (c *QueryColumn) AST() *ExpressionNode { return c.ast }
func (c *QueryColumn) IncludeIntoWildcard() bool { return c.includeIntoWildcard }

// Name returns the alias when set, otherwise the expression's token.
// Calling Name on a column with neither is a programming error.
func (c *QueryColumn) Name() string {
	if c.alias != "" {
		return c.alias
	}
	if c.ast == nil {
		panic("sql: QueryColumn.Name called before an expression was assigned")
	}
	return c.ast.Token
}

// Equal reports whether alias, expression and wildcard flag all match.
func (c *QueryColumn) Equal(o *QueryColumn) bool {
	if c == o {
		return true
	}
	if c == nil || o == nil {
		return false
	}
	return c.includeIntoWildcard == o.includeIntoWildcard &&
		c.alias == o.alias &&
		c.ast.Equal(o.ast)
}

// Hash is consistent with Equal.
func (c *QueryColumn) Hash() uint64 {
	var buf [9]byte
	binary.LittleEndian.PutUint64(buf[:8], c.ast.Hash())
	if c.includeIntoWildcard {
		buf[8] = 1
	}
	d := xxhash.New()
	_, _ = d.WriteString(c.alias)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(buf[:])
	return d.Sum64()
}

func (c *QueryColumn) String() string {
	if c.ast == nil {
		return c.alias
	}
	if c.alias == "" || c.alias == c.ast.Token {
		return c.ast.String()
	}
	return c.ast.String() + " AS " + c.alias
}

// QueryColumnPool hands out reusable columns.
//
// Borrowing: Next returns a cleared column owned by the pool. Returning: Clear
// takes back every column handed out since the previous Clear. A column must
// not be used after the Clear that returned it. The pool is not safe for
// concurrent use; give each compiler its own.
type QueryColumnPool struct {
	items []*QueryColumn
	pos   int
}

// NewQueryColumnPool preallocates capacity columns.
func NewQueryColumnPool(capacity int) *QueryColumnPool {
	p := &QueryColumnPool{items: make([]*QueryColumn, capacity)}
	for i := range p.items {
		p.items[i] = NewQueryColumn()
	}
	return p
}

// Next borrows a cleared column, growing the pool when exhausted.
func (p *QueryColumnPool) Next() *QueryColumn {
	if p.pos == len(p.items) {
		p.items = append(p.items, NewQueryColumn())
	}
	c := p.items[p.pos]
	p.pos++
	c.Clear()
	return c
}

// Borrowed returns the number of columns handed out since the last Clear.
func (p *QueryColumnPool) Borrowed() int { return p.pos }

// Clear returns all borrowed columns to the pool.
func (p *QueryColumnPool) Clear() {
	for i := 0; i < p.pos; i++ {
		p.items[i].Clear()
	}
	p.pos = 0
}
