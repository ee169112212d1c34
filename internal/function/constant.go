package function

import (
	"fmt"
	"strings"

	"colDB/internal/sql"
)

// Constant always evaluates to the same value.
type Constant struct {
	v sql.Value
}

// ConstantOf wraps v.
func ConstantOf(v sql.Value) *Constant {
	return &Constant{v: v}
}

func (c *Constant) Eval(sql.Record) sql.Value { return c.v }
func (c *Constant) Type() sql.DataType { return c.v.Type }
func (c *Constant) IsReadThreadSafe() bool { return true }

// String renders the value as a SQL literal that ParseLiteral reads back.
func (c *Constant) String() string {
	if c.v.Type == sql.TypeString {
		return "'" + strings.ReplaceAll(c.v.S, "'", "''") + "'"
	}
	return c.v.String()
}

// BindVariable evaluates to the value of $index as resolved by the last Init.
// The resolved value is per-execution state, so an instance must not be
// shared across concurrent executions.
type BindVariable struct {
	index int
	v     sql.Value
	bound bool
}

// NewBindVariable references $index (1-based).
func NewBindVariable(index int) *BindVariable {
	return &BindVariable{index: index, v: sql.Null}
}

// Init resolves the variable for the current execution.
func (b *BindVariable) Init(bv sql.BindVariableService) error {
	b.bound = false
	b.v = sql.Null
	if bv == nil {
		return fmt.Errorf("bind variable $%d: no bind variables in context", b.index)
	}
	v, err := bv.BindVariable(b.index)
	if err != nil {
		return err
	}
	b.v = v
	b.bound = true
	return nil
}

func (b *BindVariable) Index() int { return b.index }
func (b *BindVariable) Bound() bool { return b.bound }

// Eval returns the bound value, or NULL before Init succeeded.
func (b *BindVariable) Eval(sql.Record) sql.Value { return b.v }
func (b *BindVariable) Type() sql.DataType { return b.v.Type }
func (b *BindVariable) IsReadThreadSafe() bool { return false }
func (b *BindVariable) String() string { return fmt.Sprintf("$%d", b.index) }
