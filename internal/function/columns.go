package function

import (
	"strconv"

	"colDB/internal/sql"
)

var (
	longColumns = newColumnPool(func(i int) *LongColumn { return &LongColumn{columnIndex: i} })
	strColumns  = newColumnPool(func(i int) *StrColumn { return &StrColumn{columnIndex: i} })
	boolColumns = newColumnPool(func(i int) *BoolColumn { return &BoolColumn{columnIndex: i} })
)

// LongColumn reads an INT column by position.
type LongColumn struct {
	columnIndex int
}

func NewLongColumn(columnIndex int) *LongColumn { return longColumns.get(columnIndex) }

func (c *LongColumn) ColumnIndex() int { return c.columnIndex }
func (c *LongColumn) Long(rec sql.Record) int64 { return rec.Long(c.columnIndex) }
func (c *LongColumn) Eval(rec sql.Record) sql.Value { return rec.Value(c.columnIndex) }
func (c *LongColumn) Type() sql.DataType { return sql.TypeInt }
func (c *LongColumn) IsReadThreadSafe() bool { return true }
func (c *LongColumn) String() string { return "LongColumn(" + strconv.Itoa(c.columnIndex) + ")" }

// StrColumn reads a STRING column by position.
type StrColumn struct {
	columnIndex int
}

func NewStrColumn(columnIndex int) *StrColumn { return strColumns.get(columnIndex) }

func (c *StrColumn) ColumnIndex() int { return c.columnIndex }
func (c *StrColumn) Str(rec sql.Record) string { return rec.Str(c.columnIndex) }
func (c *StrColumn) Eval(rec sql.Record) sql.Value { return rec.Value(c.columnIndex) }
func (c *StrColumn) Type() sql.DataType { return sql.TypeString }
func (c *StrColumn) IsReadThreadSafe() bool { return true }
func (c *StrColumn) String() string { return "StrColumn(" + strconv.Itoa(c.columnIndex) + ")" }

// BoolColumn reads a BOOL column by position.
type BoolColumn struct {
	columnIndex int
}

func NewBoolColumn(columnIndex int) *BoolColumn { return boolColumns.get(columnIndex) }

func (c *BoolColumn) ColumnIndex() int { return c.columnIndex }
func (c *BoolColumn) Bool(rec sql.Record) bool { return rec.Bool(c.columnIndex) }
func (c *BoolColumn) Eval(rec sql.Record) sql.Value { return rec.Value(c.columnIndex) }
func (c *BoolColumn) Type() sql.DataType { return sql.TypeBool }
func (c *BoolColumn) IsReadThreadSafe() bool { return true }
func (c *BoolColumn) String() string { return "BoolColumn(" + strconv.Itoa(c.columnIndex) + ")" }
