package function

import (
	"strconv"

	"colDB/internal/sql"
)

var doubleColumns = newColumnPool(func(i int) *DoubleColumn {
	return &DoubleColumn{columnIndex: i}
})

// DoubleColumn reads a DOUBLE column by position. It holds nothing but the
// index, so one instance can serve any number of concurrent readers.
type DoubleColumn struct {
	columnIndex int
}

// NewDoubleColumn returns the shared accessor for low indexes and a new one
// otherwise.
func NewDoubleColumn(columnIndex int) *DoubleColumn {
	return doubleColumns.get(columnIndex)
}

func (c *DoubleColumn) ColumnIndex() int { return c.columnIndex }

func (c *DoubleColumn) Double(rec sql.Record) float64 {
	return rec.Double(c.columnIndex)
}

func (c *DoubleColumn) Eval(rec sql.Record) sql.Value {
	v := rec.Value(c.columnIndex)
	if v.Type == sql.TypeInt {
		return sql.DoubleValue(float64(v.I64))
	}
	return v
}

func (c *DoubleColumn) Type() sql.DataType { return sql.TypeDouble }

func (c *DoubleColumn) IsReadThreadSafe() bool { return true }

func (c *DoubleColumn) String() string {
	return "DoubleColumn(" + strconv.Itoa(c.columnIndex) + ")"
}
