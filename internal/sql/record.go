package sql

import "math"

// Record is positional read access to one row, however it is stored.
// Getters do not validate col; callers resolve indexes against the schema
// before reading.
type Record interface {
	Value(col int) Value
	Double(col int) float64
	Long(col int) int64
	Str(col int) string
	Bool(col int) bool
}

// Row implements Record so materialized rows and column-storage cursors can
// be read through the same accessors.
var _ Record = Row(nil)

func (r Row) Value(col int) Value { return r[col] }

// Double returns the column as float64. INT cells widen; NULL reads as NaN.
func (r Row) Double(col int) float64 {
	v := r[col]
	switch v.Type {
	case TypeDouble:
		return v.F64
	case TypeInt:
		return float64(v.I64)
	default:
		return math.NaN()
	}
}

func (r Row) Long(col int) int64 { return r[col].I64 }
func (r Row) Str(col int) string { return r[col].S }
func (r Row) Bool(col int) bool  { return r[col].B }
