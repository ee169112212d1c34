package memstore

import (
	"math"

	"colDB/internal/sql"
)

// vector is one column's values. Only the slice matching typ is used;
// nulls marks NULL cells for every type.
//
// Vectors are append-only. A snapshot taken under the table's read lock keeps
// its slice headers and never sees cells appended after it.
type vector struct {
	typ     sql.DataType
	longs   []int64
	doubles []float64
	strs    []string
	bools   []bool
	nulls   []bool
}

func newVector(typ sql.DataType, nullRows int) vector {
	v := vector{typ: typ}
	for i := 0; i < nullRows; i++ {
		v.push(sql.Null)
	}
	return v
}

// push appends one already-validated value.
func (v *vector) push(val sql.Value) {
	null := val.IsNull()
	v.nulls = append(v.nulls, null)
	switch v.typ {
	case sql.TypeInt:
		v.longs = append(v.longs, val.I64)
	case sql.TypeDouble:
		f := val.F64
		if val.Type == sql.TypeInt {
			f = float64(val.I64)
		}
		v.doubles = append(v.doubles, f)
	case sql.TypeString:
		v.strs = append(v.strs, val.S)
	case sql.TypeBool:
		v.bools = append(v.bools, val.B)
	}
}

func (v *vector) value(row int) sql.Value {
	if v.nulls[row] {
		return sql.Null
	}
	switch v.typ {
	case sql.TypeInt:
		return sql.IntValue(v.longs[row])
	case sql.TypeDouble:
		return sql.DoubleValue(v.doubles[row])
	case sql.TypeString:
		return sql.StringValue(v.strs[row])
	case sql.TypeBool:
		return sql.BoolValue(v.bools[row])
	default:
		return sql.Null
	}
}

func (v *vector) double(row int) float64 {
	if v.nulls[row] {
		return math.NaN()
	}
	switch v.typ {
	case sql.TypeDouble:
		return v.doubles[row]
	case sql.TypeInt:
		return float64(v.longs[row])
	default:
		return math.NaN()
	}
}

func (v *vector) long(row int) int64 {
	if v.nulls[row] || v.typ != sql.TypeInt {
		return 0
	}
	return v.longs[row]
}

func (v *vector) str(row int) string {
	if v.nulls[row] || v.typ != sql.TypeString {
		return ""
	}
	return v.strs[row]
}

func (v *vector) boolean(row int) bool {
	if v.nulls[row] || v.typ != sql.TypeBool {
		return false
	}
	return v.bools[row]
}

// accepts reports whether val may be stored in a column of type typ.
// NULL fits anything and INT widens into DOUBLE.
func accepts(typ sql.DataType, val sql.Value) bool {
	if val.IsNull() || val.Type == typ {
		return true
	}
	return typ == sql.TypeDouble && val.Type == sql.TypeInt
}
