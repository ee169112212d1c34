package sql

import (
	"strconv"
)

// DataType represents the logical type of a value in a column.
type DataType int

const (
	TypeInt DataType = iota
	TypeDouble
	TypeString
	TypeBool
	TypeNull
)

func (t DataType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeDouble:
		return "DOUBLE"
	case TypeString:
		return "STRING"
	case TypeBool:
		return "BOOL"
	case TypeNull:
		return "NULL"
	default:
		return "DataType(" + strconv.Itoa(int(t)) + ")"
	}
}

// Value represents a single cell in a table (one column in one row).
// Only the field matching Type should be read; other fields remain at their
// zero values to keep the struct compact and easy to inspect while debugging.
type Value struct {
	Type DataType

	I64 int64   // for TypeInt
	F64 float64 // for TypeDouble
	S   string  // for TypeString
	B   bool    // for TypeBool
}

// Null is the NULL value of any column type.
var Null = Value{Type: TypeNull}

func IntValue(v int64) Value { return Value{Type: TypeInt, I64: v} }
func DoubleValue(v float64) Value { return Value{Type: TypeDouble, F64: v} }
func StringValue(v string) Value { return Value{Type: TypeString, S: v} }
func BoolValue(v bool) Value { return Value{Type: TypeBool, B: v} }

// IsNull reports whether v is the NULL value.
func (v Value) IsNull() bool { return v.Type == TypeNull }

// String renders the value the way the CLI prints it.
func (v Value) String() string {
	switch v.Type {
	case TypeInt:
		return strconv.FormatInt(v.I64, 10)
	case TypeDouble:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case TypeString:
		return v.S
	case TypeBool:
		return strconv.FormatBool(v.B)
	default:
		return "NULL"
	}
}

// Row represents one record in a table: a slice of Values, one per column.
type Row []Value

// Column describes metadata for a single column in a table.
type Column struct {
	Name string
	Type DataType
}
