// Package function holds the executable form of compiled expressions:
// typed column accessors read values out of a sql.Record, constants and bind
// variables supply values for INSERT rows.
package function

import (
	"colDB/internal/sql"
)

// Function is a compiled expression evaluated against one record at a time.
type Function interface {
	Type() sql.DataType
	Eval(rec sql.Record) sql.Value

	// IsReadThreadSafe reports whether the same instance may be evaluated
	// from several goroutines without synchronization.
	IsReadThreadSafe() bool

	String() string
}

// DoubleFunction is a Function with a typed float64 getter.
type DoubleFunction interface {
	Function
	Double(rec sql.Record) float64
}

// LongFunction is a Function with a typed int64 getter.
type LongFunction interface {
	Function
	Long(rec sql.Record) int64
}

// StrFunction is a Function with a typed string getter.
type StrFunction interface {
	Function
	Str(rec sql.Record) string
}

// BoolFunction is a Function with a typed bool getter.
type BoolFunction interface {
	Function
	Bool(rec sql.Record) bool
}

// Initializer is implemented by functions that must be bound to an
// execution before they can be evaluated.
type Initializer interface {
	Init(bv sql.BindVariableService) error
}

// InitAll initializes every function in fns that needs it.
func InitAll(fns []Function, bv sql.BindVariableService) error {
	for _, f := range fns {
		if in, ok := f.(Initializer); ok {
			if err := in.Init(bv); err != nil {
				return err
			}
		}
	}
	return nil
}
