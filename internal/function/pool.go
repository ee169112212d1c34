package function

import (
	"fmt"

	"colDB/internal/sql"
)

// StaticColumnCount is the number of low column indexes whose accessors are
// created once at startup and shared. Wider indexes get a fresh accessor per
// request so memory stays bounded for wide schemas.
const StaticColumnCount = 32

// columnPool is a fixed table of canonical accessors, filled during package
// initialization and never written afterwards, so reads need no locking.
type columnPool[T any] struct {
	cols   [StaticColumnCount]T
	newCol func(columnIndex int) T
}

func newColumnPool[T any](newCol func(columnIndex int) T) *columnPool[T] {
	p := &columnPool[T]{newCol: newCol}
	for i := range p.cols {
		p.cols[i] = newCol(i)
	}
	return p
}

func (p *columnPool[T]) get(columnIndex int) T {
	if columnIndex >= 0 && columnIndex < StaticColumnCount {
		return p.cols[columnIndex]
	}
	return p.newCol(columnIndex)
}

// ColumnOf returns the accessor for a column of the given declared type.
func ColumnOf(columnIndex int, t sql.DataType) (Function, error) {
	switch t {
	case sql.TypeDouble:
		return NewDoubleColumn(columnIndex), nil
	case sql.TypeInt:
		return NewLongColumn(columnIndex), nil
	case sql.TypeString:
		return NewStrColumn(columnIndex), nil
	case sql.TypeBool:
		return NewBoolColumn(columnIndex), nil
	default:
		return nil, fmt.Errorf("function: no column accessor for type %v", t)
	}
}
