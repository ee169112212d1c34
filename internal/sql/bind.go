package sql

import (
	"fmt"
	"sort"
)

// BindVariableService resolves $n references for one execution.
type BindVariableService interface {
	BindVariable(index int) (Value, error)
}

// BindVariables is a simple indexed store of bind values. Indexes are 1-based
// to match $1, $2, ...
type BindVariables struct {
	vals map[int]Value
}

// NewBindVariables returns an empty set.
func NewBindVariables() *BindVariables {
	return &BindVariables{vals: make(map[int]Value)}
}

// Set assigns the value of $index.
func (b *BindVariables) Set(index int, v Value) {
	b.vals[index] = v
}

// Clear removes all values.
func (b *BindVariables) Clear() {
	clear(b.vals)
}

// BindVariable returns the value of $index or an error if it was never set.
func (b *BindVariables) BindVariable(index int) (Value, error) {
	if index < 1 {
		return Value{}, fmt.Errorf("invalid bind variable index $%d", index)
	}
	v, ok := b.vals[index]
	if !ok {
		return Value{}, fmt.Errorf("bind variable $%d is not set", index)
	}
	return v, nil
}

func (b *BindVariables) String() string {
	idx := make([]int, 0, len(b.vals))
	for i := range b.vals {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	s := "["
	for n, i := range idx {
		if n > 0 {
			s += ", "
		}
		s += fmt.Sprintf("$%d=%s", i, b.vals[i])
	}
	return s + "]"
}
