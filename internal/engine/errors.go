package engine

import (
	"errors"
	"fmt"
)

// ErrStaleSchema means the table's structure version moved since the
// operation was compiled. Recompile before retrying.
var ErrStaleSchema = errors.New("table structure version changed since compilation")

// BindError reports a row whose values could not be resolved.
type BindError struct {
	Row int
	Err error
}

func (e *BindError) Error() string { return fmt.Sprintf("bind row %d: %v", e.Row, e.Err) }
func (e *BindError) Unwrap() error { return e.Err }

// AppendError reports a row the storage layer rejected.
type AppendError struct {
	Row int
	Err error
}

func (e *AppendError) Error() string { return fmt.Sprintf("append row %d: %v", e.Row, e.Err) }
func (e *AppendError) Unwrap() error { return e.Err }
