package engine

import "fmt"

// DoneInstanceID marks an OperationFuture that completed synchronously.
// Long-running operations carry positive ids.
const DoneInstanceID int64 = -3

// OperationFuture is the completion handle returned by operations.
type OperationFuture interface {
	InstanceID() int64
	AffectedRows() int64
	Done() bool
	String() string
}

type doneFuture struct {
	affected int64
}

func newDoneFuture(affected int64) OperationFuture { return doneFuture{affected: affected} }

func (doneFuture) InstanceID() int64 { return DoneInstanceID }
func (f doneFuture) AffectedRows() int64 { return f.affected }
func (doneFuture) Done() bool { return true }

func (f doneFuture) String() string {
	return fmt.Sprintf("DoneOperationFuture(instance=%d, affected=%d)", DoneInstanceID, f.affected)
}
