package engine

import (
	"colDB/internal/sql"
	"colDB/internal/storage"

	"github.com/google/uuid"
)

// ExecutionContext carries per-execution state: who is running the
// statement and the values of its bind variables.
type ExecutionContext interface {
	SecurityContext() storage.SecurityContext
	BindVariables() sql.BindVariableService
	QueryID() string
}

// SessionContext is the ExecutionContext used by the CLI and tests.
type SessionContext struct {
	sec  storage.SecurityContext
	vars *sql.BindVariables
	id   string
}

// NewExecutionContext returns a context for sec with no bind variables set
// and a fresh query id.
func NewExecutionContext(sec storage.SecurityContext) *SessionContext {
	return &SessionContext{
		sec:  sec,
		vars: sql.NewBindVariables(),
		id:   uuid.NewString(),
	}
}

func (c *SessionContext) SecurityContext() storage.SecurityContext { return c.sec }
func (c *SessionContext) BindVariables() sql.BindVariableService { return c.vars }
func (c *SessionContext) QueryID() string { return c.id }

// SetBindVariable sets $index for subsequent executions.
func (c *SessionContext) SetBindVariable(index int, v sql.Value) *SessionContext {
	c.vars.Set(index, v)
	return c
}

// ClearBindVariables drops every bind variable and assigns a new query id.
func (c *SessionContext) ClearBindVariables() {
	c.vars.Clear()
	c.id = uuid.NewString()
}
