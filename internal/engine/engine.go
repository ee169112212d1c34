package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"colDB/internal/logging"
	"colDB/internal/sql"
	"colDB/internal/storage"
)

// DBEngine is the main database engine struct. It compiles statements
// against a storage engine and runs them.
type DBEngine struct {
	started bool
	store   storage.Engine
	log     *slog.Logger

	// columnPools recycles QueryColumnPools between SELECT compiles. A pool
	// belongs to one Projection from CompileSelect until its Close.
	columnPools sync.Pool
}

// Option configures a DBEngine.
type Option func(*DBEngine)

func WithLogger(l *slog.Logger) Option {
	return func(e *DBEngine) { e.log = l }
}

// New creates a new DBEngine over store. Call Start before use.
func New(store storage.Engine, opts ...Option) *DBEngine {
	e := &DBEngine{store: store}
	e.columnPools.New = func() any { return sql.NewQueryColumnPool(16) }
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logging.Get()
	}
	e.log = e.log.With("component", "engine")
	return e
}

// Start runs initialization steps for the engine.
func (e *DBEngine) Start() error {
	if e.started {
		return fmt.Errorf("engine already started")
	}
	e.started = true
	e.log.Debug("engine started", "tables", len(e.store.ListTables()))
	return nil
}

func (e *DBEngine) checkStarted() error {
	if !e.started {
		return fmt.Errorf("engine not started")
	}
	return nil
}

// Store returns the underlying storage engine.
func (e *DBEngine) Store() storage.Engine { return e.store }

// CreateTable creates a new table in the underlying storage engine.
func (e *DBEngine) CreateTable(name string, cols []sql.Column) error {
	if err := e.checkStarted(); err != nil {
		return err
	}
	return e.store.CreateTable(name, cols)
}

// AddColumn changes the table's schema, bumping its structure version.
// Inserts compiled before the change fail with ErrStaleSchema.
func (e *DBEngine) AddColumn(ctx context.Context, sec storage.SecurityContext, tableName string, col sql.Column) error {
	if err := e.checkStarted(); err != nil {
		return err
	}
	if err := e.store.AddColumn(ctx, sec, tableName, col); err != nil {
		return fmt.Errorf("alter table %s: %w", tableName, err)
	}
	return nil
}
