// Package memstore is an in-memory columnar storage engine. Each table keeps
// one typed vector per column and hands out at most one writer at a time.
// With a Journal attached, schema changes and commits are logged before they
// become visible and replayed by Open.
package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"colDB/internal/logging"
	"colDB/internal/metrics"
	"colDB/internal/sql"
	"colDB/internal/storage"
	"colDB/internal/storage/wal"

	"golang.org/x/sync/semaphore"
)

// Journal is the durability hook memstore writes through. *wal.Log
// satisfies it.
type Journal interface {
	LogCreateTable(table string, cols []sql.Column) error
	LogAddColumn(table string, col sql.Column, version int64) error
	LogCommit(table string, version int64, rows []sql.Row) error
	Replay(fn func(rec wal.Record) error) error
	Close() error
}

type table struct {
	name string

	mu       sync.RWMutex // guards cols, data, rowCount, version
	cols     []sql.Column
	data     []vector
	rowCount int
	version  int64

	// slot is the exclusive writer checkout. Schema changes take it too.
	slot *semaphore.Weighted
}

func newTable(name string, cols []sql.Column) *table {
	t := &table{
		name:    name,
		cols:    append([]sql.Column(nil), cols...),
		data:    make([]vector, len(cols)),
		version: 1,
		slot:    semaphore.NewWeighted(1),
	}
	for i, c := range cols {
		t.data[i] = newVector(c.Type, 0)
	}
	return t
}

func (t *table) metadata() storage.TableMetadata {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return storage.TableMetadata{
		Name:             t.name,
		Columns:          append([]sql.Column(nil), t.cols...),
		StructureVersion: t.version,
	}
}

// publish appends validated rows. Caller holds t.mu.
func (t *table) publish(rows []sql.Row) {
	for _, r := range rows {
		for i := range t.data {
			t.data[i].push(r[i])
		}
	}
	t.rowCount += len(rows)
}

// addColumn NULL-fills a new column and bumps the version. Caller holds t.mu.
func (t *table) addColumn(col sql.Column) {
	t.cols = append(t.cols, col)
	t.data = append(t.data, newVector(col.Type, t.rowCount))
	t.version++
}

// Engine is the memstore storage engine.
type Engine struct {
	mu     sync.RWMutex
	tables map[string]*table
	closed bool

	journal        Journal
	acquireTimeout time.Duration
	log            *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal makes the engine log schema changes and commits to j.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithAcquireTimeout sets how long Writer waits for a busy table. Zero or
// less fails immediately.
func WithAcquireTimeout(d time.Duration) Option {
	return func(e *Engine) { e.acquireTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an empty engine. A journal passed via WithJournal is written
// to but not replayed; use Open to recover its contents.
func New(opts ...Option) *Engine {
	e := &Engine{tables: make(map[string]*table)}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logging.Get()
	}
	e.log = e.log.With("component", "memstore")
	return e
}

// Open creates an engine backed by j and rebuilds its tables from j.
func Open(j Journal, opts ...Option) (*Engine, error) {
	e := New(append(opts, WithJournal(j))...)
	if err := e.replay(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) replay() error {
	var n int
	err := e.journal.Replay(func(rec wal.Record) error {
		n++
		switch rec.Kind {
		case wal.KindCreateTable:
			if _, exists := e.tables[rec.Table]; exists {
				return fmt.Errorf("memstore: replay: table %s created twice", rec.Table)
			}
			e.tables[rec.Table] = newTable(rec.Table, rec.Columns)
		case wal.KindAddColumn:
			t, ok := e.tables[rec.Table]
			if !ok {
				return fmt.Errorf("memstore: replay: add column to %s: %w", rec.Table, storage.ErrTableNotFound)
			}
			t.addColumn(rec.Columns[0])
			if t.version != rec.StructureVersion {
				return fmt.Errorf("memstore: replay: %s at version %d, journal says %d", rec.Table, t.version, rec.StructureVersion)
			}
		case wal.KindCommit:
			t, ok := e.tables[rec.Table]
			if !ok {
				return fmt.Errorf("memstore: replay: commit to %s: %w", rec.Table, storage.ErrTableNotFound)
			}
			if t.version != rec.StructureVersion {
				return fmt.Errorf("memstore: replay: commit to %s at version %d, table is at %d", rec.Table, rec.StructureVersion, t.version)
			}
			for i, r := range rec.Rows {
				if len(r) != len(t.cols) {
					return fmt.Errorf("memstore: replay: commit to %s row %d has %d values, want %d", rec.Table, i, len(r), len(t.cols))
				}
			}
			t.publish(rec.Rows)
		default:
			return fmt.Errorf("memstore: replay: unexpected record %v", rec.Kind)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.log.Info("journal replayed", "records", n, "tables", len(e.tables))
	return nil
}

func (e *Engine) lookup(name string) (*table, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, fmt.Errorf("memstore: engine is closed")
	}
	t, ok := e.tables[name]
	if !ok {
		return nil, fmt.Errorf("memstore: table %s: %w", name, storage.ErrTableNotFound)
	}
	return t, nil
}

// CreateTable creates a new empty table at structure version 1.
func (e *Engine) CreateTable(name string, cols []sql.Column) error {
	if name == "" {
		return fmt.Errorf("memstore: empty table name")
	}
	if len(cols) == 0 {
		return fmt.Errorf("memstore: table %s needs at least one column", name)
	}
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		key := strings.ToLower(c.Name)
		if seen[key] {
			return fmt.Errorf("memstore: table %s: duplicate column %q", name, c.Name)
		}
		seen[key] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("memstore: engine is closed")
	}
	if _, exists := e.tables[name]; exists {
		return fmt.Errorf("memstore: table %s: %w", name, storage.ErrTableExists)
	}
	if e.journal != nil {
		if err := e.journal.LogCreateTable(name, cols); err != nil {
			return fmt.Errorf("memstore: create table %s: %w", name, err)
		}
	}
	e.tables[name] = newTable(name, cols)
	e.log.Debug("table created", "table", name, "columns", len(cols))
	return nil
}

// AddColumn appends a NULL-filled column and bumps the structure version.
// It checks out the table's writer slot for the duration of the change.
func (e *Engine) AddColumn(ctx context.Context, sec storage.SecurityContext, tableName string, col sql.Column) error {
	t, err := e.lookup(tableName)
	if err != nil {
		return err
	}
	if sec != nil {
		if err := sec.AuthorizeWrite(tableName); err != nil {
			metrics.WriterAcquisitions.WithLabelValues("denied").Inc()
			return err
		}
	}
	if err := e.acquire(ctx, t, "alter"); err != nil {
		return err
	}
	defer t.slot.Release(1)

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.cols {
		if strings.EqualFold(c.Name, col.Name) {
			return fmt.Errorf("memstore: table %s: column %q already exists", tableName, col.Name)
		}
	}
	next := t.version + 1
	if e.journal != nil {
		if err := e.journal.LogAddColumn(tableName, col, next); err != nil {
			return fmt.Errorf("memstore: add column to %s: %w", tableName, err)
		}
	}
	t.addColumn(col)
	e.log.Info("column added", "table", tableName, "column", col.Name, "structure_version", t.version)
	return nil
}

// acquire takes t's writer slot, waiting up to the configured timeout.
func (e *Engine) acquire(ctx context.Context, t *table, reason string) error {
	if err := ctx.Err(); err != nil {
		metrics.WriterAcquisitions.WithLabelValues("busy").Inc()
		return fmt.Errorf("memstore: %s writer for %s: %w: %w", reason, t.name, storage.ErrWriterUnavailable, err)
	}

	start := time.Now()
	if e.acquireTimeout <= 0 {
		if !t.slot.TryAcquire(1) {
			metrics.WriterAcquisitions.WithLabelValues("busy").Inc()
			return fmt.Errorf("memstore: %s writer for %s: %w", reason, t.name, storage.ErrWriterUnavailable)
		}
	} else {
		waitCtx, cancel := context.WithTimeout(ctx, e.acquireTimeout)
		defer cancel()
		if err := t.slot.Acquire(waitCtx, 1); err != nil {
			metrics.WriterWait.Observe(time.Since(start).Seconds())
			metrics.WriterAcquisitions.WithLabelValues("busy").Inc()
			return fmt.Errorf("memstore: %s writer for %s: %w: %w", reason, t.name, storage.ErrWriterUnavailable, err)
		}
	}
	metrics.WriterWait.Observe(time.Since(start).Seconds())
	metrics.WriterAcquisitions.WithLabelValues("ok").Inc()
	return nil
}

// Metadata returns the table's current schema.
func (e *Engine) Metadata(tableName string) (storage.TableMetadata, error) {
	t, err := e.lookup(tableName)
	if err != nil {
		return storage.TableMetadata{}, err
	}
	return t.metadata(), nil
}

// ListTables returns table names in sorted order.
func (e *Engine) ListTables() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes the journal. Further calls fail.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.journal != nil {
		return e.journal.Close()
	}
	return nil
}

var _ storage.Engine = (*Engine)(nil)
