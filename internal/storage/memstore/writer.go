package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"colDB/internal/metrics"
	"colDB/internal/sql"
	"colDB/internal/storage"

	"github.com/google/uuid"
)

// Writer checks out tableName's exclusive writer.
func (e *Engine) Writer(ctx context.Context, sec storage.SecurityContext, tableName, reason string) (storage.TableWriter, error) {
	if sec != nil {
		if err := sec.AuthorizeWrite(tableName); err != nil {
			metrics.WriterAcquisitions.WithLabelValues("denied").Inc()
			return nil, err
		}
	}
	t, err := e.lookup(tableName)
	if err != nil {
		metrics.WriterAcquisitions.WithLabelValues("missing").Inc()
		return nil, err
	}
	if err := e.acquire(ctx, t, reason); err != nil {
		e.log.Debug("writer busy", "table", tableName, "reason", reason)
		return nil, err
	}

	w := &tableWriter{
		eng:    e,
		t:      t,
		lease:  uuid.New(),
		reason: reason,
	}
	if sec != nil {
		w.principal = sec.Principal()
	}
	w.log = e.log.With("table", tableName, "lease", w.lease.String())
	w.log.Debug("writer checked out", "reason", reason, "principal", w.principal)
	return w, nil
}

type tableWriter struct {
	eng       *Engine
	t         *table
	lease     uuid.UUID
	reason    string
	principal string
	log       *slog.Logger

	mu      sync.Mutex // guards pending, closed
	pending []sql.Row
	closed  bool
}

func (w *tableWriter) TableName() string { return w.t.name }

func (w *tableWriter) StructureVersion() int64 {
	w.t.mu.RLock()
	defer w.t.mu.RUnlock()
	return w.t.version
}

func (w *tableWriter) Metadata() storage.TableMetadata { return w.t.metadata() }

// Append validates row against the schema and buffers it.
func (w *tableWriter) Append(row sql.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return storage.ErrWriterClosed
	}

	w.t.mu.RLock()
	cols := w.t.cols
	w.t.mu.RUnlock()

	if len(row) != len(cols) {
		return &storage.RowError{
			Table: w.t.name,
			Err:   fmt.Errorf("column count mismatch: expected %d, got %d", len(cols), len(row)),
		}
	}
	for i, c := range cols {
		if !accepts(c.Type, row[i]) {
			return &storage.RowError{
				Table:  w.t.name,
				Column: c.Name,
				Err:    fmt.Errorf("type mismatch: expected %v, got %v", c.Type, row[i].Type),
			}
		}
	}

	w.pending = append(w.pending, append(sql.Row(nil), row...))
	return nil
}

// Commit journals the pending batch and publishes it at once.
func (w *tableWriter) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return storage.ErrWriterClosed
	}
	if len(w.pending) == 0 {
		return nil
	}

	// The writer slot also guards schema changes, so the version cannot move
	// between here and publish.
	version := w.StructureVersion()
	if j := w.eng.journal; j != nil {
		if err := j.LogCommit(w.t.name, version, w.pending); err != nil {
			return fmt.Errorf("memstore: commit to %s: %w", w.t.name, err)
		}
	}

	w.t.mu.Lock()
	w.t.publish(w.pending)
	w.t.mu.Unlock()

	n := len(w.pending)
	w.pending = nil
	metrics.RowsCommitted.WithLabelValues(w.t.name).Add(float64(n))
	w.log.Debug("batch committed", "rows", n, "structure_version", version)
	return nil
}

func (w *tableWriter) Rollback() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n := len(w.pending); n > 0 {
		w.log.Debug("batch rolled back", "rows", n)
	}
	w.pending = nil
}

// Close discards uncommitted rows and returns the slot. Later calls are no-ops.
func (w *tableWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.pending = nil
	w.t.slot.Release(1)
	w.log.Debug("writer released")
	return nil
}

func (w *tableWriter) String() string {
	return fmt.Sprintf("TableWriter(%s, lease=%s, reason=%s)", w.t.name, w.lease, w.reason)
}

