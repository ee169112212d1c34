package memstore

import (
	"colDB/internal/sql"
	"colDB/internal/storage"
)

// Reader returns a cursor over the rows committed so far. Commits that land
// after the call are not visible through it.
func (e *Engine) Reader(tableName string) (storage.TableMetadata, storage.Cursor, error) {
	t, err := e.lookup(tableName)
	if err != nil {
		return storage.TableMetadata{}, nil, err
	}

	t.mu.RLock()
	meta := storage.TableMetadata{
		Name:             t.name,
		Columns:          append([]sql.Column(nil), t.cols...),
		StructureVersion: t.version,
	}
	snap := make([]vector, len(t.data))
	copy(snap, t.data)
	n := t.rowCount
	t.mu.RUnlock()

	return meta, &cursor{rec: colRecord{data: snap, row: -1}, n: n}, nil
}

type cursor struct {
	rec colRecord
	n   int
}

func (c *cursor) Next() bool {
	if c.rec.row+1 >= c.n {
		return false
	}
	c.rec.row++
	return true
}

// Record returns the current row. It is only valid until the next call to Next.
func (c *cursor) Record() sql.Record { return &c.rec }

// colRecord reads one row position across the column vectors.
type colRecord struct {
	data []vector
	row  int
}

func (r *colRecord) Value(col int) sql.Value { return r.data[col].value(r.row) }
func (r *colRecord) Double(col int) float64 { return r.data[col].double(r.row) }
func (r *colRecord) Long(col int) int64 { return r.data[col].long(r.row) }
func (r *colRecord) Str(col int) string { return r.data[col].str(r.row) }
func (r *colRecord) Bool(col int) bool { return r.data[col].boolean(r.row) }
