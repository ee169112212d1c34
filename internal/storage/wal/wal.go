// Package wal is the commit journal behind memstore: every schema change and
// every committed insert batch is appended and synced before it becomes
// visible, and replayed on the next open.
package wal

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"colDB/internal/sql"

	"github.com/cespare/xxhash/v2"
)

const (
	walMagic = "COLDBWAL" // 8 bytes

	// FileName is the journal's name inside the storage directory.
	FileName = "wal.log"

	maxFrameSize = 1 << 30
)

// Kind identifies a journal record.
type Kind uint8

const (
	KindCreateTable Kind = iota + 1
	KindAddColumn
	KindCommit
)

func (k Kind) String() string {
	switch k {
	case KindCreateTable:
		return "CREATE_TABLE"
	case KindAddColumn:
		return "ADD_COLUMN"
	case KindCommit:
		return "COMMIT"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Record is one decoded journal entry.
//
//	CREATE_TABLE: Table, Columns
//	ADD_COLUMN:   Table, Columns[0], StructureVersion (after the change)
//	COMMIT:       Table, StructureVersion, Rows
type Record struct {
	Kind             Kind
	Table            string
	Columns          []sql.Column
	StructureVersion int64
	Rows             []sql.Row
}

// Log is an append-only journal file:
//
//	[magic "COLDBWAL"]
//	[frames...]
//
// Each frame:
//
//	payloadLen: uint32
//	checksum:   uint64 (xxhash of payload)
//	payload:    kind uint8, table string, then kind-specific fields
//
// A frame that is cut short or fails its checksum is a torn write from a
// crash; replay stops there.
type Log struct {
	mu   sync.Mutex
	f    journalFile
	path string

	// broken is set when a failed append could not be rolled back. Every
	// later append fails with it.
	broken error
}

// journalFile is the part of *os.File the appender uses.
type journalFile interface {
	io.Writer
	io.Seeker
	Sync() error
	Truncate(size int64) error
	Close() error
}

// Open opens or creates the journal in dir and positions it for appends.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("wal: create dir: %w", err)
	}
	path := filepath.Join(dir, FileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: open: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("wal: stat: %w", err)
	}

	size := info.Size()
	if size < int64(len(walMagic)) {
		// Empty, or a crash cut the header short.
		if err := f.Truncate(0); err != nil {
			f.Close()
			return nil, fmt.Errorf("wal: reset short header: %w", err)
		}
		if _, err := f.WriteAt([]byte(walMagic), 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("wal: write magic: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("wal: sync magic: %w", err)
		}
		size = int64(len(walMagic))
	} else {
		magicBuf := make([]byte, len(walMagic))
		if _, err := f.ReadAt(magicBuf, 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("wal: read magic: %w", err)
		}
		if string(magicBuf) != walMagic {
			f.Close()
			return nil, fmt.Errorf("wal: invalid magic, not a colDB journal")
		}
	}

	l := &Log{f: f, path: path}

	// Drop a torn tail so new frames follow the last intact one.
	end, err := l.scan(nil)
	if err != nil {
		f.Close()
		return nil, err
	}
	if end < size {
		if err := f.Truncate(end); err != nil {
			f.Close()
			return nil, fmt.Errorf("wal: truncate torn tail: %w", err)
		}
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, fmt.Errorf("wal: seek end: %w", err)
	}

	return l, nil
}

// Path returns the journal file path.
func (l *Log) Path() string { return l.path }

// Close closes the journal file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// LogCreateTable journals a new table.
func (l *Log) LogCreateTable(table string, cols []sql.Column) error {
	return l.append(KindCreateTable, table, func(w io.Writer) error {
		if err := binary.Write(w, binary.LittleEndian, uint16(len(cols))); err != nil {
			return err
		}
		for _, c := range cols {
			if err := writeColumn(w, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// LogAddColumn journals a schema change; version is the structure version
// after the change.
func (l *Log) LogAddColumn(table string, col sql.Column, version int64) error {
	return l.append(KindAddColumn, table, func(w io.Writer) error {
		if err := writeColumn(w, col); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, version)
	})
}

// LogCommit journals one committed batch as a single frame.
func (l *Log) LogCommit(table string, version int64, rows []sql.Row) error {
	return l.append(KindCommit, table, func(w io.Writer) error {
		if err := binary.Write(w, binary.LittleEndian, version); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(rows))); err != nil {
			return err
		}
		for _, r := range rows {
			if err := writeRow(w, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// append encodes a payload, frames it, writes it and syncs.
func (l *Log) append(kind Kind, table string, body func(w io.Writer) error) error {
	var payload bytes.Buffer
	payload.WriteByte(byte(kind))
	if err := writeString(&payload, table); err != nil {
		return err
	}
	if err := body(&payload); err != nil {
		return fmt.Errorf("wal: encode %v: %w", kind, err)
	}
	if payload.Len() > maxFrameSize {
		return fmt.Errorf("wal: %v record too large (%d bytes)", kind, payload.Len())
	}

	frame := make([]byte, 12, 12+payload.Len())
	binary.LittleEndian.PutUint32(frame[0:4], uint32(payload.Len()))
	binary.LittleEndian.PutUint64(frame[4:12], xxhash.Sum64(payload.Bytes()))
	frame = append(frame, payload.Bytes()...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return fmt.Errorf("wal: closed")
	}
	if l.broken != nil {
		return fmt.Errorf("wal: journal unusable after failed rollback: %w", l.broken)
	}

	off, err := l.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("wal: locate end: %w", err)
	}
	if _, err := l.f.Write(frame); err != nil {
		l.rewind(off)
		return fmt.Errorf("wal: write %v: %w", kind, err)
	}
	if err := l.f.Sync(); err != nil {
		l.rewind(off)
		return fmt.Errorf("wal: sync %v: %w", kind, err)
	}
	return nil
}

// rewind drops whatever a failed append left past off, so the next frame
// follows the last acknowledged one. Caller holds l.mu.
func (l *Log) rewind(off int64) {
	if err := l.f.Truncate(off); err != nil {
		l.broken = err
		return
	}
	if _, err := l.f.Seek(off, io.SeekStart); err != nil {
		l.broken = err
	}
}

// Replay calls fn for every intact record in order.
func (l *Log) Replay(fn func(rec Record) error) error {
	_, err := l.scan(fn)
	return err
}

// scan walks the frames, calling fn for each intact record when fn is not
// nil, and returns the offset just past the last intact frame.
func (l *Log) scan(fn func(rec Record) error) (int64, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return 0, fmt.Errorf("wal: open for replay: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if _, err := r.Discard(len(walMagic)); err != nil {
		return 0, fmt.Errorf("wal: skip magic: %w", err)
	}
	end := int64(len(walMagic))

	var hdr [12]byte
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return end, nil
			}
			return end, fmt.Errorf("wal: read frame header: %w", err)
		}
		n := binary.LittleEndian.Uint32(hdr[0:4])
		sum := binary.LittleEndian.Uint64(hdr[4:12])
		if n > maxFrameSize {
			return end, nil
		}

		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return end, nil
			}
			return end, fmt.Errorf("wal: read frame: %w", err)
		}
		if xxhash.Sum64(payload) != sum {
			return end, nil
		}

		if fn != nil {
			rec, err := decode(payload)
			if err != nil {
				return end, err
			}
			if err := fn(rec); err != nil {
				return end, err
			}
		}
		end += int64(len(hdr)) + int64(n)
	}
}

func decode(payload []byte) (Record, error) {
	r := bytes.NewReader(payload)

	kind, err := r.ReadByte()
	if err != nil {
		return Record{}, fmt.Errorf("wal: decode kind: %w", err)
	}
	rec := Record{Kind: Kind(kind)}
	if rec.Table, err = readString(r); err != nil {
		return Record{}, fmt.Errorf("wal: decode table: %w", err)
	}

	switch rec.Kind {
	case KindCreateTable:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Record{}, fmt.Errorf("wal: decode column count: %w", err)
		}
		rec.Columns = make([]sql.Column, n)
		for i := range rec.Columns {
			if rec.Columns[i], err = readColumn(r); err != nil {
				return Record{}, fmt.Errorf("wal: decode column: %w", err)
			}
		}
	case KindAddColumn:
		c, err := readColumn(r)
		if err != nil {
			return Record{}, fmt.Errorf("wal: decode column: %w", err)
		}
		rec.Columns = []sql.Column{c}
		if err := binary.Read(r, binary.LittleEndian, &rec.StructureVersion); err != nil {
			return Record{}, fmt.Errorf("wal: decode version: %w", err)
		}
	case KindCommit:
		if err := binary.Read(r, binary.LittleEndian, &rec.StructureVersion); err != nil {
			return Record{}, fmt.Errorf("wal: decode version: %w", err)
		}
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Record{}, fmt.Errorf("wal: decode row count: %w", err)
		}
		rec.Rows = make([]sql.Row, 0, n)
		for i := uint32(0); i < n; i++ {
			row, err := readRow(r)
			if err != nil {
				return Record{}, fmt.Errorf("wal: decode row %d: %w", i, err)
			}
			rec.Rows = append(rec.Rows, row)
		}
	default:
		return Record{}, fmt.Errorf("wal: unknown record kind %d", kind)
	}

	return rec, nil
}
