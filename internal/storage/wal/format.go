package wal

import (
	"encoding/binary"
	"fmt"
	"io"

	"colDB/internal/sql"
)

// writeString writes a uint16 length followed by the bytes.
func writeString(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("wal: string too long (%d bytes)", len(s))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// writeColumn writes name + type.
func writeColumn(w io.Writer, c sql.Column) error {
	if err := writeString(w, c.Name); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, uint8(c.Type))
}

func readColumn(r io.Reader) (sql.Column, error) {
	name, err := readString(r)
	if err != nil {
		return sql.Column{}, err
	}
	var t uint8
	if err := binary.Read(r, binary.LittleEndian, &t); err != nil {
		return sql.Column{}, err
	}
	return sql.Column{Name: name, Type: sql.DataType(t)}, nil
}

// writeRow encodes a row as a column count followed by typed values:
//
//	numValues: uint16
//	per value:
//	  type: uint8 (sql.DataType)
//	  payload:
//	    INT:    int64 (little endian)
//	    DOUBLE: float64 (little endian)
//	    STRING: uint32 length + bytes
//	    BOOL:   1 byte (0 or 1)
//	    NULL:   no payload
func writeRow(w io.Writer, row sql.Row) error {
	if len(row) > 0xFFFF {
		return fmt.Errorf("wal: row too wide (%d values)", len(row))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(row))); err != nil {
		return err
	}
	for _, v := range row {
		if err := binary.Write(w, binary.LittleEndian, uint8(v.Type)); err != nil {
			return err
		}

		switch v.Type {
		case sql.TypeInt:
			if err := binary.Write(w, binary.LittleEndian, v.I64); err != nil {
				return err
			}
		case sql.TypeDouble:
			if err := binary.Write(w, binary.LittleEndian, v.F64); err != nil {
				return err
			}
		case sql.TypeString:
			if err := binary.Write(w, binary.LittleEndian, uint32(len(v.S))); err != nil {
				return err
			}
			if _, err := io.WriteString(w, v.S); err != nil {
				return err
			}
		case sql.TypeBool:
			var b byte
			if v.B {
				b = 1
			}
			if err := binary.Write(w, binary.LittleEndian, b); err != nil {
				return err
			}
		case sql.TypeNull:
			// nothing else to write
		default:
			return fmt.Errorf("wal: writeRow: unsupported value type %v", v.Type)
		}
	}
	return nil
}

// readRow decodes one row written by writeRow.
func readRow(r io.Reader) (sql.Row, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}

	row := make(sql.Row, n)
	for i := range row {
		var t uint8
		if err := binary.Read(r, binary.LittleEndian, &t); err != nil {
			return nil, err
		}

		switch vt := sql.DataType(t); vt {
		case sql.TypeInt:
			var v int64
			if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
				return nil, err
			}
			row[i] = sql.IntValue(v)
		case sql.TypeDouble:
			var v float64
			if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
				return nil, err
			}
			row[i] = sql.DoubleValue(v)
		case sql.TypeString:
			var l uint32
			if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
				return nil, err
			}
			buf := make([]byte, l)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			row[i] = sql.StringValue(string(buf))
		case sql.TypeBool:
			var b byte
			if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
				return nil, err
			}
			row[i] = sql.BoolValue(b != 0)
		case sql.TypeNull:
			row[i] = sql.Null
		default:
			return nil, fmt.Errorf("wal: readRow: unsupported value type %v", vt)
		}
	}
	return row, nil
}
