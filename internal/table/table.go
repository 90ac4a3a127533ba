// Package table holds the in-memory columnar table that every storage
// method writes and reads back, plus its conversion to and from Arrow.
package table

import (
	"fmt"
	"math"
)

// ColumnType is the logical type of one generated column.
type ColumnType uint8

const (
	Bool ColumnType = iota + 1
	Float64
	Int64
	String
)

func (t ColumnType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	case String:
		return "string"
	default:
		return fmt.Sprintf("ColumnType(%d)", uint8(t))
	}
}

// ByteWidth returns the fixed element width in bytes, or 0 for variable
// width types.
func (t ColumnType) ByteWidth() int {
	switch t {
	case Bool:
		return 1
	case Float64, Int64:
		return 8
	default:
		return 0
	}
}

// Column is one named, typed column. Exactly one of the value slices is
// populated, matching Type.
type Column struct {
	Name    string     `msgpack:"name"`
	Type    ColumnType `msgpack:"type"`
	Bools   []bool     `msgpack:"bools,omitempty"`
	Floats  []float64  `msgpack:"floats,omitempty"`
	Ints    []int64    `msgpack:"ints,omitempty"`
	Strings []string   `msgpack:"strings,omitempty"`
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	switch c.Type {
	case Bool:
		return len(c.Bools)
	case Float64:
		return len(c.Floats)
	case Int64:
		return len(c.Ints)
	case String:
		return len(c.Strings)
	default:
		return 0
	}
}

// DataSize is the logical byte size of the column: the UTF-8 byte length of
// all values for strings, rows times element width otherwise.
func (c *Column) DataSize() int64 {
	if c.Type == String {
		var n int64
		for _, s := range c.Strings {
			n += int64(len(s))
		}
		return n
	}
	return int64(c.Len()) * int64(c.Type.ByteWidth())
}

// Table is an ordered set of equal-length columns.
type Table struct {
	Columns []Column `msgpack:"columns"`
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	return len(t.Columns)
}

// NumRows returns the row count (zero for a table without columns).
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// DataSize sums the logical byte size of all columns.
func (t *Table) DataSize() int64 {
	var n int64
	for i := range t.Columns {
		n += t.Columns[i].DataSize()
	}
	return n
}

// Validate checks that every column has a known type and the same length.
func (t *Table) Validate() error {
	rows := t.NumRows()
	for i := range t.Columns {
		c := &t.Columns[i]
		if c.Type.ByteWidth() == 0 && c.Type != String {
			return fmt.Errorf("column %s: unknown type %s", c.Name, c.Type)
		}
		if c.Len() != rows {
			return fmt.Errorf("column %s: %d rows, want %d", c.Name, c.Len(), rows)
		}
	}
	return nil
}

// Equal reports whether two tables have the same column names, types and
// values. Floats compare by bit pattern so NaN round-trips count as equal.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.Columns) != len(o.Columns) {
		return false
	}
	for i := range t.Columns {
		if !columnsEqual(&t.Columns[i], &o.Columns[i]) {
			return false
		}
	}
	return true
}

func columnsEqual(a, b *Column) bool {
	if a.Name != b.Name || a.Type != b.Type || a.Len() != b.Len() {
		return false
	}
	switch a.Type {
	case Bool:
		for i := range a.Bools {
			if a.Bools[i] != b.Bools[i] {
				return false
			}
		}
	case Float64:
		for i := range a.Floats {
			if math.Float64bits(a.Floats[i]) != math.Float64bits(b.Floats[i]) {
				return false
			}
		}
	case Int64:
		for i := range a.Ints {
			if a.Ints[i] != b.Ints[i] {
				return false
			}
		}
	case String:
		for i := range a.Strings {
			if a.Strings[i] != b.Strings[i] {
				return false
			}
		}
	}
	return true
}

// NewColumn returns an empty column with capacity for n values.
func NewColumn(name string, typ ColumnType, n int) Column {
	c := Column{Name: name, Type: typ}
	switch typ {
	case Bool:
		c.Bools = make([]bool, 0, n)
	case Float64:
		c.Floats = make([]float64, 0, n)
	case Int64:
		c.Ints = make([]int64, 0, n)
	case String:
		c.Strings = make([]string, 0, n)
	}
	return c
}

// Append adds one value to the column. The value's Go type must match the
// column type; database drivers hand back int64 for booleans, which is
// accepted.
func (c *Column) Append(v interface{}) error {
	switch c.Type {
	case Bool:
		switch val := v.(type) {
		case bool:
			c.Bools = append(c.Bools, val)
		case int64:
			c.Bools = append(c.Bools, val != 0)
		default:
			return fmt.Errorf("column %s: expected bool, got %T", c.Name, v)
		}
	case Float64:
		val, ok := v.(float64)
		if !ok {
			return fmt.Errorf("column %s: expected float64, got %T", c.Name, v)
		}
		c.Floats = append(c.Floats, val)
	case Int64:
		switch val := v.(type) {
		case int64:
			c.Ints = append(c.Ints, val)
		case int32:
			c.Ints = append(c.Ints, int64(val))
		default:
			return fmt.Errorf("column %s: expected int64, got %T", c.Name, v)
		}
	case String:
		switch val := v.(type) {
		case string:
			c.Strings = append(c.Strings, val)
		case []byte:
			c.Strings = append(c.Strings, string(val))
		default:
			return fmt.Errorf("column %s: expected string, got %T", c.Name, v)
		}
	default:
		return fmt.Errorf("column %s: unknown type %s", c.Name, c.Type)
	}
	return nil
}

// Value returns the value at row i as an interface, for row-oriented sinks.
func (c *Column) Value(i int) interface{} {
	switch c.Type {
	case Bool:
		return c.Bools[i]
	case Float64:
		return c.Floats[i]
	case Int64:
		return c.Ints[i]
	case String:
		return c.Strings[i]
	default:
		return nil
	}
}
