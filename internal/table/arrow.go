package table

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Allocator is the shared Arrow allocator. memory.GoAllocator is safe for
// concurrent use, so one instance serves every conversion.
var Allocator = memory.NewGoAllocator()

func arrowType(t ColumnType) (arrow.DataType, error) {
	switch t {
	case Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case String:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", t)
	}
}

func columnType(dt arrow.DataType) (ColumnType, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return Bool, nil
	case arrow.FLOAT64:
		return Float64, nil
	case arrow.INT64:
		return Int64, nil
	case arrow.STRING, arrow.LARGE_STRING:
		return String, nil
	default:
		return 0, fmt.Errorf("unsupported Arrow type %s", dt.Name())
	}
}

// ArrowSchema returns the Arrow schema matching the table's columns.
func (t *Table) ArrowSchema() (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(t.Columns))
	for i := range t.Columns {
		dt, err := arrowType(t.Columns[i].Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", t.Columns[i].Name, err)
		}
		fields[i] = arrow.Field{Name: t.Columns[i].Name, Type: dt}
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToRecord builds an Arrow record holding a copy of the table. The caller
// must Release the record.
func (t *Table) ToRecord(mem memory.Allocator) (arrow.Record, error) {
	schema, err := t.ArrowSchema()
	if err != nil {
		return nil, err
	}

	builders := make([]array.Builder, len(t.Columns))
	arrays := make([]arrow.Array, len(t.Columns))
	defer func() {
		for _, b := range builders {
			if b != nil {
				b.Release()
			}
		}
		for _, a := range arrays {
			if a != nil {
				a.Release()
			}
		}
	}()

	for i := range t.Columns {
		col := &t.Columns[i]
		switch col.Type {
		case Bool:
			b := array.NewBooleanBuilder(mem)
			builders[i] = b
			b.AppendValues(col.Bools, nil)
			arrays[i] = b.NewArray()
		case Float64:
			b := array.NewFloat64Builder(mem)
			builders[i] = b
			b.AppendValues(col.Floats, nil)
			arrays[i] = b.NewArray()
		case Int64:
			b := array.NewInt64Builder(mem)
			builders[i] = b
			b.AppendValues(col.Ints, nil)
			arrays[i] = b.NewArray()
		case String:
			b := array.NewStringBuilder(mem)
			builders[i] = b
			b.AppendValues(col.Strings, nil)
			arrays[i] = b.NewArray()
		}
	}

	// NewRecord retains the arrays; the deferred Release drops our references.
	return array.NewRecord(schema, arrays, int64(t.NumRows())), nil
}

// NewFromSchema returns an empty table with one column per schema field.
func NewFromSchema(schema *arrow.Schema) (*Table, error) {
	tbl := &Table{Columns: make([]Column, schema.NumFields())}
	for i, f := range schema.Fields() {
		typ, err := columnType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		tbl.Columns[i] = NewColumn(f.Name, typ, 0)
	}
	return tbl, nil
}

// AppendRecord copies the values of rec onto the end of the table. The
// record's schema must match the table's columns.
func (t *Table) AppendRecord(rec arrow.Record) error {
	if int(rec.NumCols()) != len(t.Columns) {
		return fmt.Errorf("record has %d columns, table has %d", rec.NumCols(), len(t.Columns))
	}
	for i := range t.Columns {
		if err := t.Columns[i].appendArray(rec.Column(i)); err != nil {
			return err
		}
	}
	return nil
}

// AppendArrowTable copies every chunk of an Arrow table onto the end of t.
func (t *Table) AppendArrowTable(at arrow.Table) error {
	if int(at.NumCols()) != len(t.Columns) {
		return fmt.Errorf("arrow table has %d columns, table has %d", at.NumCols(), len(t.Columns))
	}
	for i := range t.Columns {
		for _, chunk := range at.Column(i).Data().Chunks() {
			if err := t.Columns[i].appendArray(chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Column) appendArray(arr arrow.Array) error {
	if arr.NullN() > 0 {
		return fmt.Errorf("column %s: %d unexpected nulls", c.Name, arr.NullN())
	}
	switch a := arr.(type) {
	case *array.Boolean:
		if c.Type != Bool {
			break
		}
		for i := 0; i < a.Len(); i++ {
			c.Bools = append(c.Bools, a.Value(i))
		}
		return nil
	case *array.Float64:
		if c.Type != Float64 {
			break
		}
		c.Floats = append(c.Floats, a.Float64Values()...)
		return nil
	case *array.Int64:
		if c.Type != Int64 {
			break
		}
		c.Ints = append(c.Ints, a.Int64Values()...)
		return nil
	case *array.String:
		if c.Type != String {
			break
		}
		for i := 0; i < a.Len(); i++ {
			c.Strings = append(c.Strings, strings.Clone(a.Value(i)))
		}
		return nil
	case *array.LargeString:
		if c.Type != String {
			break
		}
		for i := 0; i < a.Len(); i++ {
			c.Strings = append(c.Strings, strings.Clone(a.Value(i)))
		}
		return nil
	}
	return fmt.Errorf("column %s: cannot append %s array to %s column", c.Name, arr.DataType().Name(), c.Type)
}
