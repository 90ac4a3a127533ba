// Package gen generates the synthetic tables benchmarked by dfio and caches
// them by (schema, length) so every method sees identical data.
package gen

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	apperrors "github.com/basekick-labs/dfio/internal/errors"
	"github.com/basekick-labs/dfio/internal/table"
)

// Generator fills a column of n values from rng.
type Generator func(rng *rand.Rand, name string, n int) table.Column

// ColumnSpec is one column of a parsed schema.
type ColumnSpec struct {
	Name     string
	Type     table.ColumnType
	Generate Generator
}

// presets are named schemas that don't follow the per-character code.
var presets = map[string]func(rng *rand.Rand) []ColumnSpec{
	"bars": barsSchema,
}

// ParseSchema resolves a schema code to its column layout. A preset name wins
// over per-character interpretation.
func ParseSchema(schema string) ([]ColumnSpec, error) {
	if schema == "" {
		return nil, apperrors.NewConfigurationError(apperrors.CodeInvalidSchema, "empty schema code")
	}
	if _, ok := presets[schema]; ok {
		// The bars instrument pool depends on the rng; the layout doesn't.
		return barsSchema(nil), nil
	}

	specs := make([]ColumnSpec, 0, len(schema))
	for i, c := range schema {
		spec, err := columnFor(c)
		if err != nil {
			return nil, apperrors.NewConfigurationError(apperrors.CodeInvalidSchema,
				fmt.Sprintf("unknown column code %q at position %d in schema %q", c, i, schema)).
				WithDetails(map[string]interface{}{"char": string(c), "position": i})
		}
		spec.Name = fmt.Sprintf("col%03d", i)
		specs = append(specs, spec)
	}
	return specs, nil
}

// IsPreset reports whether schema names a preset rather than a character code.
func IsPreset(schema string) bool {
	_, ok := presets[schema]
	return ok
}

func columnFor(c rune) (ColumnSpec, error) {
	switch c {
	case 'b':
		return ColumnSpec{Type: table.Bool, Generate: boolean}, nil
	case 'f':
		return ColumnSpec{Type: table.Float64, Generate: normal(6)}, nil
	case 'i':
		return ColumnSpec{Type: table.Int64, Generate: uniformInt(0, 1_000_000_000)}, nil
	case 't':
		return ColumnSpec{Type: table.String, Generate: ticker(8)}, nil
	default:
		return ColumnSpec{}, fmt.Errorf("unknown column code %q", c)
	}
}

func barsSchema(rng *rand.Rand) []ColumnSpec {
	instr := ColumnSpec{Name: "instr", Type: table.Int64}
	if rng != nil {
		pool := make([]int64, 5000)
		for i := range pool {
			pool[i] = 1_000_000 + rng.Int64N(9_000_000)
		}
		instr.Generate = sample(pool)
	}
	return []ColumnSpec{
		instr,
		{Name: "open", Type: table.Float64, Generate: normal(4)},
		{Name: "high", Type: table.Float64, Generate: normal(4)},
		{Name: "low", Type: table.Float64, Generate: normal(4)},
		{Name: "close", Type: table.Float64, Generate: normal(4)},
		{Name: "volume", Type: table.Int64, Generate: uniformInt(0, 100_000)},
	}
}

func boolean(rng *rand.Rand, name string, n int) table.Column {
	col := table.NewColumn(name, table.Bool, n)
	for range n {
		col.Bools = append(col.Bools, rng.IntN(2) == 1)
	}
	return col
}

func normal(digits int) Generator {
	scale := math.Pow10(digits)
	return func(rng *rand.Rand, name string, n int) table.Column {
		col := table.NewColumn(name, table.Float64, n)
		for range n {
			v := math.Round(rng.NormFloat64()*scale) / scale
			if v == 0 {
				// SQLite stores integral reals as integers and loses the sign of -0.
				v = 0
			}
			col.Floats = append(col.Floats, v)
		}
		return col
	}
}

// uniformInt draws from [lo, hi).
func uniformInt(lo, hi int64) Generator {
	return func(rng *rand.Rand, name string, n int) table.Column {
		col := table.NewColumn(name, table.Int64, n)
		for range n {
			col.Ints = append(col.Ints, lo+rng.Int64N(hi-lo))
		}
		return col
	}
}

// sample draws from pool with replacement.
func sample(pool []int64) Generator {
	return func(rng *rand.Rand, name string, n int) table.Column {
		col := table.NewColumn(name, table.Int64, n)
		for range n {
			col.Ints = append(col.Ints, pool[rng.IntN(len(pool))])
		}
		return col
	}
}

func ticker(width int) Generator {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return func(rng *rand.Rand, name string, n int) table.Column {
		col := table.NewColumn(name, table.String, n)
		var sb strings.Builder
		for range n {
			sb.Reset()
			for range width {
				sb.WriteByte(letters[rng.IntN(len(letters))])
			}
			col.Strings = append(col.Strings, sb.String())
		}
		return col
	}
}

// Generate builds a table of length rows for schema, drawing every value
// from rng in column order.
func Generate(schema string, length int, rng *rand.Rand) (*table.Table, error) {
	if length < 0 {
		return nil, apperrors.NewConfigurationError(apperrors.CodeInvalidLength,
			fmt.Sprintf("length must be non-negative, got %d", length))
	}
	specs, err := ParseSchema(schema)
	if err != nil {
		return nil, err
	}
	if IsPreset(schema) {
		specs = presets[schema](rng)
	}

	tbl := &table.Table{Columns: make([]table.Column, 0, len(specs))}
	for _, spec := range specs {
		tbl.Columns = append(tbl.Columns, spec.Generate(rng, spec.Name, length))
	}
	return tbl, nil
}
