// Package query narrows loaded benchmark records by operation, schema,
// length and method class.
package query

import (
	"iter"
	"slices"

	"github.com/basekick-labs/dfio/internal/results"
)

// Filter selects records. Each set field must match exactly; unset fields
// match everything, and set fields combine with AND.
type Filter struct {
	Operation string
	Schema    string
	Length    *int
	Class     string
}

// IsEmpty reports whether the filter matches every record.
func (f Filter) IsEmpty() bool {
	return f.Operation == "" && f.Schema == "" && f.Length == nil && f.Class == ""
}

// Match reports whether rec passes every set field.
func (f Filter) Match(rec *results.Record) bool {
	if f.Operation != "" && rec.Operation != f.Operation {
		return false
	}
	if f.Schema != "" && rec.SchemaCode() != f.Schema {
		return false
	}
	if f.Length != nil && rec.Length != *f.Length {
		return false
	}
	if f.Class != "" && rec.Method.Class != f.Class {
		return false
	}
	return true
}

// Apply returns a lazy view of the records in seq that match f. Nothing is
// evaluated until the result is ranged over, and each range re-runs seq.
func (f Filter) Apply(seq iter.Seq[results.Record]) iter.Seq[results.Record] {
	return func(yield func(results.Record) bool) {
		for rec := range seq {
			if f.Match(&rec) && !yield(rec) {
				return
			}
		}
	}
}

// And returns a filter matching what both f and g match, or false if they
// set the same field to different values and so can match nothing.
func (f Filter) And(g Filter) (Filter, bool) {
	out := f
	if g.Operation != "" {
		if f.Operation != "" && f.Operation != g.Operation {
			return Filter{}, false
		}
		out.Operation = g.Operation
	}
	if g.Schema != "" {
		if f.Schema != "" && f.Schema != g.Schema {
			return Filter{}, false
		}
		out.Schema = g.Schema
	}
	if g.Length != nil {
		if f.Length != nil && *f.Length != *g.Length {
			return Filter{}, false
		}
		out.Length = g.Length
	}
	if g.Class != "" {
		if f.Class != "" && f.Class != g.Class {
			return Filter{}, false
		}
		out.Class = g.Class
	}
	return out, true
}

// All adapts a slice of records to a sequence.
func All(recs []results.Record) iter.Seq[results.Record] {
	return slices.Values(recs)
}

// Collect gathers a sequence into a slice.
func Collect(seq iter.Seq[results.Record]) []results.Record {
	return slices.Collect(seq)
}
