// Package report prints loaded benchmark records as a terminal table with
// derived rate, bandwidth and compression ratio columns.
package report

import (
	"fmt"
	"io"
	"iter"
	"strconv"

	"github.com/basekick-labs/dfio/internal/results"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Row is one record with its derived measurements. Derived values are nil
// when an input they need is unknown or zero.
type Row struct {
	Operation string
	Schema    string
	Length    int
	Method    string
	TimeMin   float64
	Rate      *float64 // values (length x cols) per second
	Bandwidth *float64 // data bytes per second
	Ratio     *float64 // data size / file size
}

// Derive computes a Row from a record.
func Derive(rec results.Record) Row {
	row := Row{
		Operation: rec.Operation,
		Schema:    rec.SchemaCode(),
		Length:    rec.Length,
		Method:    rec.MethodName,
		TimeMin:   rec.Time.Min,
	}
	if row.Schema == "" {
		row.Schema = rec.Data
	}
	if row.Method == "" {
		row.Method = rec.Method.String()
	}

	if rec.Time.Min > 0 {
		rate := float64(rec.Length*rec.Cols) / rec.Time.Min
		row.Rate = &rate
		if rec.DataSize != nil {
			bw := float64(*rec.DataSize) / rec.Time.Min
			row.Bandwidth = &bw
		}
	}
	if rec.DataSize != nil && rec.FileSize != nil && *rec.FileSize > 0 {
		ratio := float64(*rec.DataSize) / float64(*rec.FileSize)
		row.Ratio = &ratio
	}
	return row
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00CED1")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	numberStyle = cellStyle.Align(lipgloss.Right)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

var headers = []string{"operation", "schema", "length", "method", "time", "rate", "bandwidth", "ratio"}

// numeric columns are right aligned
var numeric = map[int]bool{2: true, 4: true, 5: true, 6: true, 7: true}

// Render writes a summary table of recs to w and returns how many rows it
// printed.
func Render(w io.Writer, recs iter.Seq[results.Record]) (int, error) {
	var rows [][]string
	for rec := range recs {
		rows = append(rows, formatRow(Derive(rec)))
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no matching records")
		return 0, err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case numeric[col]:
				return numberStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintln(w, t.Render())
	return len(rows), err
}

func formatRow(r Row) []string {
	return []string{
		r.Operation,
		r.Schema,
		strconv.Itoa(r.Length),
		r.Method,
		formatScaled(&r.TimeMin, 1e3, "ms"),
		formatScaled(r.Rate, 1e-6, "M/s"),
		formatScaled(r.Bandwidth, 1e-6, "MB/s"),
		formatRatio(r.Ratio),
	}
}

func formatScaled(v *float64, scale float64, unit string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f %s", *v*scale, unit)
}

func formatRatio(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
