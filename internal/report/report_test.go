package report

import (
	"bytes"
	"testing"

	"github.com/basekick-labs/dfio/internal/methods"
	"github.com/basekick-labs/dfio/internal/query"
	"github.com/basekick-labs/dfio/internal/results"
	"github.com/basekick-labs/dfio/internal/timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }

func record() results.Record {
	return results.Record{
		Operation:  results.OpWrite,
		Method:     methods.Descriptor{Class: methods.ClassRaw, Codec: methods.CodecGzip, Level: 5},
		MethodName: "Raw(codec=gzip, level=5)",
		Schema:     "iii",
		Length:     1000,
		Cols:       3,
		DataSize:   int64p(24000),
		FileSize:   int64p(8000),
		Time:       timing.Stats{Count: 3, Min: 0.002, Mean: 0.0025},
	}
}

func TestDerive(t *testing.T) {
	row := Derive(record())

	assert.Equal(t, "iii", row.Schema)
	require.NotNil(t, row.Rate)
	assert.InDelta(t, 1.5e6, *row.Rate, 1e-6)
	require.NotNil(t, row.Bandwidth)
	assert.InDelta(t, 1.2e7, *row.Bandwidth, 1e-6)
	require.NotNil(t, row.Ratio)
	assert.InDelta(t, 3.0, *row.Ratio, 1e-12)
}

func TestDerive_UnknownInputs(t *testing.T) {
	rec := record()
	rec.FileSize = nil
	rec.Time.Min = 0
	rec.MethodName = ""
	rec.Schema = ""
	rec.Codename = "bars"

	row := Derive(rec)
	assert.Nil(t, row.Ratio)
	assert.Nil(t, row.Rate)
	assert.Nil(t, row.Bandwidth)
	assert.Equal(t, "bars", row.Schema)
	assert.Equal(t, "Raw(codec=gzip, level=5)", row.Method)

	rec = record()
	rec.FileSize = int64p(0)
	assert.Nil(t, Derive(rec).Ratio)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	n, err := Render(&buf, query.All([]results.Record{record()}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out := buf.String()
	for _, want := range []string{"operation", "ratio", "Raw(codec=gzip, level=5)", "2.0 ms", "1.5 M/s", "12.0 MB/s", "3.00"} {
		assert.Contains(t, out, want)
	}
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	n, err := Render(&buf, query.All(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, buf.String(), "no matching records")
}
