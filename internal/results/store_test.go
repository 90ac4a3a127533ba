package results

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/basekick-labs/dfio/internal/errors"
	"github.com/basekick-labs/dfio/internal/methods"
	"github.com/basekick-labs/dfio/internal/timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }

func sampleRecord(op string, length int) Record {
	burnIn := 1
	return Record{
		Operation:  op,
		Method:     methods.Descriptor{Class: methods.ClassRaw, Codec: methods.CodecNone},
		MethodName: "Raw(codec=none)",
		Schema:     "iii",
		Codename:   "iii",
		Length:     length,
		Cols:       3,
		DataSize:   int64p(int64(length) * 24),
		FileSize:   int64p(int64(length)*24 + 40),
		Dir:        "/tmp",
		Time:       timing.Stats{Count: 3, Min: 0.001, Spread: 0.0005, Mean: 0.0012, Std: 0.0002},
		Samples:    3,
		BurnIn:     &burnIn,
		Timestamp:  NewTimestamp(time.Date(2026, 10, 19, 12, 0, 0, 123456789, time.UTC)),
		Hostname:   "bench01",
	}
}

func TestStore_AppendLoadOrder(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "results.json"))

	want := []Record{
		sampleRecord(OpWrite, 100),
		sampleRecord(OpRead, 100),
		sampleRecord(OpWrite, 1000),
	}
	for _, rec := range want {
		require.NoError(t, store.Append(rec))
	}

	got, err := store.Load()
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i])
	}
}

func TestStore_OneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	store := NewStore(path)
	require.NoError(t, store.Append(sampleRecord(OpWrite, 10)))
	require.NoError(t, store.Append(sampleRecord(OpRead, 10)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"operation":"write"`)
	assert.Contains(t, lines[0], `"method":{"class":"Raw","codec":"none"}`)
	assert.Contains(t, lines[0], `"timestamp":"2026-10-19T12:00:00.123456789Z"`)
}

func TestStore_UnknownSizeOmitted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	store := NewStore(path)

	rec := sampleRecord(OpWrite, 10)
	rec.FileSize = nil
	require.NoError(t, store.Append(rec))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "file_size")

	got, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, got[0].FileSize)
	require.NotNil(t, got[0].DataSize)
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"))
	got, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_LoadMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	store := NewStore(path)
	require.NoError(t, store.Append(sampleRecord(OpWrite, 10)))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("{\"operation\": \"write\", \n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, store.Append(sampleRecord(OpRead, 10)))

	got, err := store.Load()
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, apperrors.IsIntegrity(err))
	assert.Contains(t, err.Error(), "line 2")

	var be *apperrors.BenchError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 2, be.Details["line"])
}

func TestStore_LoadToleratesUnknownKeysAndCodename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	line := `{"operation":"read","method":{"class":"Raw","codec":"gzip","level":5},"codename":"bars","length":1000,"cols":6,"time":{"count":3,"min":0.5,"spread":0.1,"mean":0.55,"std":0.04},"timestamp":"2020-02-01T10:00:00Z","extra":[1,2,3]}` + "\n\n"
	require.NoError(t, os.WriteFile(path, []byte(line), 0644))

	got, err := NewStore(path).Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bars", got[0].SchemaCode())
	assert.Equal(t, 5, got[0].Method.Level)
	assert.Nil(t, got[0].FileSize)
	assert.Nil(t, got[0].BurnIn)
}

func TestStore_LoadZonelessTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	line := `{"operation":"write","method":{"class":"Raw"},"method_name":"Pickle()","codename":"iii","length":100,"cols":3,"data_size":2400,"file_size":2500,"dir":"/tmp","timestamp":"2019-05-01T12:34:56.789012","hostname":"h","time":{"count":3,"min":0.001,"spread":0.0001,"mean":0.0011,"std":0.00005}}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(line), 0644))

	store := NewStore(path)
	got, err := store.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Timestamp.Equal(time.Date(2019, 5, 1, 12, 34, 56, 789012000, time.UTC)))
	assert.Equal(t, time.UTC, got[0].Timestamp.Location())

	// rewritten records carry an explicit zone
	require.NoError(t, store.Append(got[0]))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp":"2019-05-01T12:34:56.789012Z"`)

	again, err := store.Load()
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.True(t, again[0].Timestamp.Equal(again[1].Timestamp.Time))
}

func TestStore_LoadInvalidTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	line := `{"operation":"write","method":{"class":"Raw"},"codename":"iii","length":1,"timestamp":"yesterday"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(line), 0644))

	_, err := NewStore(path).Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsIntegrity(err))
	assert.Contains(t, err.Error(), "yesterday")
}

func TestNewStore_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, NewStore("").Path())
}

func TestValidOperation(t *testing.T) {
	for _, op := range Operations {
		assert.True(t, ValidOperation(op))
	}
	assert.False(t, ValidOperation("append"))
}
