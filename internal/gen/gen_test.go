package gen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/basekick-labs/dfio/internal/storage"
	"github.com/basekick-labs/dfio/internal/table"
	"github.com/leanovate/gopter"
	ggen "github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/basekick-labs/dfio/internal/errors"
)

// countingBackend counts writes so tests can tell a cache hit from a miss.
type countingBackend struct {
	storage.Backend
	writes int
}

func (b *countingBackend) Write(ctx context.Context, key string, data []byte) error {
	b.writes++
	return b.Backend.Write(ctx, key, data)
}

func newTestProvider(t *testing.T) (*Provider, *countingBackend, string) {
	t.Helper()
	dir := t.TempDir()
	local, err := storage.NewLocalBackend(dir, zerolog.Nop())
	require.NoError(t, err)
	backend := &countingBackend{Backend: local}
	return NewProvider(backend, zerolog.Nop()), backend, dir
}

func TestParseSchema_Characters(t *testing.T) {
	specs, err := ParseSchema("bfit")
	require.NoError(t, err)
	require.Len(t, specs, 4)

	assert.Equal(t, "col000", specs[0].Name)
	assert.Equal(t, table.Bool, specs[0].Type)
	assert.Equal(t, "col001", specs[1].Name)
	assert.Equal(t, table.Float64, specs[1].Type)
	assert.Equal(t, table.Int64, specs[2].Type)
	assert.Equal(t, "col003", specs[3].Name)
	assert.Equal(t, table.String, specs[3].Type)
}

func TestParseSchema_Preset(t *testing.T) {
	specs, err := ParseSchema("bars")
	require.NoError(t, err)

	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"instr", "open", "high", "low", "close", "volume"}, names)
}

func TestParseSchema_Errors(t *testing.T) {
	_, err := ParseSchema("")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))

	_, err = ParseSchema("ixf")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
	assert.Contains(t, err.Error(), `'x'`)
	assert.Contains(t, err.Error(), "position 1")
}

func TestParseSchema_TotalOverKnownCharacters(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("codes of b/f/i/t parse to one column per character", prop.ForAll(
		func(code string) bool {
			if code == "" || IsPreset(code) {
				return true
			}
			specs, err := ParseSchema(code)
			return err == nil && len(specs) == len(code)
		},
		ggen.RegexMatch("[bfit]{1,16}"),
	))

	properties.Property("any unknown character is a configuration error", prop.ForAll(
		func(prefix string, bad rune) bool {
			if strings.ContainsRune("bfit", bad) {
				return true
			}
			_, err := ParseSchema(prefix + string(bad))
			return apperrors.IsConfiguration(err)
		},
		ggen.RegexMatch("[bfit]{0,8}"),
		ggen.Rune(),
	))

	properties.TestingRun(t)
}

func TestGenerate_Shape(t *testing.T) {
	tbl, err := Generate("bfit", 50, newRand("bfit-50.arrow"))
	require.NoError(t, err)
	require.NoError(t, tbl.Validate())
	assert.Equal(t, 4, tbl.NumCols())
	assert.Equal(t, 50, tbl.NumRows())

	for _, v := range tbl.Columns[2].Ints {
		assert.GreaterOrEqual(t, v, int64(0))
		assert.Less(t, v, int64(1_000_000_000))
	}
	for _, s := range tbl.Columns[3].Strings {
		assert.Len(t, s, 8)
		assert.Equal(t, strings.ToUpper(s), s)
	}
}

func TestGenerate_Bars(t *testing.T) {
	tbl, err := Generate("bars", 200, newRand("bars-200.arrow"))
	require.NoError(t, err)
	assert.Equal(t, 6, tbl.NumCols())
	assert.Equal(t, 200, tbl.NumRows())

	for _, v := range tbl.Columns[0].Ints {
		assert.GreaterOrEqual(t, v, int64(1_000_000))
		assert.Less(t, v, int64(10_000_000))
	}
	for _, v := range tbl.Columns[5].Ints {
		assert.GreaterOrEqual(t, v, int64(0))
		assert.Less(t, v, int64(100_000))
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate("fit", 100, newRand("fit-100.arrow"))
	require.NoError(t, err)
	b, err := Generate("fit", 100, newRand("fit-100.arrow"))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestProvider_GetTable_Idempotent(t *testing.T) {
	p, backend, dir := newTestProvider(t)
	ctx := context.Background()

	size1, tbl1, err := p.GetTable(ctx, "iii", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.writes)

	size2, tbl2, err := p.GetTable(ctx, "iii", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.writes, "second call should hit the cache")

	assert.Equal(t, size1, size2)
	assert.True(t, tbl1.Equal(tbl2))
	assert.Equal(t, 3, tbl1.NumCols())
	assert.Equal(t, 100, tbl1.NumRows())

	info, err := os.Stat(filepath.Join(dir, "iii-100.arrow"))
	require.NoError(t, err)
	assert.Equal(t, info.Size(), size1)
}

func TestProvider_GetTable_RegeneratesSameData(t *testing.T) {
	p, backend, dir := newTestProvider(t)
	ctx := context.Background()

	_, tbl1, err := p.GetTable(ctx, "bft", 64)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, CacheKey("bft", 64))))

	_, tbl2, err := p.GetTable(ctx, "bft", 64)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.writes)
	assert.True(t, tbl1.Equal(tbl2))
}

func TestProvider_GetTable_ReplacesUnreadableEntry(t *testing.T) {
	p, backend, dir := newTestProvider(t)
	key := CacheKey("ifb", 50)
	require.NoError(t, os.WriteFile(filepath.Join(dir, key), []byte("not an arrow file"), 0644))

	size, tbl, err := p.GetTable(context.Background(), "ifb", 50)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.writes)

	want, err := Generate("ifb", 50, newRand(key))
	require.NoError(t, err)
	assert.True(t, want.Equal(tbl))

	info, err := os.Stat(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, info.Size(), size)
}

func TestProvider_GetTable_ZeroLength(t *testing.T) {
	p, _, _ := newTestProvider(t)

	_, tbl, err := p.GetTable(context.Background(), "if", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumCols())
	assert.Equal(t, 0, tbl.NumRows())
}

func TestProvider_GetTable_InvalidArgumentsDoNoIO(t *testing.T) {
	p, backend, dir := newTestProvider(t)
	ctx := context.Background()

	_, _, err := p.GetTable(ctx, "iqi", 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))

	_, _, err = p.GetTable(ctx, "iii", -1)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
	assert.Equal(t, apperrors.CodeInvalidLength, apperrors.GetCode(err))

	assert.Equal(t, 0, backend.writes)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadFile(t *testing.T) {
	p, _, dir := newTestProvider(t)
	size, want, err := p.GetTable(context.Background(), "tf", 20)
	require.NoError(t, err)

	gotSize, got, err := LoadFile(filepath.Join(dir, CacheKey("tf", 20)))
	require.NoError(t, err)
	assert.Equal(t, size, gotSize)
	assert.True(t, want.Equal(got))

	_, _, err = LoadFile(filepath.Join(dir, "missing.arrow"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.arrow")
	require.NoError(t, os.WriteFile(garbage, []byte("not an arrow file"), 0644))
	_, _, err = LoadFile(garbage)
	assert.Error(t, err)
}
