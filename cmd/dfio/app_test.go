package main

import (
	"errors"
	"flag"
	"testing"

	apperrors "github.com/basekick-labs/dfio/internal/errors"
	"github.com/basekick-labs/dfio/internal/methods"
	"github.com/basekick-labs/dfio/internal/query"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectMethods(t *testing.T) {
	reg := methods.DefaultCatalog(methods.Env{Logger: zerolog.Nop()})

	all, err := selectMethods(reg, "")
	require.NoError(t, err)
	assert.Len(t, all, len(reg.All()))

	feather, err := selectMethods(reg, "Feather")
	require.NoError(t, err)
	assert.Len(t, feather, 3)

	mixed, err := selectMethods(reg, "Feather,Database")
	require.NoError(t, err)
	assert.Len(t, mixed, len(reg.Filter(methods.ClassFeather))+len(reg.Filter(methods.ClassDatabase)))

	named, err := selectMethods(reg, "Raw(codec=gzip, level=5)")
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, methods.Descriptor{Class: methods.ClassRaw, Codec: methods.CodecGzip, Level: 5}, named[0].Descriptor())

	// descriptors outside the catalogue are rebuilt
	custom, err := selectMethods(reg, `{"class":"Raw","codec":"zstd","level":7}`)
	require.NoError(t, err)
	require.Len(t, custom, 1)
	assert.Equal(t, 7, custom[0].Descriptor().Level)

	_, err = selectMethods(reg, "Pickle")
	assert.True(t, apperrors.IsConfiguration(err))

	_, err = selectMethods(reg, `{"class":"Raw","codec":"zstd","level":70}`)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestListFlags(t *testing.T) {
	ops := []string{"write", "read"}
	f := listFlag{&ops}
	assert.Equal(t, "write,read", f.String())
	require.NoError(t, f.Set("decompress, read"))
	assert.Equal(t, []string{"decompress", "read"}, ops)

	lengths := []int{100000}
	g := intListFlag{&lengths}
	require.NoError(t, g.Set("1000,10000"))
	assert.Equal(t, []int{1000, 10000}, lengths)
	assert.Equal(t, "1000,10000", g.String())
	assert.Error(t, g.Set("10k"))

	assert.Equal(t, "", listFlag{}.String())
	assert.Equal(t, "", intListFlag{}.String())
}

func TestLoadConfig_BadFlagIsUsageError(t *testing.T) {
	_, err := loadConfig("summary", []string{"-bogus"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errUsage))

	_, err = loadConfig("summary", []string{"-h"}, nil)
	assert.True(t, errors.Is(err, flag.ErrHelp))
	assert.False(t, errors.Is(err, errUsage))
}

func TestSummaryFilter(t *testing.T) {
	n := 1000
	f, err := summaryFilter(query.Filter{Operation: "read", Length: &n}, query.Filter{Schema: "bars"})
	require.NoError(t, err)
	assert.Equal(t, query.Filter{Operation: "read", Schema: "bars", Length: &n}, f)

	f, err = summaryFilter(query.Filter{Schema: "iii"}, query.Filter{Schema: "iii"})
	require.NoError(t, err)
	assert.Equal(t, "iii", f.Schema)

	f, err = summaryFilter(query.Filter{}, query.Filter{})
	require.NoError(t, err)
	assert.True(t, f.IsEmpty())

	_, err = summaryFilter(query.Filter{Schema: "iii"}, query.Filter{Schema: "bars"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errUsage))
}
