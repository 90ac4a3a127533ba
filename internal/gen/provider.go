package gen

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	apperrors "github.com/basekick-labs/dfio/internal/errors"
	"github.com/basekick-labs/dfio/internal/storage"
	"github.com/basekick-labs/dfio/internal/table"
	"github.com/rs/zerolog"
	"github.com/spaolacci/murmur3"
)

// Provider hands out generated tables, generating each (schema, length) once
// and reusing the cached Arrow IPC file afterwards.
//
// There is no cross-process locking: two processes missing the same key both
// generate and both write. On the local backend the write is an atomic rename,
// so a reader never sees a partial file.
type Provider struct {
	backend storage.Backend
	logger  zerolog.Logger
}

// NewProvider creates a provider caching into backend.
func NewProvider(backend storage.Backend, logger zerolog.Logger) *Provider {
	return &Provider{
		backend: backend,
		logger:  logger.With().Str("component", "gen").Logger(),
	}
}

// CacheKey is the object key of the cached table for (schema, length).
func CacheKey(schema string, length int) string {
	return fmt.Sprintf("%s-%d.arrow", schema, length)
}

// newRand returns a PRNG seeded from the cache key, so regenerating a
// dropped cache entry reproduces the same table.
func newRand(key string) *rand.Rand {
	h1, h2 := murmur3.Sum128([]byte(key))
	return rand.New(rand.NewPCG(h1, h2))
}

// GetTable returns the size of the cached file and the table for
// (schema, length), generating and caching it first if needed. Invalid
// arguments are rejected before any I/O.
func (p *Provider) GetTable(ctx context.Context, schema string, length int) (int64, *table.Table, error) {
	if length < 0 {
		return 0, nil, apperrors.NewConfigurationError(apperrors.CodeInvalidLength,
			fmt.Sprintf("length must be non-negative, got %d", length))
	}
	if _, err := ParseSchema(schema); err != nil {
		return 0, nil, err
	}

	key := CacheKey(schema, length)
	exists, err := p.backend.Exists(ctx, key)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to check dataset cache for %s: %w", key, err)
	}

	if !exists {
		if err := p.generate(ctx, key, schema, length); err != nil {
			return 0, nil, err
		}
	}

	// Always decode from the stored bytes, so a fresh table and a cached one
	// come through the same path.
	size, tbl, err := p.load(ctx, key)
	if err == nil || !exists {
		return size, tbl, err
	}

	// A cached entry that no longer decodes is dropped and rebuilt.
	p.logger.Warn().Err(err).Str("key", key).Msg("Discarding unreadable cached dataset")
	if err := p.backend.Delete(ctx, key); err != nil {
		return 0, nil, fmt.Errorf("failed to drop cached dataset %s: %w", key, err)
	}
	if err := p.generate(ctx, key, schema, length); err != nil {
		return 0, nil, err
	}
	return p.load(ctx, key)
}

func (p *Provider) load(ctx context.Context, key string) (int64, *table.Table, error) {
	data, err := p.backend.Read(ctx, key)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read cached dataset %s: %w", key, err)
	}
	tbl, err := table.ReadIPC(bytes.NewReader(data))
	if err == nil {
		err = tbl.Validate()
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to decode cached dataset %s: %w", key, err)
	}
	return int64(len(data)), tbl, nil
}

func (p *Provider) generate(ctx context.Context, key, schema string, length int) error {
	start := time.Now()
	p.logger.Info().Str("schema", schema).Int("length", length).Msg("Generating dataset")

	tbl, err := Generate(schema, length, newRand(key))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := table.WriteIPC(&buf, tbl); err != nil {
		return fmt.Errorf("failed to encode dataset %s: %w", key, err)
	}
	if err := p.backend.Write(ctx, key, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write dataset cache %s: %w", key, err)
	}

	p.logger.Info().
		Str("key", key).
		Str("backend", p.backend.Type()).
		Int("size", buf.Len()).
		Dur("duration", time.Since(start)).
		Msg("Cached dataset")
	return nil
}

// LoadFile reads a table from an external Arrow IPC file, returning the
// file's size alongside it.
func LoadFile(path string) (int64, *table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to stat dataset file: %w", err)
	}
	tbl, err := table.ReadIPC(f)
	if err == nil {
		err = tbl.Validate()
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read dataset file %s: %w", path, err)
	}
	return info.Size(), tbl, nil
}
