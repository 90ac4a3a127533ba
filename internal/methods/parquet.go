package methods

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/basekick-labs/dfio/internal/database"
	"github.com/basekick-labs/dfio/internal/table"
	"github.com/rs/zerolog"
)

// Parquet engines.
const (
	EngineArrow  = "arrow"
	EngineDuckDB = "duckdb"
)

var parquetCodecs = map[string]compress.Compression{
	CodecNone:   compress.Codecs.Uncompressed,
	CodecSnappy: compress.Codecs.Snappy,
	CodecGzip:   compress.Codecs.Gzip,
	CodecZstd:   compress.Codecs.Zstd,
	CodecBrotli: compress.Codecs.Brotli,
	CodecLZ4:    compress.Codecs.Lz4Raw,
}

// duckdbCodecs maps codecs to DuckDB's COPY ... (COMPRESSION x) names.
var duckdbCodecs = map[string]string{
	CodecNone:   "UNCOMPRESSED",
	CodecSnappy: "SNAPPY",
	CodecGzip:   "GZIP",
	CodecZstd:   "ZSTD",
	CodecBrotli: "BROTLI",
	CodecLZ4:    "LZ4_RAW",
}

// Parquet writes a single-row-group Parquet file, either through arrow-go
// or through an in-memory DuckDB COPY.
type Parquet struct {
	engine string
	codec  string
	level  int
	duck   *database.Config
	logger zerolog.Logger
}

// NewParquet validates the options. A zero level means the codec default;
// otherwise gzip takes 1..9, zstd 1..22 and brotli 1..11. The DuckDB engine
// only honours a level for zstd.
func NewParquet(engine, codec string, level int, env Env) (*Parquet, error) {
	if engine != EngineArrow && engine != EngineDuckDB {
		return nil, fmt.Errorf("unknown Parquet engine %q", engine)
	}
	if _, ok := parquetCodecs[codec]; !ok {
		return nil, fmt.Errorf("unknown Parquet codec %q", codec)
	}

	maxLevel := 0
	switch codec {
	case CodecGzip:
		maxLevel = 9
	case CodecZstd:
		maxLevel = 22
	case CodecBrotli:
		maxLevel = 11
	}
	if engine == EngineDuckDB && codec != CodecZstd {
		maxLevel = 0
	}
	if level < 0 || level > maxLevel {
		return nil, fmt.Errorf("level %d not accepted by Parquet %s/%s", level, engine, codec)
	}

	return &Parquet{
		engine: engine,
		codec:  codec,
		level:  level,
		duck:   env.DuckDB,
		logger: env.Logger,
	}, nil
}

func (s *Parquet) Descriptor() Descriptor {
	return Descriptor{Class: ClassParquet, Engine: s.engine, Codec: s.codec, Level: s.level}
}

func (s *Parquet) String() string {
	return s.Descriptor().String()
}

func (s *Parquet) Write(tbl *table.Table, path string) error {
	if s.engine == EngineDuckDB {
		return s.writeDuckDB(tbl, path)
	}
	return s.writeArrow(tbl, path)
}

func (s *Parquet) writeArrow(tbl *table.Table, path string) error {
	record, err := tbl.ToRecord(table.Allocator)
	if err != nil {
		return fmt.Errorf("failed to build record: %w", err)
	}
	defer record.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	writerOpts := []parquet.WriterProperty{
		parquet.WithCompression(parquetCodecs[s.codec]),
		parquet.WithAllocator(table.Allocator),
	}
	if s.level > 0 {
		writerOpts = append(writerOpts, parquet.WithCompressionLevel(s.level))
	}
	writerProps := parquet.NewWriterProperties(writerOpts...)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(record.Schema(), f, writerProps, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}
	return nil
}

func (s *Parquet) writeDuckDB(tbl *table.Table, path string) error {
	ctx := context.Background()

	// COPY refuses to replace some existing targets; start clean.
	if err := removeFiles(path); err != nil {
		return err
	}

	duck, err := database.NewDuckDB("", s.duck, s.logger)
	if err != nil {
		return err
	}
	defer duck.Close()

	if err := duck.CreateTable(ctx, "dfio", tbl); err != nil {
		return err
	}

	opts := "FORMAT PARQUET, COMPRESSION " + duckdbCodecs[s.codec]
	if s.level > 0 {
		opts += fmt.Sprintf(", COMPRESSION_LEVEL %d", s.level)
	}
	query := fmt.Sprintf("COPY %s TO '%s' (%s)", database.QuoteIdent("dfio"), database.EscapeSQLString(path), opts)
	if _, err := duck.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to copy to parquet: %w", err)
	}
	return nil
}

func (s *Parquet) Read(path string) (*table.Table, error) {
	if s.engine == EngineDuckDB {
		return s.readDuckDB(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	at, err := pqarrow.ReadTable(context.Background(), f,
		parquet.NewReaderProperties(table.Allocator),
		pqarrow.ArrowReadProperties{},
		table.Allocator)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet: %w", err)
	}
	defer at.Release()

	tbl, err := table.NewFromSchema(at.Schema())
	if err != nil {
		return nil, err
	}
	if err := tbl.AppendArrowTable(at); err != nil {
		return nil, err
	}
	return tbl, nil
}

func (s *Parquet) readDuckDB(path string) (*table.Table, error) {
	duck, err := database.NewDuckDB("", s.duck, s.logger)
	if err != nil {
		return nil, err
	}
	defer duck.Close()

	return duck.QueryTable(context.Background(),
		fmt.Sprintf("SELECT * FROM read_parquet('%s')", database.EscapeSQLString(path)))
}

func (s *Parquet) FileSize(path string) (int64, error) {
	return fileSize(path)
}

func (s *Parquet) CleanUp(path string) error {
	return removeFiles(path)
}
