package methods

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/basekick-labs/dfio/internal/table"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec names shared across families.
const (
	CodecNone   = "none"
	CodecGzip   = "gzip"
	CodecZstd   = "zstd"
	CodecS2     = "s2"
	CodecSnappy = "snappy"
	CodecLZ4    = "lz4"
	CodecBrotli = "brotli"
)

const ioBufferSize = 1 << 20

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4, lz4.Level5,
	lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

// Raw serializes the table as a msgpack stream, optionally wrapped in a
// whole-file compressor.
type Raw struct {
	codec string
	level int
}

// NewRaw validates codec and level and returns the strategy. Levels run
// 1..9 for gzip, zstd, s2 and lz4; none and snappy take no level.
func NewRaw(codec string, level int) (*Raw, error) {
	switch codec {
	case CodecNone, CodecSnappy:
		if level != 0 {
			return nil, fmt.Errorf("codec %s takes no level, got %d", codec, level)
		}
	case CodecGzip, CodecZstd, CodecS2, CodecLZ4:
		if level < 1 || level > 9 {
			return nil, fmt.Errorf("codec %s level must be in 1..9, got %d", codec, level)
		}
	default:
		return nil, fmt.Errorf("unknown Raw codec %q", codec)
	}
	return &Raw{codec: codec, level: level}, nil
}

func (r *Raw) Descriptor() Descriptor {
	return Descriptor{Class: ClassRaw, Codec: r.codec, Level: r.level}
}

func (r *Raw) String() string {
	return r.Descriptor().String()
}

func (r *Raw) Write(tbl *table.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, ioBufferSize)
	cw, err := r.compressor(bw)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(cw).Encode(tbl); err != nil {
		cw.Close()
		return fmt.Errorf("failed to encode table: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("failed to finish %s stream: %w", r.codec, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush file: %w", err)
	}
	return f.Close()
}

func (r *Raw) Read(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	cr, err := r.decompressor(bufio.NewReaderSize(f, ioBufferSize))
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	var tbl table.Table
	if err := msgpack.NewDecoder(cr).Decode(&tbl); err != nil {
		return nil, fmt.Errorf("failed to decode table: %w", err)
	}
	if err := tbl.Validate(); err != nil {
		return nil, fmt.Errorf("decoded table is inconsistent: %w", err)
	}
	return &tbl, nil
}

// Decompress streams the artifact through the decompressor and discards
// the output.
func (r *Raw) Decompress(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	cr, err := r.decompressor(bufio.NewReaderSize(f, ioBufferSize))
	if err != nil {
		return 0, err
	}
	defer cr.Close()

	n, err := io.Copy(io.Discard, cr)
	if err != nil {
		return n, fmt.Errorf("failed to decompress: %w", err)
	}
	return n, nil
}

func (r *Raw) FileSize(path string) (int64, error) {
	return fileSize(path)
}

func (r *Raw) CleanUp(path string) error {
	return removeFiles(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (r *Raw) compressor(w io.Writer) (io.WriteCloser, error) {
	switch r.codec {
	case CodecGzip:
		gw, err := gzip.NewWriterLevel(w, r.level)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		return gw, nil
	case CodecZstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(r.level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zw, nil
	case CodecS2:
		var opts []s2.WriterOption
		switch {
		case r.level >= 7:
			opts = append(opts, s2.WriterBestCompression())
		case r.level >= 4:
			opts = append(opts, s2.WriterBetterCompression())
		}
		return s2.NewWriter(w, opts...), nil
	case CodecSnappy:
		return snappy.NewBufferedWriter(w), nil
	case CodecLZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(lz4Levels[r.level-1])); err != nil {
			return nil, fmt.Errorf("failed to configure lz4 writer: %w", err)
		}
		return lw, nil
	default:
		return nopWriteCloser{w}, nil
	}
}

func (r *Raw) decompressor(rd io.Reader) (io.ReadCloser, error) {
	switch r.codec {
	case CodecGzip:
		gr, err := gzip.NewReader(rd)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return gr, nil
	case CodecZstd:
		zr, err := zstd.NewReader(rd)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		return zr.IOReadCloser(), nil
	case CodecS2:
		return io.NopCloser(s2.NewReader(rd)), nil
	case CodecSnappy:
		return io.NopCloser(snappy.NewReader(rd)), nil
	case CodecLZ4:
		return io.NopCloser(lz4.NewReader(rd)), nil
	default:
		return io.NopCloser(rd), nil
	}
}
