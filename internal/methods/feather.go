package methods

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/basekick-labs/dfio/internal/table"
)

// Feather writes the table as an Arrow IPC file (Feather v2).
type Feather struct {
	codec string
}

// NewFeather returns a Feather strategy; codec is none, lz4 or zstd.
func NewFeather(codec string) (*Feather, error) {
	switch codec {
	case CodecNone, CodecLZ4, CodecZstd:
		return &Feather{codec: codec}, nil
	default:
		return nil, fmt.Errorf("unknown Feather codec %q", codec)
	}
}

func (s *Feather) Descriptor() Descriptor {
	return Descriptor{Class: ClassFeather, Codec: s.codec}
}

func (s *Feather) String() string {
	return s.Descriptor().String()
}

func (s *Feather) Write(tbl *table.Table, path string) error {
	var opts []ipc.Option
	switch s.codec {
	case CodecLZ4:
		opts = append(opts, ipc.WithLZ4())
	case CodecZstd:
		opts = append(opts, ipc.WithZstd())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := table.WriteIPC(f, tbl, opts...); err != nil {
		return err
	}
	return f.Close()
}

func (s *Feather) Read(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return table.ReadIPC(f)
}

func (s *Feather) FileSize(path string) (int64, error) {
	return fileSize(path)
}

func (s *Feather) CleanUp(path string) error {
	return removeFiles(path)
}
