// Package methods implements the storage methods dfio benchmarks: each one
// writes a table to a path in some format and reads it back.
package methods

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/basekick-labs/dfio/internal/database"
	apperrors "github.com/basekick-labs/dfio/internal/errors"
	"github.com/basekick-labs/dfio/internal/table"
	"github.com/rs/zerolog"
)

// Class tags.
const (
	ClassRaw      = "Raw"
	ClassFeather  = "Feather"
	ClassParquet  = "Parquet"
	ClassDatabase = "Database"
)

// Classes lists every class tag in catalogue order.
var Classes = []string{ClassRaw, ClassFeather, ClassParquet, ClassDatabase}

// Strategy is one configured storage method. Implementations are immutable.
type Strategy interface {
	Descriptor() Descriptor
	String() string

	// Write stores tbl at path, replacing whatever an earlier Write left there.
	Write(tbl *table.Table, path string) error
	Read(path string) (*table.Table, error)

	// FileSize is the on-disk size of the artifact at path, including any
	// auxiliary files the format keeps next to it.
	FileSize(path string) (int64, error)

	// CleanUp removes the artifact and its auxiliary files. Missing files
	// are not an error.
	CleanUp(path string) error
}

// Decompressor is implemented by strategies that can decompress a written
// artifact without decoding it, returning the decompressed byte count.
type Decompressor interface {
	Decompress(path string) (int64, error)
}

// AsDecompressor returns s as a Decompressor if it supports the
// decompress operation.
func AsDecompressor(s Strategy) (Decompressor, bool) {
	if r, ok := s.(*Raw); ok && r.codec == CodecNone {
		return nil, false
	}
	d, ok := s.(Decompressor)
	return d, ok
}

// Descriptor is the serializable identity of a strategy. It is comparable,
// so two strategies are the same method exactly when their descriptors are ==.
type Descriptor struct {
	Class   string `json:"class"`
	Codec   string `json:"codec,omitempty"`
	Level   int    `json:"level,omitempty"`
	Engine  string `json:"engine,omitempty"`
	Journal string `json:"journal,omitempty"`
}

// String renders the descriptor as Class(engine=..., codec=..., level=..., journal=...),
// omitting unset options.
func (d Descriptor) String() string {
	var opts []string
	if d.Engine != "" {
		opts = append(opts, "engine="+d.Engine)
	}
	if d.Codec != "" {
		opts = append(opts, "codec="+d.Codec)
	}
	if d.Level != 0 {
		opts = append(opts, "level="+strconv.Itoa(d.Level))
	}
	if d.Journal != "" {
		opts = append(opts, "journal="+d.Journal)
	}
	return d.Class + "(" + strings.Join(opts, ", ") + ")"
}

// ParseDescriptor decodes a JSON descriptor.
func ParseDescriptor(s string) (Descriptor, error) {
	var d Descriptor
	dec := json.NewDecoder(strings.NewReader(s))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return Descriptor{}, apperrors.NewConfigurationError(apperrors.CodeInvalidMethod,
			fmt.Sprintf("invalid method descriptor %q: %v", s, err))
	}
	return d, nil
}

// Env carries what some strategies need beyond their descriptor.
type Env struct {
	DuckDB *database.Config
	Logger zerolog.Logger
}

// fileSize sums the sizes of path and whichever of its auxiliary files exist.
// The main file must exist.
func fileSize(path string, aux ...string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	total := info.Size()
	for _, suffix := range aux {
		info, err := os.Stat(path + suffix)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, fmt.Errorf("failed to stat %s: %w", path+suffix, err)
		}
		total += info.Size()
	}
	return total, nil
}

// removeFiles deletes path and path+suffix for each suffix, ignoring
// files that don't exist.
func removeFiles(path string, aux ...string) error {
	var errs []error
	for _, p := range append([]string{path}, prefixAll(path, aux)...) {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func prefixAll(path string, suffixes []string) []string {
	out := make([]string, len(suffixes))
	for i, s := range suffixes {
		out[i] = path + s
	}
	return out
}
