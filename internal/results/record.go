// Package results persists benchmark records to an append-only JSON-lines
// log and loads them back.
package results

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/basekick-labs/dfio/internal/methods"
	"github.com/basekick-labs/dfio/internal/timing"
)

// Operations a record can describe.
const (
	OpWrite      = "write"
	OpRead       = "read"
	OpDecompress = "decompress"
)

// Operations lists every operation in sweep order.
var Operations = []string{OpWrite, OpRead, OpDecompress}

// ValidOperation reports whether op names a known operation.
func ValidOperation(op string) bool {
	for _, o := range Operations {
		if o == op {
			return true
		}
	}
	return false
}

// Record is one benchmark result. Pointer fields are optional: nil means
// unknown, which is different from zero.
type Record struct {
	Operation  string             `json:"operation"`
	Method     methods.Descriptor `json:"method"`
	MethodName string             `json:"method_name,omitempty"`

	// Schema and Codename carry the same schema code; older logs only have
	// codename.
	Schema   string `json:"schema,omitempty"`
	Codename string `json:"codename,omitempty"`
	// Data names an external dataset file used instead of a schema.
	Data string `json:"data,omitempty"`

	Length        int    `json:"length"`
	Cols          int    `json:"cols"`
	DataSize      *int64 `json:"data_size,omitempty"`
	FileSize      *int64 `json:"file_size,omitempty"`
	CacheFileSize *int64 `json:"cache_file_size,omitempty"`

	Dir       string       `json:"dir,omitempty"`
	Time      timing.Stats `json:"time"`
	Samples   int          `json:"samples,omitempty"`
	BurnIn    *int         `json:"burn_in,omitempty"`
	Timestamp Timestamp    `json:"timestamp"`
	Hostname  string       `json:"hostname,omitempty"`
}

// SchemaCode returns the record's schema code, falling back to codename.
func (r *Record) SchemaCode() string {
	if r.Schema != "" {
		return r.Schema
	}
	return r.Codename
}

// Timestamp is a record's UTC measurement time. It marshals as RFC 3339
// and also accepts the zone-less ISO 8601 form older logs were written in,
// which is read as UTC.
type Timestamp struct {
	time.Time
}

// isoLocal is ISO 8601 without a zone, with optional fractional seconds.
const isoLocal = "2006-01-02T15:04:05.999999999"

// NewTimestamp returns t in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	parsed, err := time.ParseInLocation(isoLocal, s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", s)
	}
	t.Time = parsed
	return nil
}
